// Package config manages the player settings file, solitaire.conf.
//
// The file is a flat key=value list:
//
//	nightMode=false
//	audioMuted=true
//	gamesPlayed=12
//	gamesWon=3
//	windowBounds=100,80,1024,768
//
// It is parsed with godotenv, so hand-edited quoted values are accepted, and
// always written back unquoted in the order above. Values are coerced with
// cast; a value that does not parse keeps its default and is
// logged, and a missing file is the same as an empty one.
//
// Manager caches the settings and implements service.StatsStore, which makes
// the file the default home of the games-played and games-won counters.
//
// Usage:
//
//	settings, err := config.NewManager("solitaire.conf")
//	if err != nil {
//		log.Fatal(err)
//	}
//	_, err = settings.Update(func(s *config.Settings) { s.NightMode = true })
package config
