package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/wricardo/klondike/game/engine"
)

// DefaultFilename is the settings file the server uses unless told otherwise
const DefaultFilename = "solitaire.conf"

// Keys written to the settings file
const (
	KeyNightMode    = "nightMode"
	KeyAudioMuted   = "audioMuted"
	KeyGamesPlayed  = "gamesPlayed"
	KeyGamesWon     = "gamesWon"
	KeyWindowBounds = "windowBounds"
)

var ErrInvalidSettings = errors.New("invalid settings")

// Bounds is a saved window rectangle
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsZero reports whether no bounds were saved
func (b Bounds) IsZero() bool {
	return b == Bounds{}
}

func (b Bounds) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", b.X, b.Y, b.Width, b.Height)
}

// Settings are the player preferences and counters kept between runs. Night
// mode, mute and window bounds belong to the renderer; the engine only sees
// the counters.
type Settings struct {
	NightMode    bool   `json:"night_mode"`
	AudioMuted   bool   `json:"audio_muted"`
	GamesPlayed  int    `json:"games_played"`
	GamesWon     int    `json:"games_won"`
	WindowBounds Bounds `json:"window_bounds"`
}

// Stats returns the counters as engine stats
func (s Settings) Stats() engine.Stats {
	return engine.Stats{GamesPlayed: s.GamesPlayed, GamesWon: s.GamesWon}
}

// Validate checks the settings for correctness
func (s Settings) Validate() error {
	if s.GamesPlayed < 0 || s.GamesWon < 0 {
		return fmt.Errorf("%w: negative counters", ErrInvalidSettings)
	}
	if s.GamesWon > s.GamesPlayed {
		return fmt.Errorf("%w: %d games won out of %d played", ErrInvalidSettings, s.GamesWon, s.GamesPlayed)
	}
	if !s.WindowBounds.IsZero() && (s.WindowBounds.Width <= 0 || s.WindowBounds.Height <= 0) {
		return fmt.Errorf("%w: window bounds %s", ErrInvalidSettings, s.WindowBounds)
	}
	return nil
}

// Manager loads and saves the key=value settings file and caches its
// contents. It is safe for concurrent use.
type Manager struct {
	path     string
	settings Settings
	log      *logrus.Entry
	mu       sync.RWMutex
}

// NewManager loads the settings file at path. A missing file yields default
// settings; the file is created on the first save.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		path = DefaultFilename
	}
	m := &Manager{
		path: path,
		log:  logrus.WithFields(logrus.Fields{"component": "settings", "path": path}),
	}
	if err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Path returns the settings file location
func (m *Manager) Path() string {
	return m.path
}

// Reload rereads the settings file. Values that fail to parse keep their
// defaults and are logged.
func (m *Manager) Reload() error {
	values, err := godotenv.Read(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			m.mu.Lock()
			m.settings = Settings{}
			m.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read settings: %w", err)
	}

	settings := m.parse(values)
	m.mu.Lock()
	m.settings = settings
	m.mu.Unlock()
	return nil
}

func (m *Manager) parse(values map[string]string) Settings {
	var s Settings
	for key, raw := range values {
		var err error
		switch key {
		case KeyNightMode:
			s.NightMode, err = cast.ToBoolE(raw)
		case KeyAudioMuted:
			s.AudioMuted, err = cast.ToBoolE(raw)
		case KeyGamesPlayed:
			s.GamesPlayed, err = cast.ToIntE(raw)
		case KeyGamesWon:
			s.GamesWon, err = cast.ToIntE(raw)
		case KeyWindowBounds:
			s.WindowBounds, err = parseBounds(raw)
		default:
			m.log.WithField("key", key).Debug("ignoring unknown settings key")
		}
		if err != nil {
			m.log.WithError(err).WithField("key", key).Warn("bad settings value, using default")
		}
	}

	if err := s.Validate(); err != nil {
		m.log.WithError(err).Warn("resetting counters")
		s.GamesPlayed, s.GamesWon = 0, 0
		if s.Validate() != nil {
			s.WindowBounds = Bounds{}
		}
	}
	return s
}

func parseBounds(raw string) (Bounds, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return Bounds{}, fmt.Errorf("%w: window bounds need 4 values, got %q", ErrInvalidSettings, raw)
	}
	var vals [4]int
	for i, p := range parts {
		v, err := cast.ToIntE(strings.TrimSpace(p))
		if err != nil {
			return Bounds{}, err
		}
		vals[i] = v
	}
	return Bounds{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

// Settings returns a copy of the cached settings
func (m *Manager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Update applies fn to a copy of the settings, validates the result and
// saves it. The cached settings are unchanged if validation or the write fails.
func (m *Manager) Update(fn func(*Settings)) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.settings
	fn(&next)
	if err := next.Validate(); err != nil {
		return m.settings, err
	}
	if err := m.write(next); err != nil {
		return m.settings, err
	}
	m.settings = next
	return next, nil
}

// Save writes the cached settings to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.write(m.settings)
}

// Marshal renders s as plain key=value lines, unquoted, in the fixed key
// order of the settings file
func (s Settings) Marshal() []byte {
	lines := [][2]string{
		{KeyNightMode, cast.ToString(s.NightMode)},
		{KeyAudioMuted, cast.ToString(s.AudioMuted)},
		{KeyGamesPlayed, cast.ToString(s.GamesPlayed)},
		{KeyGamesWon, cast.ToString(s.GamesWon)},
		{KeyWindowBounds, s.WindowBounds.String()},
	}
	var b strings.Builder
	for _, kv := range lines {
		b.WriteString(kv[0])
		b.WriteByte('=')
		b.WriteString(kv[1])
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func (m *Manager) write(s Settings) error {
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}
	if err := os.WriteFile(m.path, s.Marshal(), 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// Load implements service.StatsStore
func (m *Manager) Load(ctx context.Context) (engine.Stats, error) {
	return m.Settings().Stats(), nil
}

// Record implements service.StatsStore by adding the deltas and saving
func (m *Manager) Record(ctx context.Context, playedDelta, wonDelta int) error {
	_, err := m.Update(func(s *Settings) {
		s.GamesPlayed += playedDelta
		s.GamesWon += wonDelta
	})
	return err
}

// Reset implements service.StatsStore by zeroing the counters and saving
func (m *Manager) Reset(ctx context.Context) error {
	_, err := m.Update(func(s *Settings) {
		s.GamesPlayed = 0
		s.GamesWon = 0
	})
	return err
}
