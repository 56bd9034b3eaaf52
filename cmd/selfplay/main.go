// Command selfplay deals and plays Klondike games in-process with a greedy
// strategy and reports how often it wins. Every move goes through the rules
// engine with the invariant checker enabled, so a long run doubles as a soak
// test of the engine.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/klondike/game/engine"
)

var log = logrus.WithField("component", "selfplay")

// Summary aggregates the outcomes of a run
type Summary struct {
	Games      int
	Won        int
	Stalled    int
	Stuck      int
	TotalScore int
	TotalSteps int
	TotalCards int
}

// Add folds one outcome into the summary
func (s *Summary) Add(o Outcome) {
	s.Games++
	s.TotalScore += o.Score
	s.TotalSteps += o.Steps
	s.TotalCards += o.Foundation
	switch {
	case o.Won():
		s.Won++
	case o.Status == engine.StatusStalled:
		s.Stalled++
	case o.Stuck:
		s.Stuck++
	}
}

func (s Summary) rate(n int) float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(n) * 100 / float64(s.Games)
}

func (s Summary) String() string {
	avgScore, avgSteps, avgCards := 0.0, 0.0, 0.0
	if s.Games > 0 {
		avgScore = float64(s.TotalScore) / float64(s.Games)
		avgSteps = float64(s.TotalSteps) / float64(s.Games)
		avgCards = float64(s.TotalCards) / float64(s.Games)
	}
	return fmt.Sprintf("games: %d\nwon: %d (%.1f%%)\nstalled: %d (%.1f%%)\nstuck: %d (%.1f%%)\naverage score: %.1f\naverage steps: %.1f\naverage foundation cards: %.1f",
		s.Games,
		s.Won, s.rate(s.Won),
		s.Stalled, s.rate(s.Stalled),
		s.Stuck, s.rate(s.Stuck),
		avgScore, avgSteps, avgCards)
}

// runConfig controls a self-play run
type runConfig struct {
	Games    int
	Parallel int
	Seed     uint64
	MaxSteps int
}

// run plays cfg.Games deals, at most cfg.Parallel at a time. Game i is
// shuffled from PCG(seed, i), so a run is reproducible for a fixed seed.
func run(parent context.Context, cfg runConfig) (Summary, error) {
	var (
		mu      sync.Mutex
		summary Summary
	)

	strategy := GreedyStrategy{MaxSteps: cfg.MaxSteps}

	g, ctx := errgroup.WithContext(parent)
	g.SetLimit(max(cfg.Parallel, 1))

	for i := 0; i < cfg.Games; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			opts := engine.DefaultOptions()
			opts.Rand = rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
			eng, err := engine.NewEngine(opts)
			if err != nil {
				return err
			}
			if err := eng.NewGame(); err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}

			outcome, err := strategy.Play(eng)
			if err != nil {
				return fmt.Errorf("game %d (%s): %w", i, outcome.GameID, err)
			}

			log.WithFields(logrus.Fields{
				"game":   i,
				"status": outcome.Status,
				"stuck":  outcome.Stuck,
				"score":  outcome.Score,
				"steps":  outcome.Steps,
				"cards":  outcome.Foundation,
			}).Debug("game finished")

			mu.Lock()
			summary.Add(outcome)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}
	return summary, parent.Err()
}

func main() {
	cmd := &cli.Command{
		Name:  "selfplay",
		Usage: "play Klondike deals with a greedy strategy and report the win rate",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "games", Aliases: []string{"n"}, Value: 1000, Usage: "number of deals to play"},
			&cli.IntFlag{Name: "parallel", Aliases: []string{"p"}, Value: 8, Usage: "games played concurrently"},
			&cli.IntFlag{Name: "seed", Usage: "base shuffle seed (default: time-based)"},
			&cli.IntFlag{Name: "max-steps", Value: 2000, Usage: "actions per game before giving up"},
			&cli.BoolFlag{Name: "v", Usage: "log every game"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("v") {
				logrus.SetLevel(logrus.DebugLevel)
			}

			seed := uint64(cmd.Int("seed"))
			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			cfg := runConfig{
				Games:    int(cmd.Int("games")),
				Parallel: int(cmd.Int("parallel")),
				Seed:     seed,
				MaxSteps: int(cmd.Int("max-steps")),
			}
			log.WithFields(logrus.Fields{"games": cfg.Games, "parallel": cfg.Parallel, "seed": cfg.Seed}).Info("starting")

			start := time.Now()
			summary, err := run(ctx, cfg)
			fmt.Println(summary)
			fmt.Printf("elapsed: %s\n", time.Since(start).Round(time.Millisecond))
			return err
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Fatal("self-play failed")
	}
}
