// Command analyze is offline tooling for blockfall configurations.
//
//	analyze validate [dir]                                  check every *.json config in dir
//	analyze simulate --config classic --seed 42 --pieces 200  play a random policy headlessly
//
// simulate reports lines cleared, score, pieces placed and the final stack
// shape (column heights and holes), which is handy when tuning configs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/blockfall/game/engine"
)

var errInvalidConfigs = errors.New("some configurations have errors")

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "validate and simulate blockfall game configurations",
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "validate every config file in a directory",
				ArgsUsage: "[dir]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					dir := cmd.Args().First()
					if dir == "" {
						dir = "configs"
					}
					return validateDir(cmd.Root().Writer, dir)
				},
			},
			{
				Name:  "simulate",
				Usage: "play a random policy headlessly and print the outcome",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "directory containing game configurations", Sources: cli.EnvVars("CONFIG_DIR")},
					&cli.StringFlag{Name: "config", Value: "classic", Usage: "config name"},
					&cli.IntFlag{Name: "seed", Value: 42, Usage: "shape and policy seed (0 picks one from the clock)"},
					&cli.IntFlag{Name: "pieces", Value: 200, Usage: "stop after this many pieces lock"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := engine.LoadConfigByName(cmd.String("config-dir"), cmd.String("config"))
					if err != nil {
						return err
					}
					sim, err := simulate(cfg, int64(cmd.Int("seed")), int(cmd.Int("pieces")))
					if err != nil {
						return err
					}
					printSimulation(cmd.Root().Writer, cfg.Name, sim)
					return nil
				},
			},
		},
	}
}

// ValidationResult captures the outcome of validating a single file.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Config *engine.GameConfig
}

func validateConfig(path string) ValidationResult {
	result := ValidationResult{File: filepath.Base(path), Valid: true}
	cfg, err := engine.LoadConfigFromFile(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.Config = cfg
	return result
}

func validateDir(out io.Writer, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("finding config files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no config files in %s", dir)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)
		fmt.Fprintf(out, "\n%s %s\n", strings.Repeat("=", 20), result.File)
		if !result.Valid {
			allValid = false
			fmt.Fprintln(out, "❌ INVALID")
			for _, e := range result.Errors {
				fmt.Fprintln(out, "  ❌ "+e)
			}
			continue
		}
		fmt.Fprintln(out, "✅ VALID")
		fmt.Fprintf(out, "  gravity %dms, input poll %dms\n", result.Config.GravityIntervalMs, result.Config.InputPollIntervalMs)
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		fmt.Fprintln(out, "❌ Some configurations have errors")
		return errInvalidConfigs
	}
	fmt.Fprintln(out, "✅ All configurations are valid!")
	return nil
}

// Simulation is the outcome of one headless run.
type Simulation struct {
	Pieces   int
	Lines    int
	Score    int
	Commands int
	Holes    int
	GameOver bool
	Heights  [engine.Width]int
}

// simulate plays until pieces have locked or the game ends. Each piece gets
// a random number of rotations and a random horizontal shift, then falls
// under gravity.
func simulate(cfg *engine.GameConfig, seed int64, pieces int) (Simulation, error) {
	if pieces <= 0 {
		return Simulation{}, fmt.Errorf("pieces must be positive, got %d", pieces)
	}
	c := *cfg
	c.Seed = seed
	eng, err := engine.NewEngine(&c)
	if err != nil {
		return Simulation{}, err
	}
	policy := rand.New(rand.NewPCG(uint64(seed), uint64(pieces)))

	locked := func() int { return eng.Snapshot().PiecesLocked }
	for !eng.IsGameOver() && locked() < pieces {
		placed := locked()
		for i := policy.IntN(4); i > 0; i-- {
			eng.Execute(engine.CommandRotate)
		}
		dir, shift := engine.CommandRight, policy.IntN(engine.Width)-engine.Width/2
		if shift < 0 {
			dir, shift = engine.CommandLeft, -shift
		}
		for ; shift > 0; shift-- {
			eng.Execute(dir)
		}
		for !eng.IsGameOver() && locked() == placed {
			eng.Execute(engine.CommandGravity)
		}
	}

	snap := eng.Snapshot()
	return Simulation{
		Pieces:   snap.PiecesLocked,
		Lines:    snap.LinesCleared,
		Score:    snap.Score,
		Commands: eng.TotalCommands(),
		Holes:    engine.CountHoles(eng.Board()),
		GameOver: eng.IsGameOver(),
		Heights:  engine.ColumnHeights(eng.Board()),
	}, nil
}

func printSimulation(out io.Writer, name string, sim Simulation) {
	fmt.Fprintf(out, "=== Simulating %s ===\n", name)
	fmt.Fprintf(out, "Pieces placed: %d\n", sim.Pieces)
	fmt.Fprintf(out, "Lines cleared: %d\n", sim.Lines)
	fmt.Fprintf(out, "Score: %d\n", sim.Score)
	fmt.Fprintf(out, "Commands: %d\n", sim.Commands)
	fmt.Fprintf(out, "Column heights: %v\n", sim.Heights)
	fmt.Fprintf(out, "Holes: %d\n", sim.Holes)
	if sim.GameOver {
		fmt.Fprintln(out, "💀 Game over before the piece limit")
	}
}
