// Package main runs block-stacking scenarios, either headless to completion
// or animated in real time against a ticker-driven scene.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/stacker/internal/config"
	"github.com/cory-johannsen/stacker/internal/game/ai"
	"github.com/cory-johannsen/stacker/internal/game/grid"
	"github.com/cory-johannsen/stacker/internal/game/scenario"
	"github.com/cory-johannsen/stacker/internal/game/stacker"
	"github.com/cory-johannsen/stacker/internal/game/trace"
	"github.com/cory-johannsen/stacker/internal/lifecycle"
	"github.com/cory-johannsen/stacker/internal/observability"
	"github.com/cory-johannsen/stacker/internal/scripting"
)

type flags struct {
	configPath   string
	scenarioName string
	scenarioFile string
	list         bool
	interactive  bool
	tracePath    string
	duration     time.Duration
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "configs/dev.yaml", "path to configuration file")
	flag.StringVar(&f.scenarioName, "scenario", scenario.NameDefault, "built-in scenario to run")
	flag.StringVar(&f.scenarioFile, "scenario-file", "", "YAML scenario document; overrides -scenario")
	flag.BoolVar(&f.list, "list", false, "list built-in scenarios and planner domains, then exit")
	flag.BoolVar(&f.interactive, "interactive", false, "animate the run in real time instead of running headless")
	flag.StringVar(&f.tracePath, "trace", "", "write a zstd-compressed JSONL run trace to this path")
	flag.DurationVar(&f.duration, "duration", 0, "interactive only: stop after this long; 0 runs until the run ends")
	flag.Parse()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	reached, err := run(f, cfg, logger, os.Stdout)
	if err != nil {
		logger.Error("stacker failed", zap.Error(err))
		logger.Sync()
		os.Exit(2)
	}
	if !reached && !f.list {
		logger.Sync()
		os.Exit(1)
	}
}

// run executes one invocation and reports whether the goal was reached.
func run(f flags, cfg config.Config, logger *zap.Logger, out io.Writer) (bool, error) {
	scripts := scripting.NewManager(logger)
	defer scripts.Close()
	if cfg.Planner.ScriptDir != "" {
		if err := scripts.LoadDir(cfg.Planner.ScriptDir, cfg.Planner.InstructionLimit); err != nil {
			return false, fmt.Errorf("loading AI scripts: %w", err)
		}
	}
	registry, err := ai.NewDefaultRegistry(cfg.Planner.DomainDir, scripts)
	if err != nil {
		return false, fmt.Errorf("loading planner domains: %w", err)
	}

	if f.list {
		fmt.Fprintln(out, "scenarios:")
		for _, name := range scenario.Names() {
			fmt.Fprintf(out, "  %s\n", name)
		}
		fmt.Fprintln(out, "domains:")
		for _, id := range registry.IDs() {
			fmt.Fprintf(out, "  %s\n", id)
		}
		return true, nil
	}

	planner, ok := registry.PlannerFor(cfg.Planner.Domain)
	if !ok {
		return false, fmt.Errorf("unknown planner domain %q", cfg.Planner.Domain)
	}

	dims := grid.Dimensions{Width: cfg.World.Width, Depth: cfg.World.Depth, BlockSize: cfg.World.BlockSize}
	var sc scenario.Config
	if f.scenarioFile != "" {
		sc, err = scenario.LoadFile(f.scenarioFile, dims)
	} else {
		sc, err = scenario.Build(f.scenarioName, dims)
	}
	if err != nil {
		return false, err
	}

	opts := []stacker.Option{
		stacker.WithPlanner(planner),
		stacker.WithMaxIterations(cfg.Planner.MaxIterations),
		stacker.WithMaxClimb(cfg.World.MaxClimb),
		stacker.WithReach(cfg.World.Reach),
		stacker.WithTolerance(cfg.Planner.GoalTolerance),
		stacker.WithLogger(logger),
	}
	if f.tracePath != "" {
		w, err := trace.Create(f.tracePath)
		if err != nil {
			return false, err
		}
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("closing trace", zap.Error(err))
			}
		}()
		opts = append(opts, stacker.WithRecorder(trace.NewRecorder(w, logger)))
		logger.Info("tracing run", zap.String("path", f.tracePath))
	}

	var res *stacker.Result
	if f.interactive {
		res, err = runInteractive(cfg, sc, opts, f.duration, logger)
	} else {
		res, err = stacker.RunHeadless(sc, opts...)
	}
	if err != nil {
		return false, err
	}
	printSummary(out, sc, res)
	return res.ReachedGoal, nil
}

// runInteractive animates sc on a ticker host until the run ends, the
// duration passes, or the process is interrupted.
func runInteractive(cfg config.Config, sc scenario.Config, opts []stacker.Option, duration time.Duration, logger *zap.Logger) (*stacker.Result, error) {
	host := stacker.NewTickerHost(cfg.Scene.FrameInterval)
	finished := make(chan struct{})
	callbacks := stacker.Callbacks{
		OnStatus: func(text string) { logger.Info(text) },
		OnAction: func(text string) { logger.Info("action", zap.String("description", text)) },
		OnPlanUpdate: func(info stacker.PlanInfo) {
			logger.Debug("plan", zap.Int("iteration", info.Iteration), zap.Int("path_points", len(info.Path)))
		},
		OnDone: func(stacker.Result) { close(finished) },
	}
	scene, err := stacker.NewScene(host, callbacks, stacker.SceneOptions{
		Config:      sc,
		Speed:       cfg.Scene.Speed,
		ActionDelay: cfg.Scene.ActionDelay,
		Run:         opts,
		Logger:      logger,
	})
	if err != nil {
		host.Stop()
		return nil, err
	}

	stopFrames := make(chan struct{})
	stopScene := make(chan struct{})
	lc := lifecycle.New(logger)
	lc.Add("frames", &lifecycle.FuncService{
		StartFn: func() error {
			<-stopFrames
			return nil
		},
		StopFn: func() {
			host.Stop()
			close(stopFrames)
		},
	})
	lc.Add("scene", &lifecycle.FuncService{
		StartFn: func() error {
			select {
			case <-finished:
			case <-stopScene:
			}
			return nil
		},
		StopFn: func() {
			scene.Dispose()
			close(stopScene)
		},
	})

	ctx := context.Background()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}
	if err := lc.Run(ctx); err != nil {
		return nil, err
	}
	res := scene.Result()
	return &res, nil
}

func printSummary(out io.Writer, sc scenario.Config, res *stacker.Result) {
	outcome := "reached the goal"
	if !res.ReachedGoal {
		outcome = "did not reach the goal"
	}
	fmt.Fprintf(out, "run %s: scenario %q %s in %d iterations\n", res.RunID, sc.Name, outcome, res.Iterations)
	if res.Err != nil {
		fmt.Fprintf(out, "error: %v\n", res.Err)
	}
	fmt.Fprintf(out, "actions: %d (navigate %d, pick %d, place %d), navmesh rebuilds: %d\n",
		len(res.Actions),
		res.Count(ai.KindNavigate),
		res.Count(ai.KindPick),
		res.Count(ai.KindPlace),
		res.Rebuilds,
	)
	for i, a := range res.Actions {
		fmt.Fprintf(out, "%4d  %s\n", i+1, a.Description)
	}
	fmt.Fprint(out, res.FinalGrid.String())
}
