package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"meebo/internal/brain"
	"meebo/internal/config"
	"meebo/internal/hardware"
	"meebo/internal/logging"
	"meebo/internal/robot"
	"meebo/internal/store"
	"meebo/internal/tools"
)

var (
	// Global flags
	configPath   string
	verbose      bool
	devMode      bool
	historyLimit int

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "meebo",
	Short: "Meebo - LLM-driven mobile robot",
	Long: `Meebo is a small autonomous mobile robot driven by a local LLM.

Each cycle it reads its sensors and camera, streams a prompt to the
inference server, parses tool calls out of the response as it arrives,
and executes them on the motor, audio and camera subsystems.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if devMode {
			cfg.Robot.DevMode = true
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		if err := logging.Initialize(logging.Options{
			Level:      level,
			Dir:        cfg.Logging.Dir,
			Categories: cfg.Logging.Categories,
			JSONFormat: cfg.Logging.JSONFormat,
		}); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoop(cmd.Context())
	},
}

// runCmd starts the continuous control loop.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the autonomous control loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoop(cmd.Context())
	},
}

// onceCmd performs a single turn and prints the outcome.
var onceCmd = &cobra.Command{
	Use:   "once [prompt]",
	Short: "Run a single turn, optionally with a custom prompt",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := robot.New(cfg)
		if err != nil {
			return err
		}
		defer r.Close()

		if err := r.CheckServer(cmd.Context()); err != nil {
			return fmt.Errorf("inference server check failed: %w", err)
		}

		var custom string
		if len(args) == 1 {
			custom = args[0]
		}
		result, err := r.RunOnce(cmd.Context(), custom)
		if err != nil {
			return err
		}
		printTurn(result)
		return nil
	},
}

// historyCmd prints recent turn transcripts from the store.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent turns from the transcript store",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store.DatabasePath)
		if err != nil {
			return err
		}
		defer st.Close()

		turns, err := st.RecentTurns(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		for _, turn := range turns {
			fmt.Printf("%s  %s\n", turn.CreatedAt.Format(time.RFC3339), turn.ID)
			for _, a := range turn.Actions {
				status := "ok"
				if a.Err != "" {
					status = a.Err
				}
				fmt.Printf("    %s -> %s (%dms)\n", a.Key, status, a.TookMS)
			}
			if turn.Thoughts != "" {
				fmt.Printf("    thoughts: %s\n", turn.Thoughts)
			}
			if turn.Err != "" {
				fmt.Printf("    error: %s\n", turn.Err)
			}
		}
		return nil
	},
}

// toolsCmd prints the robot's tool registry.
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the robot can invoke",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := tools.DefaultRegistry()
		for _, spec := range registry.List() {
			fmt.Printf("%s\n    %s\n", toolSignature(spec), spec.Description)
		}
		return nil
	},
}

func toolSignature(spec tools.ToolSpec) string {
	sig := spec.Name + "("
	for i, p := range spec.Params {
		if i > 0 {
			sig += ", "
		}
		sig += fmt.Sprintf("%s %s", p.Name, p.Type)
		if !p.Required {
			sig += "?"
		}
	}
	return sig + ")"
}

func printTurn(result brain.TurnResult) {
	fmt.Printf("turn %s (%v)\n", result.ID, result.Duration.Round(time.Millisecond))
	for _, a := range result.Dispatched {
		status := "ok"
		if a.Err != nil {
			status = a.Err.Error()
		}
		fmt.Printf("  %s -> %s\n", a.Key, status)
	}
	if result.Thoughts != "" {
		fmt.Printf("thoughts: %s\n", result.Thoughts)
	}
}

// runLoop runs the control loop with the config watcher alongside until
// interrupted.
func runLoop(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, err := robot.New(cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.CheckServer(ctx); err != nil {
		logging.BootDebug("inference server check: %v", err)
		fmt.Fprintf(os.Stderr, "warning: inference server not ready: %v\n", err)
	}

	if cfg.Robot.DevMode && cfg.Robot.Interactive {
		seedDevVoice(r)
	}

	// The watcher must stop when the loop finishes on its own, not just on
	// signal, so the loop goroutine cancels the shared context on exit.
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		defer cancel()
		return r.Run(loopCtx)
	})
	g.Go(func() error {
		watcher, err := config.NewWatcher(configPath)
		if err != nil {
			logging.ConfigWarn("config watcher unavailable: %v", err)
			return nil
		}
		if err := watcher.Start(loopCtx); err != nil {
			logging.ConfigWarn("config watcher failed to start: %v", err)
			return nil
		}
		<-watcher.Done()
		return nil
	})
	return g.Wait()
}

// seedDevVoice gives the simulated microphone something to hear so the
// interactive path is exercised in dev mode.
func seedDevVoice(r *robot.Robot) {
	if sim, ok := r.Audio().(*hardware.SimulatedAudio); ok {
		sim.QueueHeard("hello meebo, what do you see?")
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "meebo.yaml", "path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "use simulated hardware")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of turns to show")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
