package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flanksource/progress/errors"
	"github.com/flanksource/progress/mode"
	"github.com/flanksource/progress/task"
)

// Build information (set by goreleaser)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := task.DefaultOptions()
	var configFile string
	var workers int
	var failOne bool

	rootCmd := &cobra.Command{
		Use:   "progress-demo",
		Short: "Exercise the concurrent progress display",
		Long: `progress-demo spawns concurrent tasks across every display mode:
a replaced single line, captured output, scrolling windows and titled
windows with live progress, speed and ETA.`,
		Example: `  progress-demo --workers 4
  progress-demo --no-progress --fail-one
  progress-demo --config progress.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				loaded, err := task.LoadOptions(configFile)
				if err != nil {
					return err
				}
				opts = loaded
			}
			return run(opts, workers, failOne)
		},
	}

	task.BindPFlags(rootCmd.PersistentFlags(), &opts)
	rootCmd.Flags().StringVar(&configFile, "config", "", "Load options from a YAML file")
	rootCmd.Flags().IntVar(&workers, "workers", 3, "Number of concurrent download workers")
	rootCmd.Flags().BoolVar(&failOne, "fail-one", false, "Make one worker fail after exhausting retries")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("progress-demo %s (%s, built %s)\n", version, commit, date)
		},
	})
	return rootCmd
}

func run(opts task.Options, workers int, failOne bool) error {
	m := task.NewManagerWithOptions(opts)
	task.HandleSignals(m, 5*time.Second)

	build, err := m.CreateTaskWithTitle(mode.WindowWithTitle(4), "Build pipeline")
	if err != nil {
		return err
	}
	_ = build.AddEmoji("🔧")
	if err := build.SetTotalJobs(workers); err != nil {
		return err
	}

	for i := 0; i < workers; i++ {
		i := i
		title := fmt.Sprintf("download artifact %d", i+1)
		child, err := m.CreateChildTask(build.ID(), mode.Window(3), title, 20)
		if err != nil {
			return err
		}
		_, err = m.Spawn(mode.Limited(), 0, func(ctx context.Context, h *task.Handle) error {
			defer build.Increment()
			for step := 1; step <= 20; step++ {
				if h.Cancelled() {
					return nil
				}
				child.CaptureStdout(fmt.Sprintf("%s: chunk %d/20", title, step))
				child.Increment()
				h.CaptureStdout(fmt.Sprintf("worker %d at %.0f%%", i+1, child.ProgressPercentage()))
				time.Sleep(time.Duration(20+rand.Intn(60)) * time.Millisecond)
			}
			if failOne && i == 0 {
				return errors.New(errors.External, "artifact checksum mismatch",
					errors.Retryable())
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	log, err := m.Spawn(mode.Capturing(), 0, func(ctx context.Context, h *task.Handle) error {
		for {
			select {
			case <-h.Done():
				return nil
			case <-time.After(300 * time.Millisecond):
				total, err := m.CumulativeProgress(build.ID())
				if err != nil {
					return err
				}
				h.CaptureStdout(fmt.Sprintf("pipeline at %.1f%%", total))
				if total >= 100 {
					return nil
				}
			}
		}
	})
	if err != nil {
		return err
	}

	runErr := m.Wait()
	log.Cancel("pipeline finished")
	if stopErr := m.Stop(); stopErr != nil && runErr == nil {
		runErr = stopErr
	}

	fmt.Println()
	fmt.Print(m.Summary())
	return runErr
}
