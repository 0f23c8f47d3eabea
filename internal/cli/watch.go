package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/notterun/internal/config"
	"github.com/ppiankov/notterun/internal/logging"
	"github.com/ppiankov/notterun/internal/runner"
	"github.com/ppiankov/notterun/internal/task"
	"github.com/ppiankov/notterun/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var (
		flags taskFlags
		dir   string
		poll  bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run task files dropped into an inbox directory",
		Long: "Watches an inbox for *.tasks, *.txt and *.json files and runs each one as a batch.\n" +
			"Processed files move to done/, unreadable ones to failed/, each with a .result.json summary.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags.appOptions(cmd))
			if err != nil {
				return err
			}
			defer a.Close()
			flags.merge(cmd, a)

			w, err := watch.New(watch.Config{
				Dir:       dir,
				PollMode:  poll,
				OutputDir: a.outDir,
				RunFn:     watchBatchFunc(a, flags),
			})
			if err != nil {
				return &ExitError{Code: ExitValidation, Err: err}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := logging.Component("cli")
			if p := a.settings.Proxy; p != nil && p.Enabled {
				if _, stopProxy, err := startProxy(a.registry, a.settings.Model(), p.Listen); err != nil {
					// non-fatal: another notterun process may already own the port
					log.Warn().Err(err).Msg("proxy start failed (may already be running)")
				} else {
					defer stopProxy()
				}
			}

			return w.Run(ctx)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&dir, "dir", "inbox", "inbox directory to watch")
	cmd.Flags().BoolVar(&poll, "poll", false, "poll the inbox instead of using filesystem events")

	return cmd
}

// watchBatchFunc runs one task file with the command defaults, letting a
// JSON file override model, provider and step budget.
func watchBatchFunc(a *app, flags taskFlags) watch.BatchFunc {
	return func(ctx context.Context, tf *config.TaskFile) (*task.BatchReport, error) {
		opts := runner.BatchOptions{
			Model:    flags.model,
			Provider: flags.provider,
			UserKey:  flags.key,
			MaxSteps: flags.steps,
		}
		if tf.Model != "" {
			opts.Model = tf.Model
			opts.Provider = tf.Provider
			if d, ok := a.registry.ResolveForModel(tf.Model); ok && opts.Provider == "" {
				opts.Provider = d.Name
			}
		} else if tf.Provider != "" {
			opts.Provider = tf.Provider
		}
		if tf.MaxSteps != 0 {
			opts.MaxSteps = tf.MaxSteps
		}
		return a.batch.RunAll(ctx, tf.Tasks, opts)
	}
}
