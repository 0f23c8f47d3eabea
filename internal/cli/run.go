package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/notterun/internal/reporter"
	"github.com/ppiankov/notterun/internal/task"
)

// taskFlags are shared by run and batch.
type taskFlags struct {
	model     string
	provider  string
	steps     int
	key       string
	outputDir string
	timeout   time.Duration
	noHistory bool
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "model identifier, e.g. openai/gpt-4o (default from config)")
	cmd.Flags().StringVarP(&f.provider, "provider", "p", "", "provider name (default from config)")
	cmd.Flags().IntVarP(&f.steps, "steps", "s", task.DefaultSteps, fmt.Sprintf("maximum agent steps (%d-%d)", task.MinSteps, task.MaxSteps))
	cmd.Flags().StringVar(&f.key, "key", "", "API key for this run only (overrides stored fallback keys)")
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "directory for result files (default from config, else current dir)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "per-task timeout (0 = none)")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "do not record results in the history index")
}

// merge fills unset flags from settings.
func (f *taskFlags) merge(cmd *cobra.Command, a *app) {
	if !cmd.Flags().Changed("model") {
		f.model = a.settings.Model()
	}
	if !cmd.Flags().Changed("provider") {
		f.provider = a.settings.ProviderName()
		// a model chosen on the command line implies its owner
		if cmd.Flags().Changed("model") {
			if d, ok := a.registry.ResolveForModel(f.model); ok {
				f.provider = d.Name
			}
		}
	}
	if !cmd.Flags().Changed("steps") {
		f.steps = a.settings.Steps()
	}
}

func (f *taskFlags) appOptions(cmd *cobra.Command) appOptions {
	return appOptions{outputDir: f.outputDir, timeout: f.timeout, noHistory: f.noHistory, out: cmd.OutOrStdout()}
}

func newRunCmd() *cobra.Command {
	var (
		flags    taskFlags
		jsonMode bool
	)

	cmd := &cobra.Command{
		Use:   "run <task>",
		Short: "Run a single task and save its result",
		Example: `  notterun run "Find the latest news about SpaceX"
  notterun run -m groq/llama-3.3-70b-versatile -s 5 "Find the weather for Istanbul"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags.appOptions(cmd))
			if err != nil {
				return err
			}
			defer a.Close()
			flags.merge(cmd, a)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			req := task.Request{
				Text:     strings.Join(args, " "),
				Model:    flags.model,
				MaxSteps: flags.steps,
				Provider: flags.provider,
				UserKey:  flags.key,
			}
			return runSingle(ctx, a, req, jsonMode)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonMode, "json", false, "print the result as JSON instead of the display block")

	return cmd
}

func runSingle(ctx context.Context, a *app, req task.Request, jsonMode bool) error {
	if !jsonMode {
		a.text.PrintStart(req.Text)
	}

	out := a.service.Run(ctx, req)
	if out.Invalid != nil {
		return out.Invalid
	}

	if jsonMode {
		data, err := reporter.RenderJSON(out.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		fmt.Fprintln(a.text.Writer(), string(data))
	} else {
		a.text.PrintResult(out.Result, out.Artifacts, out.PersistErr)
	}

	if !out.Result.Success {
		return failedTasksError(1, 1)
	}
	return nil
}
