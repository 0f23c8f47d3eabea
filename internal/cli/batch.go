package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ppiankov/notterun/internal/config"
	"github.com/ppiankov/notterun/internal/logging"
	"github.com/ppiankov/notterun/internal/reporter"
	"github.com/ppiankov/notterun/internal/runner"
	"github.com/ppiankov/notterun/internal/task"
)

func newBatchCmd() *cobra.Command {
	var (
		flags     taskFlags
		tasksFile string
		tuiMode   string
	)

	cmd := &cobra.Command{
		Use:   "batch [task...]",
		Short: "Run several tasks one after another",
		Long: "Runs each task in order with shared model, provider and step budget. Tasks come from\n" +
			"arguments, from --file (one per line, or JSON), or from stdin when the only argument is \"-\".",
		Example: `  notterun batch "news about SpaceX" "weather in Istanbul"
  notterun batch --file morning.tasks --tui full
  cat tasks.txt | notterun batch -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags.appOptions(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			tasks, err := collectTasks(cmd, args, tasksFile)
			if err != nil {
				return err
			}
			flags.merge(cmd, a)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			opts := runner.BatchOptions{
				Model:    flags.model,
				Provider: flags.provider,
				UserKey:  flags.key,
				MaxSteps: flags.steps,
			}
			return runBatch(ctx, a, tasks, opts, resolveTUIMode(tuiMode))
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&tasksFile, "file", "f", "", "read tasks from a file")
	cmd.Flags().StringVar(&tuiMode, "tui", "auto", "display mode: full (live TUI), off (streamed text), auto (detect TTY)")

	return cmd
}

// collectTasks gathers tasks from --file, stdin or arguments. Settings in
// a JSON task file apply unless the matching flag was given.
func collectTasks(cmd *cobra.Command, args []string, tasksFile string) ([]string, error) {
	switch {
	case tasksFile != "":
		tf, err := config.LoadTasks(tasksFile)
		if err != nil {
			return nil, err
		}
		if tf.Model != "" && !cmd.Flags().Changed("model") {
			_ = cmd.Flags().Set("model", tf.Model)
		}
		if tf.Provider != "" && !cmd.Flags().Changed("provider") {
			_ = cmd.Flags().Set("provider", tf.Provider)
		}
		if tf.MaxSteps != 0 && !cmd.Flags().Changed("steps") {
			_ = cmd.Flags().Set("steps", fmt.Sprint(tf.MaxSteps))
		}
		return append(tf.Tasks, args...), nil
	case len(args) == 1 && args[0] == "-":
		return readLines(cmd.InOrStdin())
	default:
		return args, nil
	}
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}
	return lines, nil
}

func resolveTUIMode(mode string) string {
	if mode == "" || mode == "auto" {
		if isTerminal() {
			return "full"
		}
		return "off"
	}
	return mode
}

func runBatch(ctx context.Context, a *app, tasks []string, opts runner.BatchOptions, displayMode string) error {
	tasks = task.CleanTasks(tasks)
	if len(tasks) == 0 {
		a.text.PrintBatchFooter(&task.BatchReport{Rejected: true})
		return task.ErrEmptyBatch
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		tuiProgram *tea.Program
		tuiDone    chan struct{}
	)
	switch displayMode {
	case "full":
		model := reporter.NewTUIModel(tasks, cancel, a.loc)
		tuiProgram = tea.NewProgram(model, tea.WithAltScreen())
		opts.OnStart, opts.OnUpdate = reporter.TUIHooks(tuiProgram)
		tuiDone = make(chan struct{})
		go func() {
			defer close(tuiDone)
			if _, err := tuiProgram.Run(); err != nil {
				log := logging.Component("cli")
				log.Warn().Err(err).Msg("TUI error")
			}
		}()
	default:
		opts.OnStart = func(i, total int, _ string) { a.text.PrintBatchStart(i, total) }
		opts.OnUpdate = func(_ int, s task.Section) { a.text.PrintSection(s) }
	}

	report, err := a.batch.RunAll(ctx, tasks, opts)

	if tuiProgram != nil {
		tuiProgram.Send(reporter.BatchDoneMsg{})
		<-tuiDone
	}
	if err != nil {
		return err
	}

	if tuiProgram != nil {
		a.text.PrintBatch(report)
	} else {
		a.text.PrintBatchFooter(report)
	}

	if report.Rejected {
		return task.ErrEmptyBatch
	}
	if failed := report.Failed(); failed > 0 {
		return failedTasksError(failed, len(report.Sections))
	}
	return nil
}
