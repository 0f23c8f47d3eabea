package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/notterun/internal/runner"
	"github.com/ppiankov/notterun/internal/task"
)

func newInteractiveCmd() *cobra.Command {
	var flags taskFlags

	cmd := &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"console"},
		Short:   "Menu-driven console for single and batch runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags.appOptions(cmd))
			if err != nil {
				return err
			}
			defer a.Close()
			flags.merge(cmd, a)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			c := &console{
				app:      a,
				in:       bufio.NewReader(cmd.InOrStdin()),
				model:    flags.model,
				provider: flags.provider,
				key:      flags.key,
			}
			return c.loop(ctx)
		},
	}

	flags.register(cmd)
	// the console asks for the step budget itself
	_ = cmd.Flags().MarkHidden("steps")

	return cmd
}

// console is the interactive menu loop.
type console struct {
	app      *app
	in       *bufio.Reader
	model    string
	provider string
	key      string
}

func (c *console) out() io.Writer { return c.app.text.Writer() }

func (c *console) loop(ctx context.Context) error {
	m := c.app.loc.Menu
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(c.out(), rule)
	fmt.Fprintln(c.out(), m.Title)
	fmt.Fprintln(c.out(), rule)

	for ctx.Err() == nil {
		fmt.Fprintf(c.out(), "\n%s\n%s\n%s\n%s\n", m.Question, m.Single, m.Batch, m.Exit)

		choice, err := c.ask("\n" + m.Choice)
		if err != nil {
			return eofIsExit(err)
		}

		switch strings.TrimSpace(choice) {
		case "1":
			if err := c.single(ctx); err != nil {
				return eofIsExit(err)
			}
		case "2":
			if err := c.batch(ctx); err != nil {
				return eofIsExit(err)
			}
		case "3":
			fmt.Fprintf(c.out(), "\n%s\n", m.Goodbye)
			return nil
		default:
			fmt.Fprintln(c.out(), m.InvalidChoice)
		}
	}
	return nil
}

func (c *console) single(ctx context.Context) error {
	m := c.app.loc.Menu
	text, err := c.ask("\n" + m.AskTask)
	if err != nil {
		return err
	}
	steps, err := c.ask(m.AskSteps)
	if err != nil {
		return err
	}

	req := task.Request{
		Text:     text,
		Model:    c.model,
		MaxSteps: parseSteps(steps),
		Provider: c.provider,
		UserKey:  c.key,
	}
	c.app.text.PrintStart(strings.TrimSpace(text))
	out := c.app.service.Run(ctx, req)
	if out.Invalid != nil {
		fmt.Fprintf(c.out(), "%s: %v\n", c.app.loc.Error, out.Invalid)
		return nil
	}
	c.app.text.PrintResult(out.Result, out.Artifacts, out.PersistErr)
	return nil
}

func (c *console) batch(ctx context.Context) error {
	m := c.app.loc.Menu
	raw, err := c.ask("\n" + m.AskCount)
	if err != nil {
		return err
	}
	count, convErr := strconv.Atoi(strings.TrimSpace(raw))
	if convErr != nil {
		fmt.Fprintln(c.out(), m.InvalidNumber)
		return nil
	}

	tasks := make([]string, 0, max(count, 0))
	for i := 1; i <= count; i++ {
		text, err := c.ask(fmt.Sprintf(m.AskTaskN, i))
		if err != nil {
			return err
		}
		tasks = append(tasks, text)
	}
	steps, err := c.ask(m.AskBatchSteps)
	if err != nil {
		return err
	}

	opts := runner.BatchOptions{
		Model:    c.model,
		Provider: c.provider,
		UserKey:  c.key,
		MaxSteps: parseSteps(steps),
		OnStart:  func(i, total int, _ string) { c.app.text.PrintBatchStart(i, total) },
		OnUpdate: func(_ int, s task.Section) { c.app.text.PrintSection(s) },
	}
	report, err := c.app.batch.RunAll(ctx, tasks, opts)
	if err != nil {
		fmt.Fprintf(c.out(), "%s: %v\n", c.app.loc.Error, err)
		return nil
	}
	c.app.text.PrintBatchFooter(report)
	return nil
}

// ask prints a prompt and reads one line. A final line without a newline
// is still returned; io.EOF is only reported when nothing was read.
func (c *console) ask(prompt string) (string, error) {
	fmt.Fprint(c.out(), prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// parseSteps reads a step budget answer. Anything that is not a plain
// number means the default; numbers are clamped to the accepted range.
func parseSteps(s string) int {
	s = strings.TrimSpace(s)
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return task.DefaultSteps
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return task.DefaultSteps
	}
	return min(max(n, task.MinSteps), task.MaxSteps)
}

func eofIsExit(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
