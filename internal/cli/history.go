package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/notterun/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit    int
		prov     string
		failed   bool
		showID   string
		showStat bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently executed tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := currentSettings()
			if !s.HistoryEnabled() {
				return fmt.Errorf("history is disabled (history_db: off)")
			}
			db, err := history.Open(s.HistoryDB)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			switch {
			case showID != "":
				e, err := db.Get(ctx, showID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "id:        %s\n", e.ID)
				fmt.Fprintf(out, "task:      %s\n", e.Result.Task)
				fmt.Fprintf(out, "model:     %s (%s)\n", e.Result.Model, e.Result.Provider)
				fmt.Fprintf(out, "success:   %t %s\n", e.Result.Success, e.Result.Failure)
				fmt.Fprintf(out, "duration:  %.2fs\n", e.Result.DurationSeconds)
				fmt.Fprintf(out, "timestamp: %s\n", e.Result.Timestamp.Format("2006-01-02 15:04:05"))
				for _, p := range e.Artifacts {
					fmt.Fprintf(out, "file:      %s\n", p)
				}
				fmt.Fprintf(out, "\n%s\n", e.Result.Answer)
				return nil

			case showStat:
				stats, err := db.Stats(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-16s %6s %9s %8s\n", "PROVIDER", "TOTAL", "SUCCEEDED", "AVG(s)")
				for _, st := range stats {
					fmt.Fprintf(out, "%-16s %6d %9d %8.2f\n", st.Provider, st.Total, st.Succeeded, st.AvgSecs)
				}
				return nil
			}

			entries, err := db.Recent(ctx, history.Filter{Provider: prov, Failed: failed, Limit: limit})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "no history yet")
				return nil
			}
			for _, e := range entries {
				status := "ok"
				if !e.Result.Success {
					status = "FAIL"
					if e.Result.Failure != "" {
						status += " " + string(e.Result.Failure)
					}
				}
				fmt.Fprintf(out, "%s  %s  %-16s %6.1fs  %-28s %s\n",
					e.ID[:8],
					e.Result.Timestamp.Format("2006-01-02 15:04"),
					e.Result.Provider,
					e.Result.DurationSeconds,
					status,
					oneLine(e.Result.Task, 60))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	cmd.Flags().StringVar(&prov, "provider", "", "only show results from this provider")
	cmd.Flags().BoolVar(&failed, "failed", false, "only show unsuccessful results")
	cmd.Flags().StringVar(&showID, "show", "", "show one entry in full by id or id prefix")
	cmd.Flags().BoolVar(&showStat, "stats", false, "show per-provider totals")

	return cmd
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
