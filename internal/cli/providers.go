package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/notterun/internal/reporter"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List providers, their models and credential availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := currentSettings()
			loc, err := resolveLocale(s)
			if err != nil {
				return err
			}
			reg, err := buildRegistry(s)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			text := reporter.NewTextReporter(out, out == os.Stdout && isTerminal(), loc)
			text.PrintProviders(reg.List(), func(v string) bool { return os.Getenv(v) != "" })
			return nil
		},
	}
}
