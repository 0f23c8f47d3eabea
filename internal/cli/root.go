package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/notterun/internal/config"
	"github.com/ppiankov/notterun/internal/logging"
)

// Version, Commit and BuildDate are set via LDFLAGS at build time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	verbose    bool
	configFile string
	localeCode string
	settings   *config.Settings
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "notterun",
		Short: "Run browser-agent tasks across model providers and keep the results",
		Long: "notterun sends natural-language tasks to an agent backed by the selected model provider,\n" +
			"then writes every result as JSON, Markdown and plain text.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.LoadSettings(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			settings = s
			return logging.Init(logConfig(s, verbose))
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&configFile, "config", ".notterun.yml", "path to config file")
	root.PersistentFlags().StringVar(&localeCode, "locale", "", "output language: en or tr (overrides config)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newBatchCmd())
	root.AddCommand(newInteractiveCmd())
	root.AddCommand(newProvidersCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newProxyCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func logConfig(s *config.Settings, verbose bool) logging.Config {
	cfg := logging.Config{Level: "warn"}
	if s != nil && s.Log != nil {
		cfg.Format = s.Log.Format
		cfg.Path = s.Log.Path
		cfg.RetentionDays = s.Log.RetentionDays
		if s.Log.Level != "" {
			cfg.Level = s.Log.Level
		}
	}
	if verbose {
		cfg.Level = "debug"
	}
	return cfg
}
