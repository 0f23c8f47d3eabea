package cli

import (
	"bufio"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/notterun/internal/credential"
	"github.com/ppiankov/notterun/internal/provider"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored fallback API keys",
		Long: "Fallback keys are kept in an age-encrypted file protected by the passphrase in\n" +
			credential.PassphraseEnv + ". They are used when no key is given for a run.",
	}
	cmd.AddCommand(newKeysSetCmd())
	cmd.AddCommand(newKeysListCmd())
	cmd.AddCommand(newKeysRemoveCmd())
	return cmd
}

func newKeysSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <provider> [key]",
		Short: "Store a provider's fallback key (read from stdin when omitted)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := knownProvider(args[0])
			if err != nil {
				return err
			}
			var key string
			if len(args) == 2 {
				key = args[1]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read key: %w", err)
				}
				key = line
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return fmt.Errorf("empty key for %s", name)
			}

			ks, err := openKeystore(currentSettings())
			if err != nil {
				return err
			}
			if err := ks.Set(name, key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored fallback key for %s (%s)\n", name, credential.Mask(key))
			return nil
		},
	}
}

func newKeysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored fallback keys (masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := openKeystore(currentSettings())
			if err != nil {
				return err
			}
			keys, err := ks.Load()
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no stored keys")
				return nil
			}
			names := make([]string, 0, len(keys))
			for name := range keys {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", name, credential.Mask(keys[name]))
			}
			return nil
		},
	}
}

func newKeysRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <provider>",
		Aliases: []string{"rm"},
		Short:   "Delete a stored fallback key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := openKeystore(currentSettings())
			if err != nil {
				return err
			}
			if err := ks.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed fallback key for %s\n", args[0])
			return nil
		},
	}
}

// knownProvider matches a provider name case-insensitively against the catalog.
func knownProvider(name string) (string, error) {
	for _, n := range provider.MustDefault().Names() {
		if strings.EqualFold(n, name) {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q", provider.ErrUnknownProvider, name)
}
