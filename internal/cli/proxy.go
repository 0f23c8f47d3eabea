package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/neurorouter"
	"github.com/ppiankov/notterun/internal/config"
	"github.com/ppiankov/notterun/internal/credential"
	"github.com/ppiankov/notterun/internal/logging"
	"github.com/ppiankov/notterun/internal/provider"
)

const defaultProxyListen = ":4000"

func newProxyCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Serve the provider catalog behind one Responses API endpoint",
		Long: "Starts a Responses API → Chat Completions proxy. Every catalog model with an endpoint and\n" +
			"a usable credential is routed by its full id (groq/llama-3.3-70b-versatile) and by its\n" +
			"bare API name; \"default\" routes to the configured default model.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := currentSettings()
			if !cmd.Flags().Changed("listen") && s.Proxy != nil && s.Proxy.Listen != "" {
				listen = s.Proxy.Listen
			}
			if _, err := config.LoadEnv("."); err != nil {
				return err
			}
			reg, err := buildRegistry(s)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr, stopProxy, err := startProxy(reg, s.Model(), listen)
			if err != nil {
				return err
			}
			defer stopProxy()

			fmt.Fprintf(cmd.OutOrStdout(), "proxy listening on %s (ctrl+c to stop)\n", addr)
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", defaultProxyListen, "listen address")
	return cmd
}

// startProxy launches the proxy and returns its address and a stop function.
func startProxy(reg *provider.Registry, defaultModel, listen string) (string, func(), error) {
	log := logging.Component("proxy")

	cfg, skipped := buildProxyConfig(reg, defaultModel, listen, os.Getenv)
	for _, name := range skipped {
		log.Warn().Str("provider", name).Msg("no endpoint or credential, not proxied")
	}
	if len(cfg.Targets) == 0 {
		return "", nil, fmt.Errorf("proxy: no provider has both an endpoint and a credential")
	}

	srv := neurorouter.NewProxy(cfg)
	addr, err := srv.Start()
	if err != nil {
		return "", nil, fmt.Errorf("start proxy: %w", err)
	}
	log.Info().Str("addr", addr).Int("targets", len(cfg.Targets)).Msg("proxy started")

	return addr, func() {
		if err := srv.Stop(); err != nil {
			log.Warn().Err(err).Msg("proxy stop error")
		}
	}, nil
}

// buildProxyConfig maps every model of every usable provider to a proxy
// target. Providers lacking an endpoint or a credential are returned in
// skipped.
func buildProxyConfig(reg *provider.Registry, defaultModel, listen string, getenv func(string) string) (neurorouter.ProxyConfig, []string) {
	cfg := neurorouter.ProxyConfig{
		Listen:  listen,
		Targets: make(map[string]neurorouter.Target),
	}
	if cfg.Listen == "" {
		cfg.Listen = defaultProxyListen
	}

	var skipped []string
	for _, d := range reg.List() {
		key, src := credential.Resolve(d, "")
		if src == credential.SourceNone {
			key = getenv(d.CredentialVar)
		}
		if d.BaseURL == "" || key == "" {
			skipped = append(skipped, d.Name)
			continue
		}
		target := neurorouter.Target{BaseURL: d.BaseURL, APIKey: key}
		for _, m := range d.Models {
			cfg.Targets[m] = target
			if _, taken := cfg.Targets[provider.APIModel(m)]; !taken {
				cfg.Targets[provider.APIModel(m)] = target
			}
			if m == defaultModel {
				cfg.Targets["default"] = target
			}
		}
	}
	return cfg, skipped
}
