// Package serve implements the embed server command.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dimagi-rad/scout-widget/internal/authtoken"
	"github.com/dimagi-rad/scout-widget/internal/config"
	"github.com/dimagi-rad/scout-widget/internal/constants"
	"github.com/dimagi-rad/scout-widget/internal/embedserver"
	"github.com/dimagi-rad/scout-widget/internal/logging"
)

// Command creates the serve command.
func Command() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Scout embed server",
		Long: `Run the server hosting the embedded Scout application.

The server exposes:
  /embed/   The widget page and its message channel
  /health   Liveness plus the open session count

Configuration comes from a YAML file layered under SCOUT_* environment
variables. With auth.secret set, sessions must present a valid embed
session token or they stay in the authentication-required state.

Example:
  scout-widget serve
  scout-widget serve --config /etc/scout/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logConfig := logging.Config{
				Level:  cfg.Log.Level,
				Pretty: cfg.Log.Pretty,
			}
			logger := logging.New(logConfig)

			var tokens *authtoken.Manager
			if cfg.Auth.Secret != "" {
				tokens, err = authtoken.New(authtoken.Config{
					Secret: []byte(cfg.Auth.Secret),
					TTL:    cfg.Auth.TokenTTL,
				})
				if err != nil {
					return fmt.Errorf("failed to set up token verification: %w", err)
				}
			} else {
				logger.Warn().Msg("No auth secret configured; every embed session counts as authenticated")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigCh
				logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
				cancel()
			}()

			server := embedserver.New(embedserver.Config{
				Listen:           cfg.Server.Listen,
				AllowedEmbedders: cfg.Server.AllowedEmbedders,
				Tokens:           tokens,
				Logger:           logger,
			})
			if err := server.Start(ctx); err != nil {
				return fmt.Errorf("failed to start embed server: %w", err)
			}

			fmt.Printf("✓ Embed server running on %s\n", server.Addr())
			fmt.Printf("  Widget page at %s/embed/\n", cfg.Server.PublicOrigin)
			fmt.Println("\nPress Ctrl+C to stop")

			<-ctx.Done()

			if err := server.Stop(context.Background()); err != nil {
				return fmt.Errorf("failed to stop embed server: %w", err)
			}

			fmt.Println("✓ Embed server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", constants.ConfigFile, "Path to the configuration file")

	return cmd
}
