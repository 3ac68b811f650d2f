// Package token implements the embed session token command.
package token

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dimagi-rad/scout-widget/internal/authtoken"
	"github.com/dimagi-rad/scout-widget/internal/config"
	"github.com/dimagi-rad/scout-widget/internal/constants"
)

// Command creates the token command.
func Command() *cobra.Command {
	var (
		configPath string
		secret     string
		tenant     string
		ttl        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an embed session token",
		Long: `Issue a signed embed session token for a tenant.

The embedded application presents the token on its embed URL; the embed
server verifies it before marking the session authenticated. The signing
secret comes from the configuration file or SCOUT_AUTH_SECRET unless
--secret overrides it.

Example:
  scout-widget token --tenant acme
  scout-widget token --tenant acme --ttl 1h --secret s3cret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				cfg, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				secret = cfg.Auth.Secret
				if ttl == 0 {
					ttl = cfg.Auth.TokenTTL
				}
			}
			if secret == "" {
				return fmt.Errorf("no signing secret: set auth.secret, SCOUT_AUTH_SECRET, or --secret")
			}

			tokens, err := authtoken.New(authtoken.Config{Secret: []byte(secret), TTL: ttl})
			if err != nil {
				return err
			}

			signed, err := tokens.Issue(tenant)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}

			fmt.Println(signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", constants.ConfigFile, "Path to the configuration file")
	cmd.Flags().StringVar(&secret, "secret", "", "Signing secret (overrides configuration)")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant the token is scoped to")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to auth.token_ttl)")

	return cmd
}
