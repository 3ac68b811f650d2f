// Package cli wires up the scout-widget command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/dimagi-rad/scout-widget/internal/cli/demo"
	"github.com/dimagi-rad/scout-widget/internal/cli/serve"
	"github.com/dimagi-rad/scout-widget/internal/cli/token"
	"github.com/dimagi-rad/scout-widget/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "scout-widget",
	Short: "Scout embeddable widget toolkit",
	Long: `Embed Scout into any host application.

The toolkit has two halves:
- Embed server: serves the embedded Scout application and its message
  channel, enforcing the embedder allowlist and session authentication
- Widget SDK: the host-side library (pkg/widget) that embeds instances,
  relays commands, and tracks readiness

Common workflows:
  scout-widget serve                Run the embed server
  scout-widget demo                 Drive a widget against a local server
  scout-widget token --tenant t     Issue an embed session token`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(serve.Command())
	rootCmd.AddCommand(demo.Command())
	rootCmd.AddCommand(token.Command())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			v := version.Get()
			cmd.Printf("scout-widget version %s\n", v.Version)
			cmd.Printf("Git commit: %s\n", v.GitCommit)
			cmd.Printf("Build date: %s\n", v.BuildDate)
			cmd.Printf("Go version: %s\n", v.GoVersion)
		},
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
