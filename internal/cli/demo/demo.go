// Package demo implements an interactive host page that embeds a widget
// against a local embed server.
package demo

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dimagi-rad/scout-widget/internal/authtoken"
	"github.com/dimagi-rad/scout-widget/internal/embedserver"
	"github.com/dimagi-rad/scout-widget/internal/retry"
	"github.com/dimagi-rad/scout-widget/pkg/widget"
)

// demoHostOrigin is the identity the demo presents as the embedding page.
const demoHostOrigin = "http://demo.localhost"

// Command creates the demo command.
func Command() *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Drive a widget against a local embed server",
		Long: `Run a self-contained demo: a local embed server plus an interactive
host that embeds a Scout widget into it.

The demo plays the host page. It initializes a widget, renders what the
container shows, and relays commands over the message channel:

  t  switch tenant        m  cycle display mode
  d  destroy the widget   i  embed a new widget
  q  quit

With --secret the local server requires embed session tokens. The demo
host does not present one, so the widget parks in the
authentication-required state instead of becoming ready.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), secret)
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "Require session tokens on the local server to show the auth flow")

	return cmd
}

// app holds what outlives individual widget instances: the local server, the
// SDK, and the running program that callbacks feed messages into.
type app struct {
	server      *embedserver.Server
	sdk         *widget.SDK
	program     *tea.Program
	authEnabled bool
}

func (a *app) send(msg tea.Msg) {
	if a.program != nil {
		a.program.Send(msg)
	}
}

// tuiContainer renders the widget's mount point inside the demo instead of
// a DOM node: each phase the SDK drives shows up as a panel state.
type tuiContainer struct {
	app *app
}

func (c tuiContainer) ShowLoading() {
	c.app.send(containerMsg{phase: phaseLoading})
}

func (c tuiContainer) ShowFrame(url string) {
	c.app.send(containerMsg{phase: phaseFrame, detail: url})
}

func (c tuiContainer) ShowError(message string) {
	c.app.send(containerMsg{phase: phaseError, detail: message})
}

func (c tuiContainer) Clear() {
	c.app.send(containerMsg{phase: phaseCleared})
}

func run(ctx context.Context, secret string) error {
	// The TUI owns the terminal, so server and SDK diagnostics are dropped.
	logger := zerolog.Nop()

	var tokens *authtoken.Manager
	if secret != "" {
		var err error
		tokens, err = authtoken.New(authtoken.Config{Secret: []byte(secret)})
		if err != nil {
			return err
		}
	}

	server := embedserver.New(embedserver.Config{
		Listen: "127.0.0.1:0",
		Tokens: tokens,
		Logger: logger,
	})
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start local embed server: %w", err)
	}
	defer func() { _ = server.Stop(context.Background()) }()

	if err := waitHealthy(ctx, server.Addr()); err != nil {
		return fmt.Errorf("embed server never became healthy: %w", err)
	}

	sdk, err := widget.New(widget.Config{
		EmbedOrigin: "http://" + server.Addr(),
		HostOrigin:  demoHostOrigin,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer sdk.Destroy()

	a := &app{server: server, sdk: sdk, authEnabled: tokens != nil}

	p := tea.NewProgram(newModel(a), tea.WithAltScreen())
	a.program = p

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("demo failed: %w", err)
	}
	return nil
}

// waitHealthy polls the health endpoint until the server answers.
func waitHealthy(ctx context.Context, addr string) error {
	url := "http://" + addr + "/health"
	client := &http.Client{Timeout: time.Second}

	return retry.Do(ctx, retry.Config{
		MaxRetries:     10,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     time.Second,
	}, func() error {
		resp, err := client.Get(url)
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("health endpoint returned %d", resp.StatusCode)
		}
		return nil
	}, nil)
}
