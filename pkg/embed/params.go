// Package embed implements the Scout-side half of the widget protocol:
// resolving rendering parameters from the embed URL and bridging lifecycle
// signals back to the host page.
package embed

import (
	"net/url"
	"strings"
)

// PathPrefix is the URL path under which the embedded surface is served.
// Embedded rendering is keyed off the path alone, never off who framed the
// page, so reloads and frame ancestry changes cannot flip it.
const PathPrefix = "/embed"

// Query parameter names recognized on embed URLs.
const (
	ParamMode   = "mode"
	ParamTenant = "tenant"
	ParamTheme  = "theme"
)

// Mode selects which Scout surface the embedded application renders.
type Mode string

const (
	// ModeMinimalChat renders the bare conversation surface.
	ModeMinimalChat Mode = "minimal-chat"

	// ModeChatWithArtifacts adds the artifact panel next to the chat.
	ModeChatWithArtifacts Mode = "chat-with-artifacts"

	// ModeFull renders the complete Scout workspace.
	ModeFull Mode = "full"
)

// DefaultMode applies when the host supplies no mode or an unknown one.
const DefaultMode = ModeMinimalChat

// Valid reports whether m names a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeMinimalChat, ModeChatWithArtifacts, ModeFull:
		return true
	}
	return false
}

// Theme selects the color scheme of the embedded application.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// DefaultTheme applies when the host supplies no theme or an unknown one.
const DefaultTheme = ThemeAuto

// Valid reports whether th names a known theme.
func (th Theme) Valid() bool {
	switch th {
	case ThemeLight, ThemeDark, ThemeAuto:
		return true
	}
	return false
}

// Params is the rendering configuration resolved from an embed URL.
type Params struct {
	// Mode is the surface to render. Never empty; unknown requests resolve
	// to DefaultMode.
	Mode Mode

	// Tenant is the opaque tenant identifier the host supplied, empty when
	// it supplied none. The widget protocol never interprets it.
	Tenant string

	// Theme is the color scheme. Never empty; unknown requests resolve to
	// DefaultTheme.
	Theme Theme

	// Embedded reports whether the URL addresses the embedded surface.
	Embedded bool
}

// ResolveParams derives rendering parameters from an embed URL. Unknown and
// missing values fall back to defaults; resolution never fails, so a
// hand-typed or truncated URL still renders something sensible.
func ResolveParams(u *url.URL) Params {
	q := u.Query()

	p := Params{
		Mode:     DefaultMode,
		Tenant:   q.Get(ParamTenant),
		Theme:    DefaultTheme,
		Embedded: IsEmbedPath(u.Path),
	}
	if m := Mode(q.Get(ParamMode)); m.Valid() {
		p.Mode = m
	}
	if th := Theme(q.Get(ParamTheme)); th.Valid() {
		p.Theme = th
	}
	return p
}

// IsEmbedPath reports whether path addresses the embedded surface.
func IsEmbedPath(path string) bool {
	return path == PathPrefix || strings.HasPrefix(path, PathPrefix+"/")
}
