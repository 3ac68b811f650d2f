package widget

import "github.com/dimagi-rad/scout-widget/pkg/embed"

// Options configures one widget instance.
type Options struct {
	// Container receives the embedded frame. Accepts a Container
	// implementation or a selector string resolved through the SDK's
	// ContainerResolver. Required.
	Container any

	// Mode selects the Scout surface to embed. Forwarded verbatim; the
	// embedded side validates it and falls back to its default.
	Mode embed.Mode

	// Tenant is an opaque tenant identifier forwarded to the embedded
	// application. Optional.
	Tenant string

	// Theme selects the color scheme. Forwarded verbatim. Optional.
	Theme embed.Theme

	// OnReady fires once, when the embedded application reports that it is
	// authenticated and interactive. Optional.
	OnReady func(*Instance)

	// OnEvent receives every protocol message the instance accepts,
	// including the readiness signal. Optional.
	OnEvent func(inst *Instance, eventType string, payload map[string]any)
}
