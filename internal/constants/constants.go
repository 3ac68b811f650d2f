// Package constants defines shared configuration constants.
package constants

var (
	ConfigFile = "config.yaml"

	DefaultDir = ".scout-widget"

	// DefaultListenAddr is where the embed server accepts connections.
	DefaultListenAddr = ":8090"

	// DefaultPublicOrigin is the origin embed URLs are built against when no
	// public origin is configured.
	DefaultPublicOrigin = "http://localhost:8090"

	DefaultLogLevel = "info"
)
