// Package widget is the host-page SDK for embedding Scout.
//
// A host creates an SDK with New, then calls Init once per placement. Each
// Init resolves a container, computes the embed URL from the whitelisted
// options, opens a frame boundary toward the Scout deployment, and returns
// an Instance the host can command and must eventually Destroy. Inbound
// messages are accepted only from the configured embed origin.
//
// The package-level Init, Destroy, and Install mirror the page-global object
// script-tag hosts integrate against: commands issued before the SDK is
// installed are queued by a bootstrap stub and replayed in order once
// Install runs.
package widget

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/dimagi-rad/scout-widget/pkg/embed"
	"github.com/dimagi-rad/scout-widget/pkg/frame"
)

// Config contains SDK configuration.
type Config struct {
	// EmbedOrigin is the origin serving the Scout application, e.g.
	// "https://scout.example.com". Required. Messages from any other origin
	// are ignored.
	EmbedOrigin string

	// HostOrigin identifies the embedding page toward the embed server.
	// Used by the default opener; optional.
	HostOrigin string

	// Opener establishes frame boundaries. Defaults to a WebSocket Dialer
	// presenting HostOrigin.
	Opener frame.Opener

	// Containers resolves selector strings passed in Options.Container.
	// Optional; hosts that pass Container implementations directly do not
	// need one.
	Containers ContainerResolver

	// Logger for SDK diagnostics. The zero value disables logging.
	Logger zerolog.Logger
}

// SDK embeds Scout widgets into a host application.
type SDK struct {
	cfg    Config
	origin string
	opener frame.Opener
	reg    *registry
	logger zerolog.Logger
}

// New validates the configuration and returns an SDK.
func New(cfg Config) (*SDK, error) {
	origin, err := normalizeOrigin(cfg.EmbedOrigin)
	if err != nil {
		return nil, fmt.Errorf("invalid embed origin: %w", err)
	}

	opener := cfg.Opener
	if opener == nil {
		opener = &frame.Dialer{Origin: cfg.HostOrigin}
	}

	return &SDK{
		cfg:    cfg,
		origin: origin,
		opener: opener,
		reg:    newRegistry(),
		logger: cfg.Logger.With().Str("component", "widget").Logger(),
	}, nil
}

// normalizeOrigin reduces a URL to its origin and rejects anything that
// cannot serve as a trust anchor for the channel.
func normalizeOrigin(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("embed origin is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("origin scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("origin has no host")
	}
	return u.Scheme + "://" + u.Host, nil
}

// Origin returns the normalized embed origin this SDK trusts.
func (s *SDK) Origin() string {
	return s.origin
}

// Init creates a widget instance under the container named in opts. Init
// never fails the caller: configuration problems are logged with guidance
// and surface as an instance already in the error state, so host pages keep
// a uniform call site.
func (s *SDK) Init(opts Options) *Instance {
	inst := &Instance{
		id:    nextInstanceID(),
		sdk:   s,
		opts:  opts,
		state: StateConstructing,
	}
	inst.logger = s.logger.With().Int64("instance_id", inst.id).Logger()

	container, err := s.resolveContainer(opts.Container)
	if err != nil {
		inst.logger.Error().Err(err).Msg("cannot embed widget")
		inst.state = StateError
		s.reg.add(inst)
		return inst
	}
	inst.container = container

	container.ShowLoading()
	inst.url = s.embedURL(opts)

	ep, err := s.opener.Open(context.Background(), inst.url, inst.onLoad)
	if err != nil {
		inst.logger.Error().Err(err).Str("url", inst.url).Msg("failed to open embed frame")
		container.ShowError("Scout is unavailable right now.")
		inst.mu.Lock()
		inst.state = StateError
		inst.mu.Unlock()
		s.reg.add(inst)
		return inst
	}

	// The listener attaches before the frame replaces the placeholder, so
	// even an instantly-ready embed cannot signal into the void.
	inst.mu.Lock()
	inst.endpoint = ep
	inst.removeListener = ep.Listen(inst.handleMessage)
	inst.state = StateEmbedded
	inst.mu.Unlock()

	container.ShowFrame(inst.url)
	s.reg.add(inst)

	inst.logger.Debug().Str("url", inst.url).Msg("widget embedded")
	return inst
}

func (s *SDK) resolveContainer(ref any) (Container, error) {
	switch v := ref.(type) {
	case nil:
		return nil, fmt.Errorf("container is required: pass a selector string or a widget.Container")
	case Container:
		return v, nil
	case string:
		if s.cfg.Containers == nil {
			return nil, fmt.Errorf("container selector %q given but no ContainerResolver is configured", v)
		}
		c, err := s.cfg.Containers.Resolve(v)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve container %q: %w", v, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported container reference type %T", ref)
	}
}

// embedURL serializes the whitelisted options onto the embed surface URL.
// Omitted options are omitted from the query so the embedded side applies
// its own defaults.
func (s *SDK) embedURL(opts Options) string {
	q := url.Values{}
	if opts.Mode != "" {
		q.Set(embed.ParamMode, string(opts.Mode))
	}
	if opts.Tenant != "" {
		q.Set(embed.ParamTenant, opts.Tenant)
	}
	if opts.Theme != "" {
		q.Set(embed.ParamTheme, string(opts.Theme))
	}

	u := s.origin + embed.PathPrefix + "/"
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// Get returns a live instance by ID.
func (s *SDK) Get(id int64) (*Instance, bool) {
	return s.reg.get(id)
}

// Instances returns the live instances in creation order.
func (s *SDK) Instances() []*Instance {
	return s.reg.list()
}

// Count returns the number of live instances.
func (s *SDK) Count() int {
	return s.reg.count()
}

// Destroy tears down every live instance. Hosts call it on page teardown.
func (s *SDK) Destroy() {
	for _, inst := range s.reg.list() {
		inst.Destroy()
	}
}
