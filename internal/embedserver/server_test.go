package embedserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimagi-rad/scout-widget/internal/authtoken"
	"github.com/dimagi-rad/scout-widget/pkg/embed"
	"github.com/dimagi-rad/scout-widget/pkg/frame"
	"github.com/dimagi-rad/scout-widget/pkg/widget"
	"github.com/dimagi-rad/scout-widget/pkg/wire"
)

const testEmbedderOrigin = "http://portal.example.com"

func startServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()

	cfg := Config{Listen: "127.0.0.1:0"}
	if mutate != nil {
		mutate(&cfg)
	}

	srv := New(cfg)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() {
		_ = srv.Stop(context.Background())
	})
	return srv
}

// openChannel dials the server's embed endpoint and hands back envelopes the
// session sends toward the host.
func openChannel(t *testing.T, srv *Server, query string) (frame.Endpoint, <-chan wire.Envelope) {
	t.Helper()

	rawURL := "ws://" + srv.Addr() + embed.PathPrefix + "/"
	if query != "" {
		rawURL += "?" + query
	}

	loaded := make(chan error, 1)
	dialer := &frame.Dialer{Origin: testEmbedderOrigin}
	ep, err := dialer.Open(context.Background(), rawURL, func(err error) { loaded <- err })
	require.NoError(t, err)
	t.Cleanup(func() { _ = ep.Close() })

	envelopes := make(chan wire.Envelope, 16)
	ep.Listen(func(m frame.Message) {
		if env, ok := wire.Decode(m.Data); ok {
			envelopes <- env
		}
	})

	select {
	case err := <-loaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for channel to open")
	}
	return ep, envelopes
}

func recvEnvelope(t *testing.T, ch <-chan wire.Envelope) wire.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for envelope")
		return wire.Envelope{}
	}
}

func postEnvelope(t *testing.T, ep frame.Endpoint, env wire.Envelope) {
	t.Helper()
	data, err := wire.Encode(env)
	require.NoError(t, err)
	require.NoError(t, ep.Post(data, frame.TargetAny))
}

func onlySession(t *testing.T, srv *Server) *session {
	t.Helper()
	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Len(t, srv.sessions, 1)
	for _, sess := range srv.sessions {
		return sess
	}
	return nil
}

func TestServer_ServesEmbedPage(t *testing.T) {
	srv := startServer(t, nil)

	resp, err := http.Get("http://" + srv.Addr() + embed.PathPrefix + "/?mode=full&theme=dark&tenant=acme")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `data-mode="full"`)
	assert.Contains(t, string(body), `data-theme="dark"`)
	assert.Contains(t, string(body), `data-tenant="acme"`)
}

func TestServer_PageCarriesFrameAncestors(t *testing.T) {
	srv := startServer(t, func(cfg *Config) {
		cfg.AllowedEmbedders = []string{testEmbedderOrigin}
	})

	req, err := http.NewRequest(http.MethodGet, "http://"+srv.Addr()+embed.PathPrefix+"/", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", testEmbedderOrigin)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "frame-ancestors "+testEmbedderOrigin, resp.Header.Get("Content-Security-Policy"))
}

func TestServer_OpenModeSignalsReady(t *testing.T) {
	srv := startServer(t, nil)

	_, envelopes := openChannel(t, srv, "mode=chat-with-artifacts&tenant=acme")

	env := recvEnvelope(t, envelopes)
	assert.Equal(t, wire.TypeReady, env.Type)

	sess := onlySession(t, srv)
	assert.Equal(t, "acme", sess.Tenant())
	assert.Equal(t, embed.ModeChatWithArtifacts, sess.Mode())
}

func TestServer_AuthRequiredWithoutToken(t *testing.T) {
	tokens, err := authtoken.New(authtoken.Config{Secret: []byte("test-secret")})
	require.NoError(t, err)

	srv := startServer(t, func(cfg *Config) {
		cfg.Tokens = tokens
	})

	_, envelopes := openChannel(t, srv, "tenant=acme")

	env := recvEnvelope(t, envelopes)
	assert.Equal(t, wire.TypeAuthRequired, env.Type)
}

func TestServer_AuthenticatesWithToken(t *testing.T) {
	tokens, err := authtoken.New(authtoken.Config{Secret: []byte("test-secret")})
	require.NoError(t, err)

	srv := startServer(t, func(cfg *Config) {
		cfg.Tokens = tokens
	})

	token, err := tokens.Issue("acme")
	require.NoError(t, err)

	query := url.Values{"tenant": {"acme"}, "token": {token}}.Encode()
	_, envelopes := openChannel(t, srv, query)

	env := recvEnvelope(t, envelopes)
	assert.Equal(t, wire.TypeReady, env.Type)
}

func TestServer_RejectsTokenForOtherTenant(t *testing.T) {
	tokens, err := authtoken.New(authtoken.Config{Secret: []byte("test-secret")})
	require.NoError(t, err)

	srv := startServer(t, func(cfg *Config) {
		cfg.Tokens = tokens
	})

	token, err := tokens.Issue("rival")
	require.NoError(t, err)

	query := url.Values{"tenant": {"acme"}, "token": {token}}.Encode()
	_, envelopes := openChannel(t, srv, query)

	env := recvEnvelope(t, envelopes)
	assert.Equal(t, wire.TypeAuthRequired, env.Type)
}

func TestServer_AppliesHostCommands(t *testing.T) {
	srv := startServer(t, nil)

	ep, envelopes := openChannel(t, srv, "tenant=acme")
	recvEnvelope(t, envelopes) // ready

	sess := onlySession(t, srv)

	postEnvelope(t, ep, wire.SetTenant("globex"))
	assert.Eventually(t, func() bool {
		return sess.Tenant() == "globex"
	}, 5*time.Second, 10*time.Millisecond)

	postEnvelope(t, ep, wire.SetMode(string(embed.ModeFull)))
	assert.Eventually(t, func() bool {
		return sess.Mode() == embed.ModeFull
	}, 5*time.Second, 10*time.Millisecond)

	// Invalid mode values leave the session untouched.
	postEnvelope(t, ep, wire.SetMode("cinema"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, embed.ModeFull, sess.Mode())
}

func TestServer_EnforcesEmbedderAllowlist(t *testing.T) {
	srv := startServer(t, func(cfg *Config) {
		cfg.AllowedEmbedders = []string{testEmbedderOrigin}
	})

	wsURL := "ws://" + srv.Addr() + embed.PathPrefix + "/"

	t.Run("allowed origin connects", func(t *testing.T) {
		header := http.Header{"Origin": []string{testEmbedderOrigin}}
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
		require.NoError(t, err)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		_ = conn.Close()
	})

	t.Run("unknown origin is rejected", func(t *testing.T) {
		header := http.Header{"Origin": []string{"http://evil.example.com"}}
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
		require.Error(t, err)
		require.Nil(t, conn)
		if resp != nil {
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			resp.Body.Close()
		}
	})

	t.Run("missing origin is rejected", func(t *testing.T) {
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.Error(t, err)
		require.Nil(t, conn)
		if resp != nil {
			resp.Body.Close()
		}
	})
}

func TestServer_SessionLifecycle(t *testing.T) {
	srv := startServer(t, nil)

	ep, envelopes := openChannel(t, srv, "")
	recvEnvelope(t, envelopes) // ready

	assert.Equal(t, 1, srv.SessionCount())

	require.NoError(t, ep.Close())
	assert.Eventually(t, func() bool {
		return srv.SessionCount() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestServer_Health(t *testing.T) {
	srv := startServer(t, nil)

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status         string `json:"status"`
		ActiveSessions int    `json:"active_sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 0, health.ActiveSessions)
}

func TestServer_WidgetEndToEnd(t *testing.T) {
	srv := startServer(t, nil)

	sdk, err := widget.New(widget.Config{
		EmbedOrigin: "http://" + srv.Addr(),
		HostOrigin:  testEmbedderOrigin,
	})
	require.NoError(t, err)
	defer sdk.Destroy()

	ready := make(chan *widget.Instance, 1)
	inst := sdk.Init(widget.Options{
		Container: widget.NopContainer(),
		Tenant:    "acme",
		Mode:      embed.ModeFull,
		OnReady:   func(i *widget.Instance) { ready <- i },
	})

	select {
	case got := <-ready:
		assert.Same(t, inst, got)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for widget to become ready")
	}
	assert.True(t, inst.Ready())

	sess := onlySession(t, srv)
	require.NoError(t, inst.SetTenant("globex"))
	assert.Eventually(t, func() bool {
		return sess.Tenant() == "globex"
	}, 5*time.Second, 10*time.Millisecond)

	inst.Destroy()
	assert.Eventually(t, func() bool {
		return srv.SessionCount() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestServer_StopClosesSessions(t *testing.T) {
	cfg := Config{Listen: "127.0.0.1:0"}
	srv := New(cfg)
	require.NoError(t, srv.Start(context.Background()))

	ep, envelopes := openChannel(t, srv, "")
	recvEnvelope(t, envelopes) // ready

	require.NoError(t, srv.Stop(context.Background()))

	// The session side closed the connection; the host endpoint notices.
	assert.Eventually(t, func() bool {
		err := ep.Post([]byte(`{"type":"scout:set-tenant"}`), frame.TargetAny)
		return err != nil
	}, 5*time.Second, 10*time.Millisecond)

	assert.EqualError(t, srv.Stop(context.Background()), "embed server not running")
}
