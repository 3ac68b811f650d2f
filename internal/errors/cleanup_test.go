package errors

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestDeferClose(t *testing.T) {
	t.Run("nil closer is a no-op", func(t *testing.T) {
		var buf bytes.Buffer
		DeferClose(zerolog.New(&buf), nil, "close channel")
		if buf.Len() != 0 {
			t.Fatalf("unexpected log output: %s", buf.String())
		}
	})

	t.Run("clean close logs nothing", func(t *testing.T) {
		var buf bytes.Buffer
		called := false
		DeferClose(zerolog.New(&buf), closerFunc(func() error {
			called = true
			return nil
		}), "close channel")
		if !called {
			t.Fatal("Close was not called")
		}
		if buf.Len() != 0 {
			t.Fatalf("unexpected log output: %s", buf.String())
		}
	})

	t.Run("failed close logs a warning with the message", func(t *testing.T) {
		var buf bytes.Buffer
		DeferClose(zerolog.New(&buf), closerFunc(func() error {
			return errors.New("connection reset")
		}), "close channel")

		out := buf.String()
		if !strings.Contains(out, `"level":"warn"`) {
			t.Errorf("expected warn level, got: %s", out)
		}
		if !strings.Contains(out, "close channel") {
			t.Errorf("expected log message, got: %s", out)
		}
		if !strings.Contains(out, "connection reset") {
			t.Errorf("expected close error in log, got: %s", out)
		}
	})
}

func TestMust(t *testing.T) {
	t.Run("nil error passes", func(t *testing.T) {
		Must(nil, "wire listener")
	})

	t.Run("panic carries message and error", func(t *testing.T) {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("expected panic")
			}
			s, ok := r.(string)
			if !ok {
				t.Fatalf("panic value is %T, want string", r)
			}
			if !strings.Contains(s, "wire listener") || !strings.Contains(s, "bad origin") {
				t.Errorf("panic message = %q", s)
			}
		}()
		Must(errors.New("bad origin"), "wire listener")
	})
}
