// Package errors provides utilities for error handling in Scout.
package errors

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// DeferClose closes closer and logs a failed close at warn level under msg.
// For defer statements, where a close error has nowhere else to go. A nil
// closer is a no-op.
func DeferClose(logger zerolog.Logger, closer io.Closer, msg string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn().Err(err).Msg(msg)
	}
}

// Must panics with msg and err if err is non-nil. Reserved for
// initialization paths where continuing would run with broken state.
func Must(err error, msg string) {
	if err != nil {
		panic(fmt.Sprintf("%s: %v", msg, err))
	}
}
