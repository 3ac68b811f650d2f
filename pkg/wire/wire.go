// Package wire defines the message envelope exchanged between the host-side
// widget SDK and the embedded Scout application.
//
// Every protocol message is a JSON envelope carrying a namespaced type string
// and an optional payload object. Messages whose type does not carry the
// reserved prefix are not protocol messages and are ignored by both sides.
package wire

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Prefix is the reserved namespace for protocol message types. The host and
// embedded sides ignore any message whose type lacks this prefix, which keeps
// the channel inert to unrelated traffic sharing the same transport.
const Prefix = "scout:"

// Message types understood by the host SDK.
const (
	// TypeReady signals that the embedded application is authenticated and
	// interactive. Sent at most once per embed session.
	TypeReady = Prefix + "ready"

	// TypeAuthRequired signals that the embedded application requires user
	// authentication before it can become ready.
	TypeAuthRequired = Prefix + "auth-required"
)

// Message types understood by the embedded application.
const (
	// TypeSetTenant carries a tenant switch request in the "tenant" payload
	// field.
	TypeSetTenant = Prefix + "set-tenant"

	// TypeSetMode carries a display mode change request in the "mode" payload
	// field.
	TypeSetMode = Prefix + "set-mode"
)

// Payload field names used by the built-in message types.
const (
	FieldTenant = "tenant"
	FieldMode   = "mode"
)

// Envelope is the unit of communication on the messaging channel.
type Envelope struct {
	// Type is the namespaced message type, e.g. "scout:ready".
	Type string `json:"type"`

	// Payload carries optional message data. Nil for signal-only messages.
	Payload map[string]any `json:"payload,omitempty"`
}

// IsProtocolType reports whether t carries the reserved protocol prefix.
func IsProtocolType(t string) bool {
	return strings.HasPrefix(t, Prefix)
}

// IsProtocol reports whether the envelope is a protocol message.
func (e Envelope) IsProtocol() bool {
	return IsProtocolType(e.Type)
}

// Name returns the message type with the reserved prefix stripped,
// e.g. "ready" for "scout:ready". Non-protocol types are returned unchanged.
func (e Envelope) Name() string {
	return strings.TrimPrefix(e.Type, Prefix)
}

// PayloadString extracts a string payload field. It returns false when the
// field is absent or not a string.
func (e Envelope) PayloadString(key string) (string, bool) {
	v, ok := e.Payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Ready returns the readiness signal sent by the embedded application.
func Ready() Envelope {
	return Envelope{Type: TypeReady}
}

// AuthRequired returns the authentication-required signal sent by the
// embedded application.
func AuthRequired() Envelope {
	return Envelope{Type: TypeAuthRequired}
}

// SetTenant returns a tenant switch command for the embedded application.
func SetTenant(tenant string) Envelope {
	return Envelope{Type: TypeSetTenant, Payload: map[string]any{FieldTenant: tenant}}
}

// SetMode returns a display mode change command for the embedded application.
func SetMode(mode string) Envelope {
	return Envelope{Type: TypeSetMode, Payload: map[string]any{FieldMode: mode}}
}

// Event returns an application event envelope. The name is namespaced with
// the reserved prefix when it does not already carry it, so events emitted
// through the bridge always survive the host-side protocol check.
func Event(name string, payload map[string]any) Envelope {
	if !IsProtocolType(name) {
		name = Prefix + name
	}
	return Envelope{Type: name, Payload: payload}
}

// Encode serializes an envelope for transmission.
func Encode(e Envelope) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

// Decode parses data as a protocol envelope. It returns false when the data
// is not valid JSON, lacks a type, or the type does not carry the reserved
// prefix. Callers drop such messages without logging; arbitrary traffic on
// the transport is expected and not an error condition.
func Decode(data []byte) (Envelope, bool) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, false
	}
	if !e.IsProtocol() {
		return Envelope{}, false
	}
	return e, true
}
