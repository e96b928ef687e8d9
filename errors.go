package vulpo

import (
	"errors"
	"fmt"
)

// Kind classifies an error by failure family. Remote failures map onto
// the same kinds as local ones so callers branch on kind, not origin.
type Kind string

const (
	KindConfig            Kind = "config"
	KindProfile           Kind = "profile"
	KindConnection        Kind = "connection"
	KindConnectionTimeout Kind = "connectionTimeout"
	KindConnectionClosed  Kind = "connectionClosed"
	KindUnknownCommand    Kind = "unknownCommand"
	KindInvalidArgument   Kind = "invalidArgument"
	KindProtocol          Kind = "protocol"
	KindElementNotFound   Kind = "elementNotFound"
	KindStaleElement      Kind = "staleElement"
	KindFrameNotFound     Kind = "frameNotFound"
	KindTabNotFound       Kind = "tabNotFound"
	KindScriptError       Kind = "scriptError"
	KindTimeout           Kind = "timeout"
	KindRequestTimeout    Kind = "requestTimeout"
	KindIO                Kind = "io"
	KindJSON              Kind = "json"
	KindWebSocket         Kind = "websocket"
)

// Error is the single error type returned by this library. It carries a
// Kind for programmatic branching and optionally wraps a lower-level
// cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsKind reports whether err is (or wraps) an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// KindOf returns the kind of err, or the empty string when err is not
// an Error from this library.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// remoteKinds maps remote error codes onto local kinds. Codes the
// extension invents that we do not know become protocol errors.
var remoteKinds = map[string]Kind{
	"unknownCommand":  KindUnknownCommand,
	"invalidArgument": KindInvalidArgument,
	"elementNotFound": KindElementNotFound,
	"staleElement":    KindStaleElement,
	"frameNotFound":   KindFrameNotFound,
	"tabNotFound":     KindTabNotFound,
	"scriptError":     KindScriptError,
	"timeout":         KindTimeout,
}

// remoteError converts a failed response's error payload into a typed
// error.
func remoteError(code, message string) *Error {
	kind, ok := remoteKinds[code]
	if !ok {
		return newError(KindProtocol, "remote error %s: %s", code, message)
	}
	return newError(kind, "%s", message)
}
