// Package protocol defines the JSON wire format spoken between the
// driver and the Firefox extension. Every message on the socket is one
// of four envelopes (Request, Response, Event, EventReply) discriminated
// by a "type" field. The package is pure data: it has no transport or
// browser dependencies so both the connection layer and tests can share
// it.
package protocol

import "strconv"

// SessionID identifies one browser window's WebSocket session. The
// driver allocates these from a process-wide counter before launching
// Firefox, and the extension echoes the id back in its READY frame.
type SessionID uint64

func (s SessionID) String() string { return strconv.FormatUint(uint64(s), 10) }

// RequestID correlates a Request with its Response. Ids are allocated
// per connection from a monotonic counter and never reused within a
// connection's lifetime.
type RequestID uint64

// TabID is the extension-assigned identifier of a browser tab.
type TabID int64

// FrameID identifies a frame within a tab. Zero is the top frame.
type FrameID int64

// ElementID is an opaque handle to a DOM element held by the extension.
// Handles go stale when the document navigates away.
type ElementID string

// SubscriptionID identifies an event subscription minted by the
// extension, for example an element watch or a network intercept.
type SubscriptionID string

// InterceptID identifies a registered network interception.
type InterceptID string

// EventID correlates a reply-bearing event with its EventReply. Only
// interception events carry one.
type EventID uint64
