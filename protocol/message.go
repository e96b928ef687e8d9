package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope discriminators carried in every frame's "type" field.
const (
	TypeReady      = "ready"
	TypeRequest    = "request"
	TypeResponse   = "response"
	TypeEvent      = "event"
	TypeEventReply = "eventReply"
)

// Ready is the first frame the extension sends on a fresh WebSocket
// connection. The server uses it to bind the socket to an awaited
// session. No acknowledgement frame is sent back.
type Ready struct {
	Type      string    `json:"type"`
	SessionID SessionID `json:"sessionId"`
	TabID     TabID     `json:"tabId"`
	FrameID   FrameID   `json:"frameId"`
}

// Request is a driver-to-extension command. Command names follow the
// "module.method" convention, for example "browsingContext.navigate".
type Request struct {
	Type    string         `json:"type"`
	ID      RequestID      `json:"id"`
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
}

// NewRequest builds a request envelope for the given command.
func NewRequest(id RequestID, command string, params map[string]any) *Request {
	return &Request{Type: TypeRequest, ID: id, Command: command, Params: params}
}

// ErrorInfo is the remote error payload of a failed response.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response answers exactly one Request, matched by ID. OK selects
// between the Result and Error branches.
type Response struct {
	Type   string          `json:"type"`
	ID     RequestID       `json:"id"`
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorInfo      `json:"error,omitempty"`
}

// Event is an unsolicited extension-to-driver notification. Reply
// bearing events (network interception) carry a nonzero EventID that
// the matching EventReply must echo.
type Event struct {
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	EventID EventID         `json:"eventId,omitempty"`
	Session SessionID       `json:"session"`
	Tab     TabID           `json:"tab,omitempty"`
	Frame   FrameID         `json:"frame,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ReplyAction is the verdict carried by an EventReply. Action is one of
// "allow", "block", "redirect", "modifyHeaders" or "modifyBody"; the
// remaining fields apply only to the action that names them.
type ReplyAction struct {
	Action  string            `json:"action"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// Allow is the default verdict for interception events.
func Allow() *ReplyAction { return &ReplyAction{Action: "allow"} }

// EventReply answers one reply-bearing Event, matched by EventID.
type EventReply struct {
	Type    string       `json:"type"`
	EventID EventID      `json:"eventId"`
	Action  *ReplyAction `json:"action"`
}

// NewEventReply builds a reply envelope for the given event.
func NewEventReply(id EventID, action *ReplyAction) *EventReply {
	if action == nil {
		action = Allow()
	}
	return &EventReply{Type: TypeEventReply, EventID: id, Action: action}
}

// Decode classifies a raw frame by its "type" field and unmarshals it
// into the matching envelope. The returned value is one of *Ready,
// *Request, *Response, *Event or *EventReply.
func Decode(raw []byte) (any, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	switch probe.Type {
	case TypeReady:
		var m Ready
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("malformed ready frame: %w", err)
		}
		return &m, nil
	case TypeRequest:
		var m Request
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("malformed request frame: %w", err)
		}
		return &m, nil
	case TypeResponse:
		var m Response
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("malformed response frame: %w", err)
		}
		return &m, nil
	case TypeEvent:
		var m Event
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("malformed event frame: %w", err)
		}
		return &m, nil
	case TypeEventReply:
		var m EventReply
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("malformed eventReply frame: %w", err)
		}
		return &m, nil
	default:
		return nil, fmt.Errorf("unknown frame type %q", probe.Type)
	}
}
