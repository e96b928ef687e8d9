package vulpo

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vulpo/vulpo/protocol"
)

const (
	defaultRequestTimeout = 60 * time.Second
	interceptReplyBudget  = 5 * time.Second
	maxPendingRequests    = 100
)

// EventHandler observes events for one subscription.
type EventHandler func(ev *protocol.Event)

// InterceptHandler decides the fate of one reply-bearing event. A nil
// return counts as allow.
type InterceptHandler func(ev *protocol.Event) *protocol.ReplyAction

type pendingRequest struct {
	resolve chan *protocol.Response
	reject  chan error
}

type subscription struct {
	seq       uint64         // registration order, for deterministic dispatch
	event     string         // event name filter
	tab       protocol.TabID // zero matches any tab
	handler   EventHandler
	intercept InterceptHandler
}

// Conn is one session's duplex channel to the extension. A single read
// loop dispatches inbound frames; outbound writes are serialized by a
// write mutex. Requests are correlated to responses through a pending
// table keyed by request id.
type Conn struct {
	sessionID protocol.SessionID
	tabID     protocol.TabID
	frameID   protocol.FrameID

	ws      *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[protocol.RequestID]*pendingRequest
	subs    map[string]*subscription
	subSeq  uint64
	closed  bool

	nextID  atomic.Uint64
	done    chan struct{}
	onClose func(protocol.SessionID)
	logger  *slog.Logger
}

func newConn(ready *protocol.Ready, ws *websocket.Conn, logger *slog.Logger) *Conn {
	return &Conn{
		sessionID: ready.SessionID,
		tabID:     ready.TabID,
		frameID:   ready.FrameID,
		ws:        ws,
		pending:   make(map[protocol.RequestID]*pendingRequest),
		subs:      make(map[string]*subscription),
		done:      make(chan struct{}),
		logger:    logger.With("session", ready.SessionID),
	}
}

// SessionID returns the session this connection serves.
func (c *Conn) SessionID() protocol.SessionID { return c.sessionID }

// Done is closed when the connection is torn down.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Send issues a command and waits for its response. If ctx carries no
// deadline a 60 second default applies. Cancelling ctx abandons the
// wait and erases the pending entry; a late reply is dropped by the
// read loop.
func (c *Conn) Send(ctx context.Context, command string, params map[string]any) (json.RawMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultRequestTimeout)
		defer cancel()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, newError(KindConnectionClosed, "session %s is closed", c.sessionID)
	}
	if len(c.pending) >= maxPendingRequests {
		c.mu.Unlock()
		return nil, newError(KindConnection, "session %s has too many in-flight requests", c.sessionID)
	}
	id := protocol.RequestID(c.nextID.Add(1))
	pr := &pendingRequest{
		resolve: make(chan *protocol.Response, 1),
		reject:  make(chan error, 1),
	}
	c.pending[id] = pr
	c.mu.Unlock()

	if err := c.writeJSON(protocol.NewRequest(id, command, params)); err != nil {
		c.dropPending(id)
		return nil, wrapError(KindWebSocket, err, "write %s", command)
	}

	select {
	case resp := <-pr.resolve:
		if !resp.OK {
			if resp.Error == nil {
				return nil, newError(KindProtocol, "%s failed without error payload", command)
			}
			return nil, remoteError(resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case err := <-pr.reject:
		return nil, err
	case <-ctx.Done():
		c.dropPending(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, newError(KindRequestTimeout, "%s got no response in time", command)
		}
		return nil, ctx.Err()
	}
}

func (c *Conn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *Conn) dropPending(id protocol.RequestID) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// subscribe registers a handler for events of the given name, optionally
// filtered by tab, and returns a local registration key.
func (c *Conn) subscribe(event string, tab protocol.TabID, h EventHandler) string {
	return c.register(&subscription{event: event, tab: tab, handler: h})
}

// subscribeReply registers a handler for reply-bearing events. When
// several intercept registrations match one event, the earliest
// registration supplies the verdict.
func (c *Conn) subscribeReply(event string, tab protocol.TabID, h InterceptHandler) string {
	return c.register(&subscription{event: event, tab: tab, intercept: h})
}

func (c *Conn) register(sub *subscription) string {
	key := uuid.NewString()
	c.mu.Lock()
	c.subSeq++
	sub.seq = c.subSeq
	c.subs[key] = sub
	c.mu.Unlock()
	return key
}

// unsubscribe removes a local registration. Unknown keys are ignored.
func (c *Conn) unsubscribe(key string) {
	c.mu.Lock()
	delete(c.subs, key)
	c.mu.Unlock()
}

func (c *Conn) readLoop() {
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			c.closeWith(wrapError(KindConnectionClosed, err, "session %s lost", c.sessionID))
			return
		}
		msg, err := protocol.Decode(raw)
		if err != nil {
			c.logger.Debug("dropping malformed frame", "error", err)
			continue
		}
		switch m := msg.(type) {
		case *protocol.Response:
			c.handleResponse(m)
		case *protocol.Event:
			c.handleEvent(m)
		default:
			c.logger.Debug("dropping unexpected frame", "frame", m)
		}
	}
}

func (c *Conn) handleResponse(resp *protocol.Response) {
	c.mu.Lock()
	pr, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("dropping late reply", "id", resp.ID)
		return
	}
	pr.resolve <- resp
}

// handleEvent dispatches one inbound event. Every matched plain handler
// runs, in registration order, whether or not the event demands a
// reply. For reply-bearing events the earliest registered intercept
// subscription decides the verdict.
func (c *Conn) handleEvent(ev *protocol.Event) {
	c.mu.Lock()
	var matched []*subscription
	for _, sub := range c.subs {
		if sub.event != ev.Event {
			continue
		}
		if sub.tab != 0 && ev.Tab != 0 && sub.tab != ev.Tab {
			continue
		}
		matched = append(matched, sub)
	}
	c.mu.Unlock()
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	for _, sub := range matched {
		if sub.handler != nil {
			sub.handler(ev)
		}
	}
	if ev.EventID != 0 {
		var h InterceptHandler
		for _, sub := range matched {
			if sub.intercept != nil {
				h = sub.intercept
				break
			}
		}
		c.replyTo(ev, h)
	}
}

// replyTo answers a reply-bearing event. The handler runs in its own
// goroutine so a stuck callback cannot stall the read loop; after the
// reply budget elapses the event is answered with allow and the late
// result is discarded. A panicking handler also yields allow.
func (c *Conn) replyTo(ev *protocol.Event, h InterceptHandler) {
	action := protocol.Allow()
	if h != nil {
		ch := make(chan *protocol.ReplyAction, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("intercept handler panicked", "event", ev.Event, "panic", r)
					ch <- nil
				}
			}()
			ch <- h(ev)
		}()
		timer := time.NewTimer(interceptReplyBudget)
		select {
		case a := <-ch:
			timer.Stop()
			if a != nil {
				action = a
			}
		case <-timer.C:
			c.logger.Warn("intercept handler missed reply budget, allowing", "event", ev.Event)
		}
	}
	if err := c.writeJSON(protocol.NewEventReply(ev.EventID, action)); err != nil {
		c.logger.Error("event reply write failed", "event", ev.Event, "error", err)
	}
}

// Close tears the connection down. In-flight requests fail with
// ConnectionClosed. Closing twice is a no-op.
func (c *Conn) Close() error {
	c.closeWith(newError(KindConnectionClosed, "session %s closed", c.sessionID))
	return nil
}

func (c *Conn) closeWith(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[protocol.RequestID]*pendingRequest)
	c.subs = make(map[string]*subscription)
	c.mu.Unlock()

	for _, pr := range pending {
		pr.reject <- cause
	}
	c.ws.Close()
	close(c.done)
	if c.onClose != nil {
		c.onClose(c.sessionID)
	}
}
