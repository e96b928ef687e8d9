package vulpo

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/vulpo/vulpo/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPool(t *testing.T) *Pool {
	t.Helper()
	p, err := newPool(testLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		p.shutdown(ctx)
	})
	return p
}

// fakeExtension plays the browser extension side of the protocol: it
// dials the pool, announces READY and answers requests from registered
// handlers. Unhandled commands get an empty ok response; a handler
// returning nil suppresses the response entirely.
type fakeExtension struct {
	t  *testing.T
	ws *websocket.Conn

	mu       sync.Mutex
	handlers map[string]fakeHandler

	writeMu sync.Mutex

	requests chan *protocol.Request
	replies  chan *protocol.EventReply
	done     chan struct{}
}

type fakeHandler func(req *protocol.Request) *protocol.Response

func okResult(id protocol.RequestID, result any) *protocol.Response {
	raw, _ := json.Marshal(result)
	return &protocol.Response{Type: protocol.TypeResponse, ID: id, OK: true, Result: raw}
}

func errResult(id protocol.RequestID, code, message string) *protocol.Response {
	return &protocol.Response{
		Type:  protocol.TypeResponse,
		ID:    id,
		OK:    false,
		Error: &protocol.ErrorInfo{Code: code, Message: message},
	}
}

// dialFake connects to the pool as the extension for sid and starts
// serving requests. The reservation must already exist or the server
// will reject the socket.
func dialFake(t *testing.T, p *Pool, sid protocol.SessionID, tab protocol.TabID) *fakeExtension {
	t.Helper()

	ws, _, err := websocket.DefaultDialer.Dial(p.WSURL(), nil)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(&protocol.Ready{Type: protocol.TypeReady, SessionID: sid, TabID: tab}))

	f := &fakeExtension{
		t:        t,
		ws:       ws,
		handlers: make(map[string]fakeHandler),
		requests: make(chan *protocol.Request, 32),
		replies:  make(chan *protocol.EventReply, 32),
		done:     make(chan struct{}),
	}
	go f.serve()
	t.Cleanup(f.close)
	return f
}

// startSession reserves sid, dials the pool as the extension and
// returns both ends once the handshake completes.
func startSession(t *testing.T, p *Pool, sid protocol.SessionID, tab protocol.TabID) (*Conn, *fakeExtension) {
	t.Helper()

	slot, err := p.reserve(sid)
	require.NoError(t, err)

	f := dialFake(t, p, sid, tab)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := p.await(ctx, sid, slot)
	require.NoError(t, err)
	return conn, f
}

// awaitReservation blocks until the pool holds an acceptance slot for
// sid, so a fake extension can dial without racing the spawn sequence.
func awaitReservation(t *testing.T, p *Pool, sid protocol.SessionID) {
	t.Helper()
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		_, ok := p.awaited[sid]
		return ok
	}, 5*time.Second, 10*time.Millisecond)
}

func (f *fakeExtension) handle(command string, fn fakeHandler) {
	f.mu.Lock()
	f.handlers[command] = fn
	f.mu.Unlock()
}

// silence registers a handler that never answers the command.
func (f *fakeExtension) silence(command string) {
	f.handle(command, func(*protocol.Request) *protocol.Response { return nil })
}

func (f *fakeExtension) serve() {
	defer close(f.done)
	for {
		_, raw, err := f.ws.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.Decode(raw)
		if err != nil {
			continue
		}
		switch m := msg.(type) {
		case *protocol.Request:
			f.requests <- m
			f.mu.Lock()
			fn := f.handlers[m.Command]
			f.mu.Unlock()
			resp := okResult(m.ID, map[string]any{})
			if fn != nil {
				resp = fn(m)
			}
			if resp != nil {
				f.write(resp)
			}
		case *protocol.EventReply:
			f.replies <- m
		}
	}
}

func (f *fakeExtension) write(v any) {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	if err := f.ws.WriteJSON(v); err != nil {
		f.t.Logf("fake extension write: %v", err)
	}
}

func (f *fakeExtension) sendEvent(ev *protocol.Event) {
	ev.Type = protocol.TypeEvent
	f.write(ev)
}

// nextRequest waits for the driver side to issue a request.
func (f *fakeExtension) nextRequest(timeout time.Duration) *protocol.Request {
	f.t.Helper()
	select {
	case req := <-f.requests:
		return req
	case <-time.After(timeout):
		f.t.Fatal("timed out waiting for a request")
		return nil
	}
}

// nextReply waits for an EventReply from the driver side.
func (f *fakeExtension) nextReply(timeout time.Duration) *protocol.EventReply {
	f.t.Helper()
	select {
	case reply := <-f.replies:
		return reply
	case <-time.After(timeout):
		f.t.Fatal("timed out waiting for an event reply")
		return nil
	}
}

func (f *fakeExtension) close() {
	f.ws.Close()
	select {
	case <-f.done:
	case <-time.After(time.Second):
	}
}

func jsonDecode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

func (c *Conn) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
