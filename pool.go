package vulpo

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/vulpo/vulpo/protocol"
)

const handshakeTimeout = 30 * time.Second

// Pool owns the single listening endpoint every extension connects
// back to. Connections are routed by the session id declared in the
// READY frame. Windows reserve their session id before launching
// Firefox so arrival order of the reservation and the READY frame does
// not matter.
type Pool struct {
	server *http.Server
	ln     net.Listener
	port   int

	mu      sync.Mutex
	conns   map[protocol.SessionID]*Conn
	awaited map[protocol.SessionID]chan *Conn
	closed  bool

	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func newPool(logger *slog.Logger) (*Pool, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, wrapError(KindConnection, err, "bind callback listener")
	}
	p := &Pool{
		ln:      ln,
		port:    ln.Addr().(*net.TCPAddr).Port,
		conns:   make(map[protocol.SessionID]*Conn),
		awaited: make(map[protocol.SessionID]chan *Conn),
		logger:  logger.With("component", "pool"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The listener binds loopback only. Extension pages
			// present moz-extension origins, so the browser origin
			// check does not apply here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	router := chi.NewRouter()
	router.Get("/", p.handleWS)
	router.Get("/status", p.handleStatus)
	p.server = &http.Server{Handler: router}
	go p.server.Serve(ln)

	return p, nil
}

// Port returns the ephemeral port the pool listens on.
func (p *Pool) Port() int { return p.port }

// WSURL returns the WebSocket URL extensions should dial.
func (p *Pool) WSURL() string { return fmt.Sprintf("ws://127.0.0.1:%d/", p.port) }

// reserve registers interest in a session id before Firefox launches.
// The returned channel delivers the connection once its READY frame
// arrives.
func (p *Pool) reserve(sid protocol.SessionID) (chan *Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, newError(KindConnection, "pool is shut down")
	}
	if _, ok := p.awaited[sid]; ok {
		return nil, newError(KindConnection, "session %s is already awaited", sid)
	}
	if _, ok := p.conns[sid]; ok {
		return nil, newError(KindConnection, "session %s is already connected", sid)
	}
	ch := make(chan *Conn, 1)
	p.awaited[sid] = ch
	return ch, nil
}

// await blocks until the reserved session connects or ctx expires.
func (p *Pool) await(ctx context.Context, sid protocol.SessionID, ch chan *Conn) (*Conn, error) {
	select {
	case conn, ok := <-ch:
		if !ok {
			return nil, newError(KindConnectionClosed, "pool shut down while awaiting session %s", sid)
		}
		return conn, nil
	case <-ctx.Done():
		p.mu.Lock()
		if _, still := p.awaited[sid]; still {
			delete(p.awaited, sid)
			p.mu.Unlock()
			return nil, newError(KindConnectionTimeout, "session %s did not connect in time", sid)
		}
		p.mu.Unlock()
		// Promotion raced the deadline. handleWS parks the connection
		// in the slot before it withdraws the reservation, so the
		// receive cannot miss it. The caller already gave up; tear the
		// orphan down.
		select {
		case conn := <-ch:
			if conn != nil {
				conn.Close()
			}
		default:
		}
		return nil, newError(KindConnectionTimeout, "session %s did not connect in time", sid)
	}
}

// unreserve withdraws a reservation during spawn unwinding.
func (p *Pool) unreserve(sid protocol.SessionID) {
	p.mu.Lock()
	delete(p.awaited, sid)
	p.mu.Unlock()
}

// get looks up a live connection.
func (p *Pool) get(sid protocol.SessionID) (*Conn, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	conn, ok := p.conns[sid]
	return conn, ok
}

// close terminates and removes one session's connection.
func (p *Pool) close(sid protocol.SessionID) {
	conn, ok := p.get(sid)
	if ok {
		conn.Close()
	}
}

func (p *Pool) reap(sid protocol.SessionID) {
	p.mu.Lock()
	delete(p.conns, sid)
	p.mu.Unlock()
}

func (p *Pool) sessionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// shutdown closes every connection, fails pending reservations and
// stops the listener.
func (p *Pool) shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conns := make([]*Conn, 0, len(p.conns))
	for _, c := range p.conns {
		conns = append(conns, c)
	}
	for sid, ch := range p.awaited {
		close(ch)
		delete(p.awaited, sid)
	}
	p.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	return p.server.Shutdown(ctx)
}

func (p *Pool) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ws.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, raw, err := ws.ReadMessage()
	if err != nil {
		ws.Close()
		return
	}
	msg, err := protocol.Decode(raw)
	if err != nil {
		p.rejectSocket(ws, "expected ready frame")
		return
	}
	ready, ok := msg.(*protocol.Ready)
	if !ok {
		p.rejectSocket(ws, "expected ready frame")
		return
	}
	ws.SetReadDeadline(time.Time{})

	p.mu.Lock()
	ch, awaited := p.awaited[ready.SessionID]
	_, connected := p.conns[ready.SessionID]
	if p.closed || !awaited || connected {
		p.mu.Unlock()
		p.logger.Warn("rejecting unexpected session", "session", ready.SessionID)
		p.rejectSocket(ws, "session not awaited")
		return
	}
	conn := newConn(ready, ws, p.logger)
	conn.onClose = p.reap
	p.conns[ready.SessionID] = conn
	// The slot is buffered, so the send cannot block. Parking the
	// connection before withdrawing the reservation means a waiter that
	// finds the reservation gone can always collect it from the slot.
	ch <- conn
	delete(p.awaited, ready.SessionID)
	p.mu.Unlock()

	p.logger.Debug("session connected", "session", ready.SessionID, "tab", ready.TabID)

	// Serve the session on the handler goroutine; it returns when the
	// socket closes.
	conn.readLoop()
}

func (p *Pool) rejectSocket(ws *websocket.Conn, reason string) {
	deadline := time.Now().Add(time.Second)
	ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
	ws.Close()
}

func (p *Pool) handleStatus(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	sessions := len(p.conns)
	awaited := len(p.awaited)
	p.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"sessions":%d,"awaited":%d}`, sessions, awaited)
}
