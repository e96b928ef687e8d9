package vulpo

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/vulpo/vulpo/protocol"
)

const shutdownRequestTimeout = 3 * time.Second

// WindowBuilder configures one Firefox window before launch.
type WindowBuilder struct {
	driver         *Driver
	opts           windowOptions
	profilePath    string
	prefs          map[string]any
	connectTimeout time.Duration
}

// Headless launches Firefox without a visible window.
func (b *WindowBuilder) Headless() *WindowBuilder {
	b.opts.headless = true
	return b
}

// WindowSize sets the initial window dimensions in pixels.
func (b *WindowBuilder) WindowSize(width, height int) *WindowBuilder {
	b.opts.width = width
	b.opts.height = height
	return b
}

// Private launches in private browsing mode.
func (b *WindowBuilder) Private() *WindowBuilder {
	b.opts.private = true
	return b
}

// Kiosk launches in kiosk mode.
func (b *WindowBuilder) Kiosk() *WindowBuilder {
	b.opts.kiosk = true
	return b
}

// Devtools opens the developer tools on launch.
func (b *WindowBuilder) Devtools() *WindowBuilder {
	b.opts.devtools = true
	return b
}

// Arg appends a raw Firefox command line argument.
func (b *WindowBuilder) Arg(arg string) *WindowBuilder {
	b.opts.extraArgs = append(b.opts.extraArgs, arg)
	return b
}

// Profile uses a persistent profile at path instead of a temp one.
// Persistent profiles survive window close.
func (b *WindowBuilder) Profile(path string) *WindowBuilder {
	b.profilePath = path
	return b
}

// Pref overrides one Firefox preference for this window's profile.
func (b *WindowBuilder) Pref(name string, value any) *WindowBuilder {
	b.prefs[name] = value
	return b
}

// ConnectTimeout bounds the wait for the extension to dial back.
func (b *WindowBuilder) ConnectTimeout(d time.Duration) *WindowBuilder {
	b.connectTimeout = d
	return b
}

// Spawn launches Firefox and waits for the extension to connect. On any
// failure the steps already taken are unwound: the process is killed,
// the reservation withdrawn and the temp profile removed.
func (b *WindowBuilder) Spawn(ctx context.Context) (*Window, error) {
	d := b.driver
	sid := d.nextSessionID()

	var profile *Profile
	var err error
	if b.profilePath != "" {
		profile, err = newPersistentProfile(b.profilePath)
	} else {
		profile, err = newTempProfile()
	}
	if err != nil {
		return nil, err
	}

	if err := profile.installExtension(d.extension); err != nil {
		profile.remove()
		return nil, err
	}

	wsURL := d.pool.WSURL()
	profile.SetPref(prefWSURL, wsURL)
	profile.SetPref(prefSessionID, int64(sid))
	for name, value := range b.prefs {
		profile.SetPref(name, value)
	}
	if err := profile.writePrefs(); err != nil {
		profile.remove()
		return nil, err
	}

	slot, err := d.pool.reserve(sid)
	if err != nil {
		profile.remove()
		return nil, err
	}

	args := append(b.opts.args(profile.Dir()), bootPageURI(wsURL, sid))
	proc, err := launchFirefox(d.binary, args, d.logger)
	if err != nil {
		d.pool.unreserve(sid)
		profile.remove()
		return nil, err
	}

	timeout := b.connectTimeout
	if timeout <= 0 {
		timeout = handshakeTimeout
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn, err := d.pool.await(actx, sid, slot)
	if err != nil {
		proc.terminate(processGrace)
		d.pool.unreserve(sid)
		profile.remove()
		return nil, err
	}

	w := &Window{
		driver:  d,
		session: sid,
		proc:    proc,
		profile: profile,
		conn:    conn,
	}
	d.track(w)
	d.logger.Info("window spawned", "session", sid, "pid", proc.pid())
	return w, nil
}

// Window owns one Firefox process, its profile and its session.
type Window struct {
	driver  *Driver
	session protocol.SessionID
	proc    *firefoxProcess
	profile *Profile
	conn    *Conn

	mu            sync.Mutex
	closed        bool
	subKeys       map[protocol.SubscriptionID]string
	interceptKeys map[protocol.InterceptID]string
}

func (w *Window) trackIntercept(id protocol.InterceptID, key string) {
	w.mu.Lock()
	if w.interceptKeys == nil {
		w.interceptKeys = make(map[protocol.InterceptID]string)
	}
	w.interceptKeys[id] = key
	w.mu.Unlock()
}

func (w *Window) dropIntercept(id protocol.InterceptID) {
	w.mu.Lock()
	key, ok := w.interceptKeys[id]
	if ok {
		delete(w.interceptKeys, id)
	}
	w.mu.Unlock()
	if ok {
		w.conn.unsubscribe(key)
	}
}

// trackSubscription remembers the local dispatch key behind a remote
// subscription id so Unsubscribe can drop both sides.
func (w *Window) trackSubscription(id protocol.SubscriptionID, key string) {
	w.mu.Lock()
	if w.subKeys == nil {
		w.subKeys = make(map[protocol.SubscriptionID]string)
	}
	w.subKeys[id] = key
	w.mu.Unlock()
}

func (w *Window) dropSubscription(id protocol.SubscriptionID) {
	w.mu.Lock()
	key, ok := w.subKeys[id]
	if ok {
		delete(w.subKeys, id)
	}
	w.mu.Unlock()
	if ok {
		w.conn.unsubscribe(key)
	}
}

// SessionID returns the window's session id.
func (w *Window) SessionID() protocol.SessionID { return w.session }

// PID returns the Firefox process id.
func (w *Window) PID() int { return w.proc.pid() }

// Tab returns the window's initial tab.
func (w *Window) Tab() *Tab {
	return &Tab{window: w, tab: w.conn.tabID, frame: w.conn.frameID}
}

// Status asks the extension for its view of the session and returns
// the raw status payload.
func (w *Window) Status(ctx context.Context) (json.RawMessage, error) {
	return w.conn.Send(ctx, protocol.CmdSessionStatus, nil)
}

// StealLogs returns the extension's buffered log entries and clears
// the buffer at the remote end. Useful when debugging extension
// behavior.
func (w *Window) StealLogs(ctx context.Context) ([]json.RawMessage, error) {
	result, err := w.conn.Send(ctx, protocol.CmdSessionStealLogs, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Logs []json.RawMessage `json:"logs"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, wrapError(KindJSON, err, "decode stealLogs result")
	}
	return out.Logs, nil
}

// NewTab opens a new tab, optionally at url (empty means blank).
func (w *Window) NewTab(ctx context.Context, url string) (*Tab, error) {
	params := map[string]any{}
	if url != "" {
		params["url"] = url
	}
	result, err := w.conn.Send(ctx, protocol.CmdNewTab, params)
	if err != nil {
		return nil, err
	}
	var out struct {
		TabID protocol.TabID `json:"tabId"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, wrapError(KindJSON, err, "decode newTab result")
	}
	return &Tab{window: w, tab: out.TabID}, nil
}

// Close tears the window down: a shutdown request on the session, then
// process termination with escalation, then profile cleanup, then
// removal from the pool. Every step runs even when an earlier one
// fails; calling Close again is a no-op.
func (w *Window) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	sctx, cancel := context.WithTimeout(ctx, shutdownRequestTimeout)
	if _, err := w.conn.Send(sctx, protocol.CmdSessionShutdown, nil); err != nil {
		w.driver.logger.Debug("shutdown request failed", "session", w.session, "error", err)
	}
	cancel()

	var errs []error
	if err := w.proc.terminate(processGrace); err != nil {
		errs = append(errs, err)
	}
	if err := w.profile.remove(); err != nil {
		errs = append(errs, err)
	}
	w.driver.pool.close(w.session)
	w.driver.forget(w.session)
	w.driver.logger.Info("window closed", "session", w.session)
	return errors.Join(errs...)
}
