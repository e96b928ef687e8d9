package vulpo

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/vulpo/vulpo/protocol"
)

// Driver is the entry point of the library. It owns the callback
// listener, the connection pool and every window spawned through it.
type Driver struct {
	binary    string
	extension ExtensionSource
	pool      *Pool
	logger    *slog.Logger

	mu      sync.Mutex
	windows map[protocol.SessionID]*Window

	nextSID atomic.Uint64
}

// DriverBuilder configures a Driver. Obtain one from NewDriver.
type DriverBuilder struct {
	binary    string
	extension ExtensionSource
	logger    *slog.Logger
}

// NewDriver starts a driver configuration.
func NewDriver() *DriverBuilder {
	return &DriverBuilder{}
}

// Binary sets the Firefox executable. When unset, Build searches the
// usual install locations.
func (b *DriverBuilder) Binary(path string) *DriverBuilder {
	b.binary = path
	return b
}

// Extension sets the automation extension every window gets.
func (b *DriverBuilder) Extension(src ExtensionSource) *DriverBuilder {
	b.extension = src
	return b
}

// Logger overrides the default slog logger.
func (b *DriverBuilder) Logger(logger *slog.Logger) *DriverBuilder {
	b.logger = logger
	return b
}

// Build validates the configuration, binds the callback listener and
// returns a ready driver.
func (b *DriverBuilder) Build() (*Driver, error) {
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "vulpo")

	binary := b.binary
	if binary == "" {
		found, err := FindFirefox()
		if err != nil {
			return nil, err
		}
		binary = found
	} else if info, err := os.Stat(binary); err != nil || info.IsDir() {
		return nil, newError(KindConfig, "firefox binary not found at %s", binary)
	}

	if !b.extension.valid() {
		return nil, newError(KindConfig, "no automation extension configured")
	}

	pool, err := newPool(logger)
	if err != nil {
		return nil, err
	}

	return &Driver{
		binary:    binary,
		extension: b.extension,
		pool:      pool,
		logger:    logger,
		windows:   make(map[protocol.SessionID]*Window),
	}, nil
}

// NewWindow starts configuring a window. Call Spawn on the result to
// launch Firefox.
func (d *Driver) NewWindow() *WindowBuilder {
	return &WindowBuilder{
		driver:         d,
		prefs:          make(map[string]any),
		connectTimeout: handshakeTimeout,
	}
}

// Port returns the callback listener's port.
func (d *Driver) Port() int { return d.pool.Port() }

// WSURL returns the callback WebSocket URL.
func (d *Driver) WSURL() string { return d.pool.WSURL() }

// WindowCount returns the number of live windows.
func (d *Driver) WindowCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.windows)
}

func (d *Driver) nextSessionID() protocol.SessionID {
	return protocol.SessionID(d.nextSID.Add(1))
}

func (d *Driver) track(w *Window) {
	d.mu.Lock()
	d.windows[w.session] = w
	d.mu.Unlock()
}

func (d *Driver) forget(sid protocol.SessionID) {
	d.mu.Lock()
	delete(d.windows, sid)
	d.mu.Unlock()
}

// Close shuts down every window concurrently, then stops the listener.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	windows := make([]*Window, 0, len(d.windows))
	for _, w := range d.windows {
		windows = append(windows, w)
	}
	d.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range windows {
		w := w
		g.Go(func() error { return w.Close(gctx) })
	}
	err := g.Wait()

	if serr := d.pool.shutdown(ctx); serr != nil && err == nil {
		err = serr
	}
	return err
}
