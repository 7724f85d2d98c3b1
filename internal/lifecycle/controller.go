// Package lifecycle sequences process startup, serving, graceful shutdown and
// fatal failure. Fatal conditions are handed to an injected FatalHandler so
// the exit itself stays outside the controller.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type State int32

const (
	StateConfiguring State = iota
	StateListening
	StateServing
	StateShuttingDown
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConfiguring:
		return "configuring"
	case StateListening:
		return "listening"
	case StateServing:
		return "serving"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// FatalHandler is invoked once for configuration, bind, serve and uncaught
// faults. The production handler exits the process with a non-zero code.
type FatalHandler func(cause error)

// Closer is a shutdown hook run after the server stops accepting requests.
type Closer struct {
	Name  string
	Close func(ctx context.Context) error
}

// App is what Setup produces: a handler to serve and the resources around it.
type App struct {
	Addr            string
	Handler         http.Handler
	Log             *slog.Logger
	ShutdownTimeout time.Duration
	// Background is started once serving begins. Its failure is logged and
	// never stops the server.
	Background func() error
	// Closers run in reverse order during graceful shutdown.
	Closers []Closer
}

type Options struct {
	// Setup loads configuration and builds the App. An error is a
	// configuration failure.
	Setup func(c *Controller) (*App, error)
	Fatal FatalHandler

	Stderr     io.Writer
	FlushDelay time.Duration
	Listen     func(network, address string) (net.Listener, error)
}

type Controller struct {
	opts   Options
	state  atomic.Int32
	faults chan error

	mu   sync.Mutex
	addr net.Addr
	log  *slog.Logger
}

func New(opts Options) *Controller {
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Listen == nil {
		opts.Listen = net.Listen
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 100 * time.Millisecond
	}
	if opts.Fatal == nil {
		opts.Fatal = func(error) { os.Exit(1) }
	}
	c := &Controller{
		opts:   opts,
		faults: make(chan error, 1),
		log:    slog.Default(),
	}
	c.state.Store(int32(StateConfiguring))
	return c
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

// Addr is the bound address, or nil before listening.
func (c *Controller) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// Report records an uncaught fault. The first one ends Run through the fatal
// path; later ones are logged.
func (c *Controller) Report(cause error) {
	select {
	case c.faults <- cause:
	default:
		c.logger().Error("Additional fault after fatal", "error", cause)
	}
}

// Go runs fn on its own goroutine. A panic or returned error is reported as
// an uncaught fault.
func (c *Controller) Go(name string, fn func() error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.Report(fmt.Errorf("%s panicked: %v", name, r))
			}
		}()
		if err := fn(); err != nil {
			c.Report(fmt.Errorf("%s: %w", name, err))
		}
	}()
}

// Run drives the process until ctx is cancelled (graceful, returns nil) or a
// fatal condition occurs (FatalHandler is called and the cause returned).
func (c *Controller) Run(ctx context.Context) error {
	app, err := c.opts.Setup(c)
	if err != nil {
		fmt.Fprintf(c.opts.Stderr, "configuration error: %v\n", err)
		return c.fail(fmt.Errorf("configuration: %w", err))
	}
	if app.Log != nil {
		c.mu.Lock()
		c.log = app.Log
		c.mu.Unlock()
	}
	log := c.logger()

	ln, err := c.opts.Listen("tcp", app.Addr)
	if err != nil {
		log.Error("Failed to bind", "addr", app.Addr, "error", err)
		// let buffered log output reach its sink before the exit
		time.Sleep(c.opts.FlushDelay)
		return c.fail(fmt.Errorf("bind %s: %w", app.Addr, err))
	}
	c.mu.Lock()
	c.addr = ln.Addr()
	c.mu.Unlock()
	c.state.Store(int32(StateListening))

	srv := &http.Server{
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	c.state.Store(int32(StateServing))
	log.Info("Server listening", "addr", ln.Addr().String())

	c.startBackground(app.Background)

	select {
	case <-ctx.Done():
		return c.shutdown(app, srv)
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		log.Error("Server stopped unexpectedly", "error", err)
		return c.fail(fmt.Errorf("serve: %w", err))
	case cause := <-c.faults:
		log.Error("Uncaught fault", "error", cause)
		_ = srv.Close()
		return c.fail(cause)
	}
}

func (c *Controller) startBackground(start func() error) {
	if start == nil {
		return
	}
	log := c.logger()
	defer func() {
		if r := recover(); r != nil {
			log.Warn("Background jobs failed to start", "error", fmt.Sprint(r))
		}
	}()
	if err := start(); err != nil {
		log.Warn("Background jobs failed to start", "error", err)
	}
}

func (c *Controller) shutdown(app *App, srv *http.Server) error {
	c.state.Store(int32(StateShuttingDown))
	log := c.logger()
	log.Info("Shutting down server...")

	timeout := app.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	for i := len(app.Closers) - 1; i >= 0; i-- {
		cl := app.Closers[i]
		if err := cl.Close(ctx); err != nil {
			log.Error("Shutdown hook failed", "name", cl.Name, "error", err)
		}
	}

	c.state.Store(int32(StateStopped))
	log.Info("Server exited")
	return nil
}

func (c *Controller) fail(cause error) error {
	c.state.Store(int32(StateFailed))
	c.opts.Fatal(cause)
	return cause
}

func (c *Controller) logger() *slog.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log
}
