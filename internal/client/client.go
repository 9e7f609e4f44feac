package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/wagiedev/mcp-stdio-go/internal/config"
	"github.com/wagiedev/mcp-stdio-go/internal/errors"
	"github.com/wagiedev/mcp-stdio-go/internal/jsonrpc"
	"github.com/wagiedev/mcp-stdio-go/internal/protocol"
	"github.com/wagiedev/mcp-stdio-go/internal/subprocess"
)

// startRetryMaxInterval caps the backoff between Start attempts.
const startRetryMaxInterval = 5 * time.Second

// Client ties a transport to the session running over it.
type Client struct {
	log       *slog.Logger
	options   *config.Options
	transport config.Transport
	session   *protocol.Session

	mu sync.Mutex
}

// New creates a client. Nothing is spawned until Start.
func New() *Client {
	return &Client{}
}

// Start creates the transport and launches the server. A StartupTimeoutError
// is retried up to Options.StartRetries times with exponential backoff; any
// other failure is returned immediately.
func (c *Client) Start(ctx context.Context, options *config.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transport != nil && c.transport.IsReady() {
		return errors.ErrTransportAlreadyStarted
	}

	if options == nil {
		options = &config.Options{}
	}

	if err := options.Validate(); err != nil {
		return err
	}

	opts := *options
	opts.ApplyDefaults()

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c.log = log.With("component", "client")
	c.options = &opts

	if stale := c.transport; stale != nil {
		// A transport that is no longer ready may still own a live process.
		c.transport = nil
		c.session = nil

		if err := stale.Stop(ctx); err != nil {
			c.log.Warn("Failed to stop previous transport", "error", err)
		}
	}

	transport := opts.Transport
	if transport != nil {
		c.log.Debug("Using injected custom transport")
	} else {
		transport = subprocess.NewStdioTransport(log, &opts)
	}

	if err := c.startWithRetry(ctx, transport); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}

	c.transport = transport
	c.session = protocol.NewSession(log, transport, &opts)

	return nil
}

func (c *Client) startWithRetry(ctx context.Context, transport config.Transport) error {
	if c.options.StartRetries == 0 {
		return transport.Start(ctx)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.options.StartRetryDelay
	b.MaxInterval = startRetryMaxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.options.StartRetries)), ctx)

	operation := func() error {
		err := transport.Start(ctx)
		if err == nil {
			return nil
		}

		if _, ok := stderrors.AsType[*errors.StartupTimeoutError](err); ok {
			return err
		}

		return backoff.Permanent(err)
	}

	notify := func(err error, next time.Duration) {
		c.log.Warn("Server did not start, retrying", "error", err, "retry_in", next)
	}

	return backoff.RetryNotify(operation, policy, notify)
}

func (c *Client) current() (*protocol.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, errors.ErrTransportNotStarted
	}

	return c.session, nil
}

// Initialize performs the MCP handshake.
func (c *Client) Initialize(ctx context.Context) error {
	session, err := c.current()
	if err != nil {
		return err
	}

	return session.Initialize(ctx)
}

// ListTools sends tools/list and returns the raw response.
func (c *Client) ListTools(ctx context.Context) (*jsonrpc.Response, error) {
	session, err := c.current()
	if err != nil {
		return nil, errors.ErrNotInitialized
	}

	return session.ListTools(ctx)
}

// Tools sends tools/list and decodes the tool list.
func (c *Client) Tools(ctx context.Context) ([]protocol.Tool, error) {
	resp, err := c.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	return protocol.DecodeTools(resp)
}

// CallTool sends tools/call and returns the raw response.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (*jsonrpc.Response, error) {
	session, err := c.current()
	if err != nil {
		return nil, errors.ErrNotInitialized
	}

	return session.CallTool(ctx, name, arguments)
}

// Ping checks the server is responsive.
func (c *Client) Ping(ctx context.Context) error {
	session, err := c.current()
	if err != nil {
		return errors.ErrNotInitialized
	}

	return session.Ping(ctx)
}

// ServerInfoRequest sends server/info and returns the raw response.
func (c *Client) ServerInfoRequest(ctx context.Context) (*jsonrpc.Response, error) {
	session, err := c.current()
	if err != nil {
		return nil, errors.ErrNotInitialized
	}

	return session.ServerInfoRequest(ctx)
}

// ServerInfo returns what the server reported during the handshake, or nil.
func (c *Client) ServerInfo() *protocol.ServerInfo {
	session, err := c.current()
	if err != nil {
		return nil
	}

	return session.ServerInfo()
}

// State returns the handshake state.
func (c *Client) State() protocol.State {
	session, err := c.current()
	if err != nil {
		return protocol.StateUninitialized
	}

	return session.State()
}

// Stop terminates the server. It is safe to call more than once; after Stop
// the client may be started again.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	transport := c.transport
	c.session = nil
	c.mu.Unlock()

	if transport == nil {
		return nil
	}

	if err := transport.Stop(ctx); err != nil {
		return fmt.Errorf("stop transport: %w", err)
	}

	return nil
}
