package subprocess

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/mcp-stdio-go/internal/config"
	"github.com/wagiedev/mcp-stdio-go/internal/errors"
	"github.com/wagiedev/mcp-stdio-go/internal/jsonrpc"
	"github.com/wagiedev/mcp-stdio-go/internal/protocol"
)

// drainTimeout bounds how long shutdown waits for the readers to hit EOF on
// their own before the read ends are closed under them.
const drainTimeout = 500 * time.Millisecond

// State is the lifecycle state of a transport.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StdioTransport implements config.Transport over a child process.
//
// Requests may be sent from any number of goroutines. Writes to stdin are
// serialized so each frame lands intact, and responses are matched to their
// callers by id regardless of arrival order.
type StdioTransport struct {
	log       *slog.Logger
	options   *config.Options
	spawner   config.Spawner
	telemetry *telemetry

	// nextID is never reset, so ids stay unique across restarts.
	nextID atomic.Int64

	lifecycle sync.Mutex // serializes Start and Stop
	writeMu   sync.Mutex // serializes stdin writes

	mu      sync.Mutex
	state   State
	current *run
	lastRun *run
}

// run is the state of one spawned process.
type run struct {
	proc       config.Process
	correlator *protocol.Correlator
	stderr     *LineBuffer
	group      *errgroup.Group

	ready     chan struct{}
	readyOnce sync.Once

	// stderrDone is closed when the stderr reader returns.
	stderrDone chan struct{}

	stopping    atomic.Bool
	stdinClosed atomic.Bool
	stdinOnce   sync.Once
}

func (r *run) markReady() {
	r.readyOnce.Do(func() { close(r.ready) })
}

// Compile-time verification that StdioTransport implements config.Transport.
var _ config.Transport = (*StdioTransport)(nil)

// NewStdioTransport creates a transport for the configured server command.
// The options are copied and defaulted; the caller's value is not modified.
func NewStdioTransport(log *slog.Logger, options *config.Options) *StdioTransport {
	opts := *options
	opts.ApplyDefaults()

	log = log.With("component", "transport", "transport_id", ulid.Make().String())

	spawner := opts.Spawner
	if spawner == nil {
		spawner = NewExecSpawner(log)
	}

	return &StdioTransport{
		log:       log,
		options:   &opts,
		spawner:   spawner,
		telemetry: newTelemetry(opts.MeterProvider, opts.TracerProvider),
	}
}

// Start spawns the server and waits for its readiness signal on stderr.
//
// On timeout the process is torn down and a StartupTimeoutError carrying the
// most recent stderr lines is returned. A process that exits before becoming
// ready yields a ProcessError. If ctx is cancelled the process is torn down
// and ctx.Err() is returned.
func (t *StdioTransport) Start(ctx context.Context) error {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.mu.Lock()
	prev := t.current
	t.mu.Unlock()

	if prev != nil {
		if prev.correlator.Err() == nil {
			return errors.ErrTransportAlreadyStarted
		}

		// The previous process died on its own; reap it before respawning.
		t.detach(prev)
		t.shutdown(ctx, prev, errors.ErrTransportClosed)
	}

	t.log.Info("Starting server process", "command", t.options.Command, "args", t.options.Args)

	proc, err := t.spawner.Spawn(ctx, config.Command{
		Path: t.options.Command,
		Args: t.options.Args,
		Env:  BuildEnvironment(t.options),
		Dir:  t.options.Cwd,
	})
	if err != nil {
		t.log.Error("Failed to spawn server", "command", t.options.Command, "error", err)

		return &errors.SpawnError{Command: t.options.Command, Err: err}
	}

	r := &run{
		proc:       proc,
		correlator: protocol.NewCorrelator(t.log),
		stderr:     NewLineBuffer(t.options.StderrBufferLines),
		group:      new(errgroup.Group),
		ready:      make(chan struct{}),
		stderrDone: make(chan struct{}),
	}

	r.group.Go(func() error { return t.readStdout(r) })
	r.group.Go(func() error { return t.readStderr(r) })
	r.group.Go(func() error { return t.watch(r) })

	t.mu.Lock()
	t.current = r
	t.lastRun = r
	t.state = StateRunning
	t.mu.Unlock()

	if t.options.ReadySignal == "" {
		t.log.Info("Server process started", "pid", proc.Pid())

		return nil
	}

	timer := time.NewTimer(t.options.StartupTimeout)
	defer timer.Stop()

	select {
	case <-r.ready:
		t.log.Info("Server reported ready", "pid", proc.Pid())

		return nil

	case <-proc.Done():
		t.abort(r)

		recent := r.stderr.Last(t.options.DiagnosticLines)
		t.log.Error("Server exited before becoming ready", "exit_code", proc.ExitCode(), "stderr", recent)

		return &errors.ProcessError{
			ExitCode: proc.ExitCode(),
			Stderr:   strings.Join(recent, "\n"),
			Err:      errors.ErrTransportClosed,
		}

	case <-timer.C:
		t.abort(r)

		recent := r.stderr.Last(t.options.DiagnosticLines)
		t.log.Error("Server did not become ready",
			"signal", t.options.ReadySignal,
			"timeout", t.options.StartupTimeout,
			"stderr", recent,
		)

		return &errors.StartupTimeoutError{
			Signal:       t.options.ReadySignal,
			Timeout:      t.options.StartupTimeout,
			RecentStderr: recent,
		}

	case <-ctx.Done():
		t.abort(r)

		return ctx.Err()
	}
}

// abort tears down a run that never became usable.
func (t *StdioTransport) abort(r *run) {
	t.detach(r)
	t.shutdown(context.Background(), r, errors.ErrTransportClosed)
}

// detach clears r as the current run.
func (t *StdioTransport) detach(r *run) {
	t.mu.Lock()
	if t.current == r {
		t.current = nil
		t.state = StateTerminated
	}
	t.mu.Unlock()
}

// Stop terminates the server: pending requests fail with ErrTransportClosed,
// stdin is closed, the process gets SIGTERM and, after the grace period, a
// kill. Cancelling ctx skips the rest of the grace period. Stop on a
// transport that is not running is a no-op.
func (t *StdioTransport) Stop(ctx context.Context) error {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.mu.Lock()
	r := t.current
	t.mu.Unlock()

	if r == nil {
		return nil
	}

	t.log.Info("Stopping server process", "pid", r.proc.Pid())

	t.detach(r)
	t.shutdown(ctx, r, errors.ErrTransportClosed)

	t.log.Info("Server process stopped", "pid", r.proc.Pid(), "exit_code", r.proc.ExitCode())

	return nil
}

func (t *StdioTransport) shutdown(ctx context.Context, r *run, cause error) {
	r.stopping.Store(true)
	r.correlator.Close(cause)
	t.closeStdin(r)

	if r.proc.Alive() {
		if err := r.proc.Terminate(); err != nil {
			t.log.Debug("Terminate failed, killing", "pid", r.proc.Pid(), "error", err)
		} else {
			grace := time.NewTimer(t.options.ShutdownGrace)

			select {
			case <-r.proc.Done():
			case <-grace.C:
				t.log.Warn("Server ignored SIGTERM, killing", "pid", r.proc.Pid(), "grace", t.options.ShutdownGrace)
			case <-ctx.Done():
			}

			grace.Stop()
		}

		if r.proc.Alive() {
			if err := r.proc.Kill(); err != nil {
				t.log.Warn("Kill failed", "pid", r.proc.Pid(), "error", err)
			}

			<-r.proc.Done()
		}
	}

	readers := make(chan error, 1)

	go func() { readers <- r.group.Wait() }()

	select {
	case <-readers:
	case <-time.After(drainTimeout):
		// Something still holds the pipes open, typically a grandchild.
		_ = r.proc.Stdout().Close()
		_ = r.proc.Stderr().Close()

		<-readers
	}

	_ = r.proc.Stdout().Close()
	_ = r.proc.Stderr().Close()
}

func (t *StdioTransport) closeStdin(r *run) {
	r.stdinOnce.Do(func() {
		r.stdinClosed.Store(true)

		if err := r.proc.Stdin().Close(); err != nil {
			t.log.Debug("Close stdin", "error", err)
		}
	})
}

// active returns the run requests should be sent on.
func (t *StdioTransport) active() (*run, error) {
	t.mu.Lock()
	r := t.current
	t.mu.Unlock()

	if r == nil {
		return nil, errors.ErrTransportNotStarted
	}

	if err := r.correlator.Err(); err != nil {
		return nil, err
	}

	return r, nil
}

// SendRequest writes a request with a fresh id and waits up to timeout for
// its response. A JSON-RPC error response is returned as a value, not an
// error.
func (t *StdioTransport) SendRequest(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
) (*jsonrpc.Response, error) {
	r, err := t.active()
	if err != nil {
		return nil, err
	}

	id := t.nextID.Add(1)

	req, err := jsonrpc.NewRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	frame, err := jsonrpc.Encode(req)
	if err != nil {
		return nil, err
	}

	ctx, span := t.telemetry.startRequest(ctx, method, id)
	defer span.End()

	start := time.Now()

	resp, err := t.roundTrip(ctx, r, id, method, frame, timeout)

	t.telemetry.endRequest(ctx, span, method, start, resp, err)

	return resp, err
}

func (t *StdioTransport) roundTrip(
	ctx context.Context,
	r *run,
	id int64,
	method string,
	frame []byte,
	timeout time.Duration,
) (*jsonrpc.Response, error) {
	if err := r.correlator.Register(id, method); err != nil {
		return nil, err
	}

	t.log.Debug("Sending request", "method", method, "request_id", id, "frame", string(bytes.TrimSpace(frame)))

	if err := t.writeFrame(ctx, r, frame); err != nil {
		r.correlator.Forget(id)

		return nil, &errors.TransportWriteError{Method: method, ID: id, Err: err}
	}

	return r.correlator.Await(ctx, id, timeout)
}

// SendNotification writes a notification. Nothing is awaited.
func (t *StdioTransport) SendNotification(ctx context.Context, method string, params any) error {
	r, err := t.active()
	if err != nil {
		return err
	}

	n, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		return err
	}

	frame, err := jsonrpc.Encode(n)
	if err != nil {
		return err
	}

	t.log.Debug("Sending notification", "method", method, "frame", string(bytes.TrimSpace(frame)))

	if err := t.writeFrame(ctx, r, frame); err != nil {
		return &errors.TransportWriteError{Method: method, Err: err}
	}

	return nil
}

// writeFrame writes one complete frame to stdin. A write that blocks past
// WriteTimeout, or outlives ctx, closes stdin; every later write then fails
// with ErrStdinClosed.
func (t *StdioTransport) writeFrame(ctx context.Context, r *run, frame []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if r.stdinClosed.Load() {
		return errors.ErrStdinClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, t.options.WriteTimeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		_, err := r.proc.Stdin().Write(frame)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("write to stdin: %w", err)
		}

		return nil

	case <-writeCtx.Done():
		t.log.Warn("Write to server stdin blocked, closing stdin", "error", writeCtx.Err())
		t.closeStdin(r)

		select {
		case <-done:
		case <-time.After(1 * time.Second):
			t.log.Warn("Write goroutine did not exit after stdin close, potential leak")
		}

		return writeCtx.Err()
	}
}

// IsReady reports whether the server is running and accepting writes.
func (t *StdioTransport) IsReady() bool {
	t.mu.Lock()
	r := t.current
	t.mu.Unlock()

	return r != nil && r.correlator.Err() == nil && !r.stdinClosed.Load() && r.proc.Alive()
}

// State returns the lifecycle state.
func (t *StdioTransport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// StderrLines returns the buffered stderr of the current or most recent
// process, oldest first.
func (t *StdioTransport) StderrLines() []string {
	t.mu.Lock()
	r := t.lastRun
	t.mu.Unlock()

	if r == nil {
		return nil
	}

	return r.stderr.Lines()
}

// Pid returns the process id of the running server, or 0.
func (t *StdioTransport) Pid() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return 0
	}

	return t.current.proc.Pid()
}

// Pending returns the number of requests awaiting a response.
func (t *StdioTransport) Pending() int {
	t.mu.Lock()
	r := t.current
	t.mu.Unlock()

	if r == nil {
		return 0
	}

	return r.correlator.Pending()
}
