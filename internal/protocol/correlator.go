package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wagiedev/mcp-stdio-go/internal/errors"
	"github.com/wagiedev/mcp-stdio-go/internal/jsonrpc"
)

// Correlator matches responses read from the server to the callers waiting
// for them, keyed by request id.
//
// Each pending request owns a single-slot channel. The output reader is the
// only writer of those channels (via Deliver) and the caller that registered
// an id is the only reader (via Await), so waiters never block one another.
type Correlator struct {
	log *slog.Logger

	mu      sync.Mutex
	pending map[int64]*pendingRequest

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// pendingRequest tracks an outgoing request awaiting its response.
// delivered is set under the correlator lock by the one Deliver call that
// claims the entry.
type pendingRequest struct {
	method    string
	response  chan *jsonrpc.Response
	sentAt    time.Time
	delivered bool
}

// NewCorrelator creates an empty correlator.
func NewCorrelator(log *slog.Logger) *Correlator {
	return &Correlator{
		log:     log.With("component", "correlator"),
		pending: make(map[int64]*pendingRequest, 8),
		done:    make(chan struct{}),
	}
}

// Register creates the pending entry for id. It must be called before the
// request is written so a fast response cannot be missed.
func (c *Correlator) Register(id int64, method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return c.closeErr
	default:
	}

	c.pending[id] = &pendingRequest{
		method:   method,
		response: make(chan *jsonrpc.Response, 1),
		sentAt:   time.Now(),
	}

	return nil
}

// Await blocks until the response for id is delivered, the timeout expires,
// ctx is done, or the correlator is closed. The entry is removed on every
// path, so a response arriving after a timeout is dropped by Deliver.
func (c *Correlator) Await(
	ctx context.Context,
	id int64,
	timeout time.Duration,
) (*jsonrpc.Response, error) {
	c.mu.Lock()
	pending, ok := c.pending[id]
	c.mu.Unlock()

	if !ok {
		if err := c.Err(); err != nil {
			return nil, err
		}

		return nil, fmt.Errorf("no pending request with id %d", id)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-pending.response:
		c.Forget(id)

		return resp, nil

	case <-timer.C:
		if resp, ok := c.abandon(id, pending); ok {
			return resp, nil
		}

		c.log.Warn("Request timed out", "request_id", id, "method", pending.method, "timeout", timeout)

		return nil, &errors.ResponseTimeoutError{ID: id, Method: pending.method, Timeout: timeout}

	case <-ctx.Done():
		if resp, ok := c.abandon(id, pending); ok {
			return resp, nil
		}

		c.log.Debug("Request cancelled", "request_id", id, "method", pending.method)

		return nil, ctx.Err()

	case <-c.done:
		if resp, ok := c.abandon(id, pending); ok {
			return resp, nil
		}

		return nil, c.closeErr
	}
}

// abandon removes the entry for id. If Deliver already claimed it, the
// response is on its way and is returned instead.
func (c *Correlator) abandon(id int64, pending *pendingRequest) (*jsonrpc.Response, bool) {
	c.mu.Lock()
	delete(c.pending, id)
	delivered := pending.delivered
	c.mu.Unlock()

	if !delivered {
		return nil, false
	}

	return <-pending.response, true
}

// Deliver claims the pending entry for resp.ID and hands resp to its single-slot
// channel. The entry stays in the table until Await collects the response and
// removes it. Deliver returns false when no request with that id is pending or
// the entry was already claimed; the response is then dropped.
func (c *Correlator) Deliver(resp *jsonrpc.Response) bool {
	c.mu.Lock()

	pending, exists := c.pending[resp.ID]
	claimed := exists && !pending.delivered
	if claimed {
		pending.delivered = true
	}

	c.mu.Unlock()

	if !claimed {
		c.log.Warn("Dropping response with no pending request", "request_id", resp.ID)

		return false
	}

	c.log.Debug("Delivering response",
		"request_id", resp.ID,
		"method", pending.method,
		"elapsed", time.Since(pending.sentAt),
	)

	// Only the claiming call sends, and the channel has one slot.
	pending.response <- resp

	return true
}

// Forget removes the entry for id without delivering anything.
func (c *Correlator) Forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Close fails every current and future Await with cause. Only the first
// cause is kept.
func (c *Correlator) Close(cause error) {
	if cause == nil {
		cause = errors.ErrTransportClosed
	}

	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closeErr = cause
		abandoned := len(c.pending)
		c.mu.Unlock()

		close(c.done)

		if abandoned > 0 {
			c.log.Debug("Correlator closed with pending requests", "pending", abandoned, "cause", cause)
		}
	})
}

// Done is closed once Close has been called.
func (c *Correlator) Done() <-chan struct{} {
	return c.done
}

// Err returns the close cause, or nil while the correlator is open.
func (c *Correlator) Err() error {
	select {
	case <-c.done:
		return c.closeErr
	default:
		return nil
	}
}

// Pending returns the number of requests awaiting a response.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pending)
}
