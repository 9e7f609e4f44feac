package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/mcp-stdio-go/internal/config"
	"github.com/wagiedev/mcp-stdio-go/internal/errors"
	"github.com/wagiedev/mcp-stdio-go/internal/jsonrpc"
	"github.com/wagiedev/mcp-stdio-go/internal/protocol"
)

// mockTransport implements config.Transport for testing.
// Start fails with the queued errors first; requests are answered from results.
type mockTransport struct {
	mu        sync.Mutex
	startErrs []error
	starts    int
	stops     int
	ready     bool
	nextID    int64
	results   map[string]any
}

var _ config.Transport = (*mockTransport)(nil)

func newMockTransport(startErrs ...error) *mockTransport {
	return &mockTransport{
		startErrs: startErrs,
		results: map[string]any{
			protocol.MethodInitialize: map[string]any{
				"protocolVersion": "2024-11-05",
				"serverInfo":      map[string]any{"name": "mock", "version": "1"},
			},
			protocol.MethodToolsList: map[string]any{"tools": []any{
				map[string]any{"name": "echo", "inputSchema": map[string]any{"type": "object"}},
			}},
			protocol.MethodPing: map[string]any{},
		},
	}
}

func (m *mockTransport) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.starts++

	if len(m.startErrs) > 0 {
		err := m.startErrs[0]
		m.startErrs = m.startErrs[1:]

		return err
	}

	m.ready = true

	return nil
}

func (m *mockTransport) Stop(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stops++
	m.ready = false

	return nil
}

func (m *mockTransport) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ready
}

func (m *mockTransport) SendRequest(
	_ context.Context,
	method string,
	params any,
	_ time.Duration,
) (*jsonrpc.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++

	if method == protocol.MethodToolsCall {
		raw, _ := json.Marshal(params)

		var call struct {
			Arguments json.RawMessage `json:"arguments"`
		}

		_ = json.Unmarshal(raw, &call)

		return &jsonrpc.Response{JSONRPC: jsonrpc.Version, ID: m.nextID, Result: call.Arguments}, nil
	}

	result, ok := m.results[method]
	if !ok {
		return jsonrpc.NewErrorResponse(m.nextID, jsonrpc.CodeMethodNotFound, "Method not found"), nil
	}

	return jsonrpc.NewResultResponse(m.nextID, result)
}

func (m *mockTransport) SendNotification(context.Context, string, any) error {
	return nil
}

func (m *mockTransport) setReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ready = ready
}

func (m *mockTransport) stopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.stops
}

func (m *mockTransport) startCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.starts
}

func testOptions(transport config.Transport) *config.Options {
	return &config.Options{Transport: transport, SettleDelay: -1, StartRetryDelay: time.Millisecond}
}

func TestClient_Lifecycle(t *testing.T) {
	transport := newMockTransport()
	c := New()

	require.Equal(t, protocol.StateUninitialized, c.State())

	_, err := c.ListTools(context.Background())
	require.ErrorIs(t, err, errors.ErrNotInitialized)

	require.NoError(t, c.Start(context.Background(), testOptions(transport)))
	require.ErrorIs(t, c.Start(context.Background(), testOptions(transport)), errors.ErrTransportAlreadyStarted)

	_, err = c.CallTool(context.Background(), "echo", nil)
	require.ErrorIs(t, err, errors.ErrNotInitialized, "started but not initialized")

	require.NoError(t, c.Initialize(context.Background()))
	require.Equal(t, protocol.StateReady, c.State())
	require.Equal(t, "mock", c.ServerInfo().Name)

	tools, err := c.Tools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	require.Equal(t, "object", tools[0].SchemaType())

	resp, err := c.CallTool(context.Background(), "echo", map[string]any{"x": 1})
	require.NoError(t, err)
	require.JSONEq(t, `{"x":1}`, string(resp.Result))

	require.NoError(t, c.Ping(context.Background()))

	resp, err = c.ServerInfoRequest(context.Background())
	require.NoError(t, err)
	require.True(t, resp.IsError())

	require.NoError(t, c.Stop(context.Background()))
	require.NoError(t, c.Stop(context.Background()))
	require.Nil(t, c.ServerInfo())

	require.NoError(t, c.Start(context.Background(), testOptions(transport)), "restart after stop")
	require.Equal(t, protocol.StateUninitialized, c.State(), "a restarted client needs a new handshake")
}

func TestClient_StartStopsTransportThatIsNoLongerReady(t *testing.T) {
	first, second := newMockTransport(), newMockTransport()
	c := New()

	require.NoError(t, c.Start(context.Background(), testOptions(first)))
	require.NoError(t, c.Initialize(context.Background()))

	first.setReady(false)

	require.NoError(t, c.Start(context.Background(), testOptions(second)))
	require.Equal(t, 1, first.stopCount())
	require.Equal(t, 0, second.stopCount())
	require.Equal(t, protocol.StateUninitialized, c.State())

	require.NoError(t, c.Stop(context.Background()))
	require.Equal(t, 1, first.stopCount())
	require.Equal(t, 1, second.stopCount())
}

func TestClient_StartValidatesOptions(t *testing.T) {
	require.EqualError(t, New().Start(context.Background(), &config.Options{}), "command is required")
	require.Error(t, New().Start(context.Background(), nil))
}

func TestClient_StartRetriesStartupTimeout(t *testing.T) {
	timeout := &errors.StartupTimeoutError{Signal: "ready", Timeout: time.Second}
	transport := newMockTransport(timeout, timeout)

	opts := testOptions(transport)
	opts.StartRetries = 3

	require.NoError(t, New().Start(context.Background(), opts))
	require.Equal(t, 3, transport.startCount())
}

func TestClient_StartRetriesExhausted(t *testing.T) {
	timeout := &errors.StartupTimeoutError{Signal: "ready", Timeout: time.Second}
	transport := newMockTransport(timeout, timeout, timeout)

	opts := testOptions(transport)
	opts.StartRetries = 1

	err := New().Start(context.Background(), opts)
	require.ErrorIs(t, err, timeout)
	require.Equal(t, 2, transport.startCount())
}

func TestClient_SpawnErrorIsNotRetried(t *testing.T) {
	spawnErr := &errors.SpawnError{Command: "npx", Err: context.Canceled}
	transport := newMockTransport(spawnErr)

	opts := testOptions(transport)
	opts.StartRetries = 5

	err := New().Start(context.Background(), opts)

	got, ok := stderrors.AsType[*errors.SpawnError](err)
	require.True(t, ok, "expected SpawnError, got %v", err)
	require.Equal(t, "npx", got.Command)
	require.Equal(t, 1, transport.startCount())
}

func TestClient_NoRetriesByDefault(t *testing.T) {
	transport := newMockTransport(&errors.StartupTimeoutError{Signal: "ready", Timeout: time.Second})

	require.Error(t, New().Start(context.Background(), testOptions(transport)))
	require.Equal(t, 1, transport.startCount())
}
