package protocol

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wagiedev/mcp-stdio-go/internal/config"
	"github.com/wagiedev/mcp-stdio-go/internal/errors"
	"github.com/wagiedev/mcp-stdio-go/internal/jsonrpc"
)

// MCP method names used by the session.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
	MethodServerInfo  = "server/info"
	MethodPing        = "ping"
)

// State is the handshake state of a session.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ServerInfo is what the server reported in its initialize result.
type ServerInfo struct {
	Name            string
	Version         string
	ProtocolVersion string
	Capabilities    map[string]any
	Instructions    string
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      clientInfo     `json:"clientInfo"`
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      clientInfo     `json:"serverInfo"`
	Instructions    string         `json:"instructions"`
}

type callToolParams struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments"`
}

// Session performs the MCP handshake over a transport and issues the
// high-level requests once the handshake has completed.
type Session struct {
	log       *slog.Logger
	transport config.Transport
	options   *config.Options

	mu         sync.RWMutex
	state      State
	serverInfo *ServerInfo
}

// NewSession creates a session over transport. The options are copied and
// defaulted.
func NewSession(log *slog.Logger, transport config.Transport, options *config.Options) *Session {
	opts := *options
	opts.ApplyDefaults()

	return &Session{
		log:       log.With("component", "session"),
		transport: transport,
		options:   &opts,
	}
}

// State returns the handshake state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// ServerInfo returns the initialize result, or nil before the session is ready.
func (s *Session) ServerInfo() *ServerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.serverInfo
}

// Initialize runs the handshake: the initialize request, the initialized
// notification, then the settle delay. It is accepted once; a failed session
// stays failed.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()

	switch s.state {
	case StateInitializing, StateReady:
		s.mu.Unlock()

		return errors.ErrAlreadyInitialized
	case StateFailed:
		s.mu.Unlock()

		return errors.ErrSessionFailed
	}

	s.state = StateInitializing
	s.mu.Unlock()

	info, err := s.handshake(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = StateFailed
		s.mu.Unlock()

		s.log.Error("Handshake failed", "error", err)

		return err
	}

	s.mu.Lock()
	s.state = StateReady
	s.serverInfo = info
	s.mu.Unlock()

	s.log.Info("Session ready",
		"server", info.Name,
		"server_version", info.Version,
		"protocol_version", info.ProtocolVersion,
	)

	return nil
}

func (s *Session) handshake(ctx context.Context) (*ServerInfo, error) {
	capabilities := s.options.Capabilities
	if capabilities == nil {
		capabilities = map[string]any{}
	}

	params := initializeParams{
		ProtocolVersion: s.options.ProtocolVersion,
		Capabilities:    capabilities,
		ClientInfo: clientInfo{
			Name:    s.options.ClientName,
			Version: s.options.ClientVersion,
		},
	}

	s.log.Debug("Sending initialize request", "protocol_version", params.ProtocolVersion)

	resp, err := s.transport.SendRequest(ctx, MethodInitialize, params, s.options.InitializeTimeout)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("initialize: %w", resp.Error)
	}

	if !isObject(resp.Result) {
		return nil, fmt.Errorf("initialize: result is not an object: %s", resp.Result)
	}

	var result initializeResult
	if err := resp.DecodeResult(&result); err != nil {
		return nil, fmt.Errorf("initialize: decode result: %w", err)
	}

	if err := s.transport.SendNotification(ctx, MethodInitialized, nil); err != nil {
		return nil, fmt.Errorf("send initialized notification: %w", err)
	}

	if s.options.SettleDelay > 0 {
		timer := time.NewTimer(s.options.SettleDelay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return &ServerInfo{
		Name:            result.ServerInfo.Name,
		Version:         result.ServerInfo.Version,
		ProtocolVersion: result.ProtocolVersion,
		Capabilities:    result.Capabilities,
		Instructions:    result.Instructions,
	}, nil
}

// ListTools requests the server's tool catalogue. The raw response is
// returned; a JSON-RPC error is data, not an error.
func (s *Session) ListTools(ctx context.Context) (*jsonrpc.Response, error) {
	return s.request(ctx, MethodToolsList, nil, s.options.ListToolsTimeout)
}

// CallTool invokes a tool by name. Nil arguments are sent as an empty object.
func (s *Session) CallTool(ctx context.Context, name string, arguments map[string]any) (*jsonrpc.Response, error) {
	if arguments == nil {
		arguments = map[string]any{}
	}

	return s.request(ctx, MethodToolsCall, callToolParams{Name: name, Arguments: arguments}, s.options.CallToolTimeout)
}

// ServerInfoRequest sends server/info. Many servers answer method-not-found,
// which comes back as an error response.
func (s *Session) ServerInfoRequest(ctx context.Context) (*jsonrpc.Response, error) {
	return s.request(ctx, MethodServerInfo, nil, s.options.RequestTimeout)
}

// Ping checks that the server is responsive.
func (s *Session) Ping(ctx context.Context) error {
	resp, err := s.request(ctx, MethodPing, nil, s.options.RequestTimeout)
	if err != nil {
		return err
	}

	if resp.IsError() {
		return resp.Error
	}

	return nil
}

func (s *Session) request(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
) (*jsonrpc.Response, error) {
	if s.State() != StateReady {
		return nil, errors.ErrNotInitialized
	}

	return s.transport.SendRequest(ctx, method, params, timeout)
}

func isObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) > 0 && trimmed[0] == '{'
}
