package config

import (
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/wagiedev/mcp-stdio-go/internal/jsonrpc"
)

// Default values applied by Options.ApplyDefaults.
const (
	DefaultStartupTimeout    = 20 * time.Second
	DefaultShutdownGrace     = 5 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultInitializeTimeout = 15 * time.Second
	DefaultSettleDelay       = 1 * time.Second
	DefaultListToolsTimeout  = 15 * time.Second
	DefaultCallToolTimeout   = 30 * time.Second
	DefaultRequestTimeout    = 10 * time.Second
	DefaultStartRetryDelay   = 500 * time.Millisecond
	DefaultDiagnosticLines   = 10
	DefaultStderrBufferLines = 1000
	DefaultMaxLineSize       = 1024 * 1024 // 1MB

	DefaultProtocolVersion = "2024-11-05"
	DefaultClientName      = "mcpstdio"
	DefaultClientVersion   = "0.1.0"
)

// Options configures a transport and the session layered on it.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// Command is the server executable. It is resolved through PATH.
	Command string

	// Args are passed to Command.
	Args []string

	// Env adds environment variables for the server process on top of the
	// current environment. Credentials the server needs belong here.
	Env map[string]string

	// Cwd sets the working directory for the server process.
	Cwd string

	// ReadySignal is a substring the server prints on stderr once it accepts
	// requests. If empty, Start returns as soon as the process is spawned.
	ReadySignal string

	// StartupTimeout bounds the wait for ReadySignal.
	StartupTimeout time.Duration

	// ShutdownGrace is how long Stop waits after SIGTERM before killing.
	ShutdownGrace time.Duration

	// WriteTimeout bounds a single blocked write to stdin.
	WriteTimeout time.Duration

	// DiagnosticLines is how many recent stderr lines a StartupTimeoutError carries.
	DiagnosticLines int

	// StderrBufferLines caps the stderr ring buffer.
	StderrBufferLines int

	// MaxLineSize is the longest stdout or stderr line accepted, in bytes.
	MaxLineSize int

	// Stderr is a callback function for handling stderr output.
	Stderr func(string)

	// NotificationHandler receives notifications sent by the server.
	// It runs on the output reader goroutine and must not block.
	NotificationHandler func(*jsonrpc.Notification)

	// ProtocolVersion is sent in the initialize request.
	ProtocolVersion string

	// ClientName and ClientVersion identify this client in the initialize request.
	ClientName    string
	ClientVersion string

	// Capabilities are the client capabilities advertised during initialize.
	Capabilities map[string]any

	// InitializeTimeout bounds the wait for the initialize response.
	InitializeTimeout time.Duration

	// SettleDelay is the pause after notifications/initialized before the
	// session reports ready.
	SettleDelay time.Duration

	// ListToolsTimeout and CallToolTimeout bound tools/list and tools/call.
	ListToolsTimeout time.Duration
	CallToolTimeout  time.Duration

	// RequestTimeout bounds other requests (ping, server/info).
	RequestTimeout time.Duration

	// StartRetries is how many extra Start attempts are made after a
	// StartupTimeoutError. Zero disables retries.
	StartRetries int

	// StartRetryDelay is the first backoff interval between Start attempts.
	StartRetryDelay time.Duration

	// MeterProvider and TracerProvider receive transport telemetry.
	// If nil, the global providers are used.
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider

	// Spawner creates the server process. If nil, os/exec is used.
	Spawner Spawner `json:"-"`

	// Transport allows injecting a custom transport implementation.
	// If nil, the default stdio transport is created automatically.
	Transport Transport `json:"-"`
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (o *Options) ApplyDefaults() {
	if o.StartupTimeout <= 0 {
		o.StartupTimeout = DefaultStartupTimeout
	}

	if o.ShutdownGrace <= 0 {
		o.ShutdownGrace = DefaultShutdownGrace
	}

	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}

	if o.DiagnosticLines <= 0 {
		o.DiagnosticLines = DefaultDiagnosticLines
	}

	if o.StderrBufferLines <= 0 {
		o.StderrBufferLines = DefaultStderrBufferLines
	}

	if o.MaxLineSize <= 0 {
		o.MaxLineSize = DefaultMaxLineSize
	}

	if o.ProtocolVersion == "" {
		o.ProtocolVersion = DefaultProtocolVersion
	}

	if o.ClientName == "" {
		o.ClientName = DefaultClientName
	}

	if o.ClientVersion == "" {
		o.ClientVersion = DefaultClientVersion
	}

	if o.InitializeTimeout <= 0 {
		o.InitializeTimeout = DefaultInitializeTimeout
	}

	// A negative settle delay disables it; zero means default.
	if o.SettleDelay == 0 {
		o.SettleDelay = DefaultSettleDelay
	}

	if o.ListToolsTimeout <= 0 {
		o.ListToolsTimeout = DefaultListToolsTimeout
	}

	if o.CallToolTimeout <= 0 {
		o.CallToolTimeout = DefaultCallToolTimeout
	}

	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}

	if o.StartRetryDelay <= 0 {
		o.StartRetryDelay = DefaultStartRetryDelay
	}
}

// Validate reports configuration that cannot work.
func (o *Options) Validate() error {
	if o.Transport == nil && o.Command == "" {
		return fmt.Errorf("command is required")
	}

	if o.StartRetries < 0 {
		return fmt.Errorf("start retries must not be negative, got %d", o.StartRetries)
	}

	return nil
}
