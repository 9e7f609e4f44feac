package mcpstdio

import (
	"log/slog"
	"maps"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithCommand sets the server executable and its arguments.
func WithCommand(command string, args ...string) Option {
	return func(o *Options) {
		o.Command = command
		o.Args = args
	}
}

// WithArgs replaces the arguments passed to the server executable.
func WithArgs(args ...string) Option {
	return func(o *Options) {
		o.Args = args
	}
}

// WithEnv provides additional environment variables for the server process.
// Repeated calls merge; later values win.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string, len(env))
		}

		maps.Copy(o.Env, env)
	}
}

// WithCwd sets the working directory for the server process.
func WithCwd(cwd string) Option {
	return func(o *Options) {
		o.Cwd = cwd
	}
}

// WithReadySignal sets the stderr substring that marks the server as ready.
func WithReadySignal(signal string) Option {
	return func(o *Options) {
		o.ReadySignal = signal
	}
}

// ===== Timeouts =====

// WithStartupTimeout bounds the wait for the ready signal.
func WithStartupTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.StartupTimeout = d
	}
}

// WithShutdownGrace sets how long Stop waits after SIGTERM before killing.
func WithShutdownGrace(d time.Duration) Option {
	return func(o *Options) {
		o.ShutdownGrace = d
	}
}

// WithWriteTimeout bounds a single blocked write to the server's stdin.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.WriteTimeout = d
	}
}

// WithInitializeTimeout bounds the wait for the initialize response.
func WithInitializeTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.InitializeTimeout = d
	}
}

// WithSettleDelay sets the pause after notifications/initialized.
// A negative value disables the pause.
func WithSettleDelay(d time.Duration) Option {
	return func(o *Options) {
		o.SettleDelay = d
	}
}

// WithListToolsTimeout bounds tools/list.
func WithListToolsTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ListToolsTimeout = d
	}
}

// WithCallToolTimeout bounds tools/call.
func WithCallToolTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.CallToolTimeout = d
	}
}

// WithRequestTimeout bounds ping and server/info.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.RequestTimeout = d
	}
}

// ===== Retry =====

// WithStartRetries retries Start after a startup timeout, up to retries
// extra attempts with exponential backoff starting at delay. A zero delay
// keeps the default.
func WithStartRetries(retries int, delay time.Duration) Option {
	return func(o *Options) {
		o.StartRetries = retries
		o.StartRetryDelay = delay
	}
}

// ===== Output =====

// WithStderr sets a callback invoked for every stderr line of the server.
func WithStderr(handler func(string)) Option {
	return func(o *Options) {
		o.Stderr = handler
	}
}

// WithNotificationHandler sets a callback for server notifications.
// It runs on the output reader goroutine and must not block.
func WithNotificationHandler(handler func(*Notification)) Option {
	return func(o *Options) {
		o.NotificationHandler = handler
	}
}

// WithDiagnosticLines sets how many recent stderr lines startup and exit
// errors carry.
func WithDiagnosticLines(n int) Option {
	return func(o *Options) {
		o.DiagnosticLines = n
	}
}

// WithStderrBufferLines caps the retained stderr history.
func WithStderrBufferLines(n int) Option {
	return func(o *Options) {
		o.StderrBufferLines = n
	}
}

// WithMaxLineSize sets the longest stdout or stderr line accepted, in bytes.
func WithMaxLineSize(n int) Option {
	return func(o *Options) {
		o.MaxLineSize = n
	}
}

// ===== Handshake =====

// WithClientInfo sets the client name and version sent in initialize.
func WithClientInfo(name, version string) Option {
	return func(o *Options) {
		o.ClientName = name
		o.ClientVersion = version
	}
}

// WithProtocolVersion sets the protocol version sent in initialize.
func WithProtocolVersion(version string) Option {
	return func(o *Options) {
		o.ProtocolVersion = version
	}
}

// WithCapabilities sets the client capabilities advertised in initialize.
func WithCapabilities(capabilities map[string]any) Option {
	return func(o *Options) {
		o.Capabilities = capabilities
	}
}

// ===== Telemetry =====

// WithMeterProvider sets the meter provider for transport metrics.
// If not set, the global provider is used.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *Options) {
		o.MeterProvider = provider
	}
}

// WithTracerProvider sets the tracer provider for request spans.
// If not set, the global provider is used.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *Options) {
		o.TracerProvider = provider
	}
}

// ===== Advanced =====

// WithSpawner replaces the os/exec process launcher.
func WithSpawner(spawner Spawner) Option {
	return func(o *Options) {
		o.Spawner = spawner
	}
}

// WithTransport injects a custom transport implementation.
// When set, process options such as WithCommand are ignored.
func WithTransport(transport Transport) Option {
	return func(o *Options) {
		o.Transport = transport
	}
}
