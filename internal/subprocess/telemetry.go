package subprocess

import (
	"context"
	stderrors "errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/wagiedev/mcp-stdio-go/internal/errors"
	"github.com/wagiedev/mcp-stdio-go/internal/jsonrpc"
)

const instrumentationName = "github.com/wagiedev/mcp-stdio-go"

// Request outcomes recorded on the mcpstdio.requests counter.
const (
	outcomeOK             = "ok"
	outcomeErrorResponse  = "error_response"
	outcomeTimeout        = "timeout"
	outcomeTransportError = "transport_error"
)

// telemetry holds the instruments a transport records into.
type telemetry struct {
	tracer trace.Tracer

	requests  metric.Int64Counter
	duration  metric.Float64Histogram
	dropped   metric.Int64Counter
	malformed metric.Int64Counter
}

func newTelemetry(mp metric.MeterProvider, tp trace.TracerProvider) *telemetry {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	meter := mp.Meter(instrumentationName)

	// Instrument creation only fails on invalid names; the no-op fallbacks
	// returned alongside the error are still usable.
	requests, _ := meter.Int64Counter(
		"mcpstdio.requests",
		metric.WithDescription("Requests sent to the server, by method and outcome"),
		metric.WithUnit("{request}"),
	)

	duration, _ := meter.Float64Histogram(
		"mcpstdio.request.duration",
		metric.WithDescription("Time from writing a request to receiving its response"),
		metric.WithUnit("ms"),
	)

	dropped, _ := meter.Int64Counter(
		"mcpstdio.responses.dropped",
		metric.WithDescription("Responses with no pending request"),
		metric.WithUnit("{response}"),
	)

	malformed, _ := meter.Int64Counter(
		"mcpstdio.parse_errors",
		metric.WithDescription("Stdout lines that were not valid JSON-RPC messages"),
		metric.WithUnit("{line}"),
	)

	return &telemetry{
		tracer:    tp.Tracer(instrumentationName),
		requests:  requests,
		duration:  duration,
		dropped:   dropped,
		malformed: malformed,
	}
}

func (m *telemetry) startRequest(ctx context.Context, method string, id int64) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "mcpstdio."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", method),
			attribute.Int64("rpc.jsonrpc.request_id", id),
		),
	)
}

func (m *telemetry) endRequest(
	ctx context.Context,
	span trace.Span,
	method string,
	start time.Time,
	resp *jsonrpc.Response,
	err error,
) {
	outcome := outcomeOK

	switch {
	case err != nil:
		outcome = outcomeTransportError

		if stderrors.Is(err, errors.ErrRequestTimeout) {
			outcome = outcomeTimeout
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case resp.IsError():
		outcome = outcomeErrorResponse

		span.SetAttributes(attribute.Int("rpc.jsonrpc.error_code", resp.Error.Code))
		span.SetStatus(codes.Error, resp.Error.Message)
	default:
		span.SetStatus(codes.Ok, "")
	}

	attrs := metric.WithAttributes(
		attribute.String("rpc.method", method),
		attribute.String("outcome", outcome),
	)

	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
}

func (m *telemetry) responseDropped() {
	m.dropped.Add(context.Background(), 1)
}

func (m *telemetry) parseError() {
	m.malformed.Add(context.Background(), 1)
}
