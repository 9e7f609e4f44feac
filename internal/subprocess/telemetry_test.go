package subprocess

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/wagiedev/mcp-stdio-go/internal/config"
	"github.com/wagiedev/mcp-stdio-go/internal/jsonrpc"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Sum[int64] {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]metricdata.Sum[int64]{}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				sums[m.Name] = sum
			}
		}
	}

	return sums
}

func TestTelemetry_RecordsRequestsAndSpans(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	recorder := tracetest.NewSpanRecorder()
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	proc := newFakeProcess(1)
	proc.serve(func(msg jsonrpc.Message) {
		req := msg.(*jsonrpc.Request)
		proc.send("not json")
		proc.respond(req.ID+500, "orphan")

		if req.Method == "tools/list" {
			proc.respond(req.ID, map[string]any{"tools": []any{}})
		}
	})

	transport, _ := newTestTransport(t, &config.Options{
		MeterProvider:  meterProvider,
		TracerProvider: tracerProvider,
	}, proc)
	require.NoError(t, transport.Start(context.Background()))

	_, err := transport.SendRequest(context.Background(), "tools/list", nil, time.Second)
	require.NoError(t, err)

	_, err = transport.SendRequest(context.Background(), "tools/call", nil, 50*time.Millisecond)
	require.Error(t, err)

	sums := collectSums(t, reader)

	requests := sums["mcpstdio.requests"]
	outcomes := map[string]int64{}

	for _, dp := range requests.DataPoints {
		outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
		outcomes[outcome.AsString()] += dp.Value
	}

	require.Equal(t, map[string]int64{outcomeOK: 1, outcomeTimeout: 1}, outcomes)

	require.Eventually(t, func() bool {
		sums := collectSums(t, reader)
		parseErrors := sums["mcpstdio.parse_errors"].DataPoints
		dropped := sums["mcpstdio.responses.dropped"].DataPoints

		return len(parseErrors) == 1 && parseErrors[0].Value == 2 &&
			len(dropped) == 1 && dropped[0].Value == 2
	}, time.Second, 10*time.Millisecond)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	require.Equal(t, "mcpstdio.tools/list", spans[0].Name())
	require.Equal(t, "mcpstdio.tools/call", spans[1].Name())
}
