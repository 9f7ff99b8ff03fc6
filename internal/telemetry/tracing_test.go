package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracerProviderRecordsAndPropagates(t *testing.T) {
	ctx := context.Background()
	recorder := tracetest.NewSpanRecorder()

	tp, err := InitTracerProvider(ctx, Config{ServiceName: "feed-snapshot", Version: "test"},
		sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	spanCtx, span := otel.Tracer("telemetry-test").Start(ctx, "snapshot.run")
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(spanCtx, carrier)
	span.End()

	assert.NotEmpty(t, carrier.Get("traceparent"))
	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "snapshot.run", ended[0].Name())

	var found bool
	for _, attr := range ended[0].Resource().Attributes() {
		if string(attr.Key) == "service.name" {
			found = attr.Value.AsString() == "feed-snapshot"
		}
	}
	assert.True(t, found, "expected service.name resource attribute")
}
