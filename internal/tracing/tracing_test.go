package tracing

import (
	"context"
	"net/http"
	"testing"

	"github.com/ghaggin/courseweb/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestNew_installsGlobals(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	lc := fxtest.NewLifecycle(t)
	tp, err := New(Params{
		Lifecycle: lc,
		Config:    &config.Config{Tracing: config.Tracing{ServiceName: "courseweb"}},
		Log:       zap.NewNop(),
	})
	require.NoError(err)
	lc.RequireStart()

	ctx, span := otel.Tracer("test").Start(context.Background(), "op")
	assert.True(span.IsRecording())
	assert.True(span.SpanContext().IsValid())

	header := http.Header{}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(header))
	assert.Contains(header.Get("traceparent"), span.SpanContext().TraceID().String())
	span.End()

	assert.NotNil(tp)
	lc.RequireStop()
}

func TestNewProvider_withEndpoint(t *testing.T) {
	tp, err := NewProvider(context.Background(), config.Tracing{
		Endpoint:    "http://127.0.0.1:4318",
		ServiceName: "courseweb",
	})
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}
