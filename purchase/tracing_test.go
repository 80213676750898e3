package purchase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func TestHandlePreCheckout_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	c := NewController(testProduct, &fakeInvoices{}, NewMemoryStore(), zap.NewNop())
	ctx := context.Background()
	req, err := c.InitiatePurchase(ctx, 7)
	require.NoError(t, err)

	c.HandlePreCheckout(ctx, preCheckout(req, 49))

	var found bool
	for _, span := range recorder.Ended() {
		if span.Name() != "HandlePreCheckout" {
			continue
		}
		found = true
		assert.Contains(t, span.Attributes(), attribute.String("payload.token", req.PayloadToken))
		assert.Contains(t, span.Attributes(), attribute.String("precheckout.decision", "decline"))
	}
	assert.True(t, found, "expected a HandlePreCheckout span")
}
