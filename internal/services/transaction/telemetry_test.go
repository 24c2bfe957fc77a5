package transaction

import (
	"context"
	"testing"

	apperrors "fraudguard/internal/errors"
	"fraudguard/internal/models"
	"fraudguard/internal/services/risk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func endedSpans(sr *tracetest.SpanRecorder, name string) []sdktrace.ReadOnlySpan {
	var out []sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		if s.Name() == name {
			out = append(out, s)
		}
	}
	return out
}

func TestCreateTransaction_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	h := newHarnessWithConfig(t, scoreByAmount(map[string]float64{"30000": 45, "60000": 12}), Config{TracerProvider: tp})
	h.fund(t, "250000")

	res, err := h.create(t, models.TransactionTypeExpense, "30000", "Payment to Grocer: weekly shop")
	require.NoError(t, err)
	require.Equal(t, risk.DispositionPending, res.Disposition)

	_, err = h.create(t, models.TransactionTypeExpense, "60000", "Payment to Landlord: rent")
	require.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

	spans := endedSpans(sr, "transaction.create")
	require.Len(t, spans, 3)

	pending := spans[1]
	v, ok := spanAttr(pending, "disposition")
	require.True(t, ok, "disposition attribute missing")
	assert.Equal(t, string(risk.DispositionPending), v.AsString())
	v, ok = spanAttr(pending, "reference")
	require.True(t, ok)
	assert.Equal(t, res.Transaction.Reference, v.AsString())
	v, ok = spanAttr(pending, "type")
	require.True(t, ok)
	assert.Equal(t, "EXPENSE", v.AsString())
	v, ok = spanAttr(pending, "scored")
	require.True(t, ok)
	assert.True(t, v.AsBool())
	assert.Equal(t, codes.Unset, pending.Status().Code)

	rejected := spans[2]
	_, ok = spanAttr(rejected, "disposition")
	assert.False(t, ok)
	assert.Equal(t, codes.Error, rejected.Status().Code)
	assert.NotEmpty(t, rejected.Events(), "error recorded on span")

	h.balance(t)
	balanceSpans := endedSpans(sr, "transaction.get_balance")
	require.Len(t, balanceSpans, 1)
	v, ok = spanAttr(balanceSpans[0], "is_synced")
	require.True(t, ok)
	assert.True(t, v.AsBool())
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestOtelMetricsCollector(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	collector, err := NewOtelMetricsCollector(mp.Meter(tracerName))
	require.NoError(t, err)

	h := newHarnessWithConfig(t, scoreByAmount(map[string]float64{"30000": 85}), Config{Metrics: collector})
	h.fund(t, "250000")

	_, err = h.create(t, models.TransactionTypeExpense, "30000", "Payment to Casino: chips")
	require.NoError(t, err)
	_, err = h.create(t, models.TransactionTypeExpense, "0", "nothing")
	require.Error(t, err)

	metrics := collect(t, reader)

	decisions, ok := metrics[MetricDecisions].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	byDisposition := map[string]int64{}
	for _, dp := range decisions.DataPoints {
		v, _ := dp.Attributes.Value("disposition")
		byDisposition[v.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{"COMPLETED": 1, "FAILED": 1}, byDisposition)

	errs, ok := metrics[MetricErrors].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, errs.DataPoints, 1)
	kind, _ := errs.DataPoints[0].Attributes.Value("kind")
	assert.Equal(t, "validation", kind.AsString())
	assert.Equal(t, int64(1), errs.DataPoints[0].Value)

	hist, ok := metrics[MetricOperationDuration].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}
