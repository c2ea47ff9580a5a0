package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestWorkflowMetrics_Creation(t *testing.T) {
	t.Run("successfully create workflow metrics", func(t *testing.T) {
		metrics, err := NewWorkflowMetrics()
		require.NoError(t, err)
		assert.NotNil(t, metrics)
		assert.NotNil(t, metrics.requestsStartedCounter)
		assert.NotNil(t, metrics.requestsFinishedCounter)
		assert.NotNil(t, metrics.requestDurationHist)
		assert.NotNil(t, metrics.requestsActiveGauge)
		assert.NotNil(t, metrics.exportsCounter)
	})
}

func TestWorkflowMetrics_RecordRequestLifecycle(t *testing.T) {
	metrics, err := NewWorkflowMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	outcomes := []string{"success", "validation_rejected", "service_error", "transport_error"}

	for _, outcome := range outcomes {
		t.Run(outcome, func(t *testing.T) {
			assert.NotPanics(t, func() {
				metrics.RecordRequestStarted(ctx, "analyze")
				metrics.RecordRequestFinished(ctx, "analyze", outcome, 250*time.Millisecond)
			})
		})
	}
}

func TestWorkflowMetrics_RecordExport(t *testing.T) {
	metrics, err := NewWorkflowMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		metrics.RecordExport(ctx, "pdf", true, time.Second)
		metrics.RecordExport(ctx, "word", false, 3*time.Second)
	})
}


func newCollectedMetrics(t *testing.T) (*WorkflowMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { provider.Shutdown(context.Background()) })

	metrics, err := NewWorkflowMetricsWithMeter(provider.Meter("requirement-refiner-test"))
	require.NoError(t, err)
	return metrics, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	byName := make(map[string]metricdata.Aggregation)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			byName[m.Name] = m.Data
		}
	}
	return byName
}

func TestWorkflowMetrics_RecordedValuesReachProvider(t *testing.T) {
	metrics, reader := newCollectedMetrics(t)
	ctx := context.Background()

	metrics.RecordRequestStarted(ctx, "analyze")
	metrics.RecordRequestFinished(ctx, "analyze", "validation_rejected", 200*time.Millisecond)
	metrics.RecordRequestStarted(ctx, "refine")
	metrics.RecordExport(ctx, "pdf", false, time.Second)

	data := collect(t, reader)

	started, ok := data["requirement_refiner.requests.started"].(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range started.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(2), total)

	finished, ok := data["requirement_refiner.requests.finished"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, finished.DataPoints, 1)
	outcome, _ := finished.DataPoints[0].Attributes.Value(attribute.Key("outcome"))
	assert.Equal(t, "validation_rejected", outcome.AsString())
	assert.Equal(t, int64(1), finished.DataPoints[0].Value)

	active, ok := data["requirement_refiner.requests.active"].(metricdata.Sum[int64])
	require.True(t, ok)
	for _, dp := range active.DataPoints {
		op, _ := dp.Attributes.Value(attribute.Key("operation"))
		if op.AsString() == "refine" {
			assert.Equal(t, int64(1), dp.Value)
		} else {
			assert.Equal(t, int64(0), dp.Value)
		}
	}

	exports, ok := data["requirement_refiner.exports"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, exports.DataPoints, 1)
	status, _ := exports.DataPoints[0].Attributes.Value(attribute.Key("status"))
	assert.Equal(t, "failed", status.AsString())

	durations, ok := data["requirement_refiner.request.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, durations.DataPoints, 2)
}
