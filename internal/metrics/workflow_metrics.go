package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// WorkflowMetrics provides metrics collection for analysis, refinement and export requests
type WorkflowMetrics struct {
	requestsStartedCounter  metric.Int64Counter
	requestsFinishedCounter metric.Int64Counter
	requestDurationHist     metric.Float64Histogram
	requestsActiveGauge     metric.Int64UpDownCounter
	exportsCounter          metric.Int64Counter
}

// NewWorkflowMetrics creates a new workflow metrics collector on the global
// meter provider
func NewWorkflowMetrics() (*WorkflowMetrics, error) {
	return NewWorkflowMetricsWithMeter(otel.Meter("requirement-refiner"))
}

// NewWorkflowMetricsWithMeter creates a workflow metrics collector on meter
func NewWorkflowMetricsWithMeter(meter metric.Meter) (*WorkflowMetrics, error) {
	requestsStartedCounter, err := meter.Int64Counter(
		"requirement_refiner.requests.started",
		metric.WithDescription("Total number of analysis and refinement requests issued"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	requestsFinishedCounter, err := meter.Int64Counter(
		"requirement_refiner.requests.finished",
		metric.WithDescription("Total number of analysis and refinement requests by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	requestDurationHist, err := meter.Float64Histogram(
		"requirement_refiner.request.duration",
		metric.WithDescription("Duration of analysis and refinement requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestsActiveGauge, err := meter.Int64UpDownCounter(
		"requirement_refiner.requests.active",
		metric.WithDescription("Number of requests currently in flight"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	exportsCounter, err := meter.Int64Counter(
		"requirement_refiner.exports",
		metric.WithDescription("Total number of document exports by format and status"),
		metric.WithUnit("{export}"),
	)
	if err != nil {
		return nil, err
	}

	return &WorkflowMetrics{
		requestsStartedCounter:  requestsStartedCounter,
		requestsFinishedCounter: requestsFinishedCounter,
		requestDurationHist:     requestDurationHist,
		requestsActiveGauge:     requestsActiveGauge,
		exportsCounter:          exportsCounter,
	}, nil
}

// RecordRequestStarted records a request leaving the client
func (wm *WorkflowMetrics) RecordRequestStarted(ctx context.Context, operation string) {
	wm.requestsStartedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("operation", operation)),
	)
	wm.requestsActiveGauge.Add(ctx, 1,
		metric.WithAttributes(attribute.String("operation", operation)),
	)
}

// RecordRequestFinished records the classified outcome of a request
func (wm *WorkflowMetrics) RecordRequestFinished(ctx context.Context, operation, outcome string, duration time.Duration) {
	wm.requestsFinishedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		),
	)
	wm.requestDurationHist.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		),
	)
	wm.requestsActiveGauge.Add(ctx, -1,
		metric.WithAttributes(attribute.String("operation", operation)),
	)
}

// RecordExport records a finished export attempt
func (wm *WorkflowMetrics) RecordExport(ctx context.Context, format string, succeeded bool, duration time.Duration) {
	status := "saved"
	if !succeeded {
		status = "failed"
	}
	wm.exportsCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("format", format),
			attribute.String("status", status),
		),
	)
	wm.requestDurationHist.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("operation", "export_"+format),
			attribute.String("outcome", status),
		),
	)
}
