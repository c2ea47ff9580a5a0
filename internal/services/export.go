package services

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"requirement-refiner/internal/config"
	"requirement-refiner/internal/helpers"
	"requirement-refiner/internal/metrics"
	"requirement-refiner/internal/models"
)

// DocumentAPI renders a report as a downloadable document
type DocumentAPI interface {
	Export(ctx context.Context, format models.ExportFormat, report *models.Report) ([]byte, error)
}

// Saver stores a downloaded document under a file name
type Saver interface {
	Save(name string, data []byte) (string, error)
}

// Exporter downloads rendered reports and saves them locally
type Exporter struct {
	api      DocumentAPI
	saver    Saver
	retryCfg retry.Config
	metrics  *metrics.WorkflowMetrics
}

// NewExporter creates an exporter from the export configuration
func NewExporter(api DocumentAPI, saver Saver, exportConfig *config.ExportConfig, m *metrics.WorkflowMetrics) *Exporter {
	return &Exporter{
		api:   api,
		saver: saver,
		retryCfg: retry.Config{
			MaxAttempts:   exportConfig.RetryCount,
			InitialDelay:  time.Duration(exportConfig.RetryDelaySeconds) * time.Second,
			BackoffPolicy: retry.BackoffExponential,
		},
		metrics: m,
	}
}

// Export downloads report in the given format and saves it under the
// format's fixed file name. Failures are reported as diagnostics.
func (e *Exporter) Export(ctx context.Context, format models.ExportFormat, report *models.Report) (string, error) {
	start := time.Now()
	path, err := e.export(ctx, format, report)

	if e.metrics != nil {
		e.metrics.RecordExport(ctx, string(format), err == nil, time.Since(start))
	}
	if err != nil {
		helpers.PrintDiagnostic("Export to %s failed: %v", format, err)
		return "", err
	}

	return path, nil
}

func (e *Exporter) export(ctx context.Context, format models.ExportFormat, report *models.Report) (string, error) {
	name := format.Filename()
	if name == "" {
		return "", fmt.Errorf("unsupported export format %q", format)
	}

	r := retry.New[[]byte](e.retryCfg)
	data, err := r.Do(ctx, func(ctx context.Context) ([]byte, error) {
		return e.api.Export(ctx, format, report)
	})
	if err != nil {
		return "", fmt.Errorf("failed to download %s document: %w", format, err)
	}

	path, err := e.saver.Save(name, data)
	if err != nil {
		return "", fmt.Errorf("failed to save %s document: %w", format, err)
	}

	return path, nil
}
