package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"

	"requirement-refiner/internal/metrics"
	"requirement-refiner/internal/models"
)

func TestParseFormats(t *testing.T) {
	formats, err := parseFormats([]string{"PDF", " word", "docx", "pdf"})
	require.NoError(t, err)
	assert.Equal(t, []models.ExportFormat{models.FormatPDF, models.FormatWord}, formats)

	_, err = parseFormats([]string{"odt"})
	assert.ErrorContains(t, err, "unsupported export format")
}

func TestSectionChanges(t *testing.T) {
	tests := []struct {
		name     string
		expand   []string
		collapse []string
		expected []string
		err      string
	}{
		{name: "defaults", expected: nil},
		{name: "expand hidden section", expand: []string{"edge_cases"}, expected: []string{"edge_cases"}},
		{name: "expand visible section is a no-op", expand: []string{"classification"}, expected: nil},
		{name: "collapse visible section", collapse: []string{"user_stories"}, expected: []string{"user_stories"}},
		{name: "unknown section", expand: []string{"glossary"}, err: "unknown report section"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toggles, err := sectionChanges(tt.expand, tt.collapse)
			if tt.err != "" {
				assert.ErrorContains(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, toggles)
		})
	}
}

func TestInitMeter(t *testing.T) {
	t.Cleanup(func() { otel.SetMeterProvider(noop.NewMeterProvider()) })

	t.Run("writes recorded requests to the metrics file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "metrics.json")
		shutdown, err := initMeter(path, time.Hour)
		require.NoError(t, err)

		workflowMetrics, err := metrics.NewWorkflowMetrics()
		require.NoError(t, err)
		workflowMetrics.RecordRequestStarted(context.Background(), "analyze")
		workflowMetrics.RecordRequestFinished(context.Background(), "analyze", "success", time.Second)
		shutdown()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "requirement_refiner.requests.started")
		assert.Contains(t, string(data), "requirement_refiner.requests.finished")
	})

	t.Run("empty path is a no-op", func(t *testing.T) {
		shutdown, err := initMeter("", time.Hour)
		require.NoError(t, err)
		assert.NotPanics(t, shutdown)
	})
}
