package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"requirement-refiner/internal/config"
	"requirement-refiner/internal/models"
)

const (
	analyzePath = "/refine"
	refinePath  = "/refine-followup"

	sessionHeader = "X-Session-ID"
)

// RequestError describes a request that reached the transport but did not
// produce a successful response
type RequestError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s request failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: service returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// StatusOf reports the HTTP status carried by err. ok is false when err did
// not come from the transport at all, e.g. an undecodable body or an open
// circuit breaker.
func StatusOf(err error) (status int, ok bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode, true
	}
	return 0, false
}

type sessionKey struct{}

// ContextWithSessionID tags outgoing requests made with ctx with a session id
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// RefinerRepository handles requirement analysis service interactions
type RefinerRepository struct {
	baseURL string
	client  *http.Client
	tracer  trace.Tracer

	// analysis and export traffic trip independently
	breaker       *gobreaker.CircuitBreaker
	exportBreaker *gobreaker.CircuitBreaker
}

// NewRefinerRepository creates a new analysis service repository
func NewRefinerRepository(serviceConfig *config.ServiceConfig) *RefinerRepository {
	return &RefinerRepository{
		baseURL: strings.TrimRight(serviceConfig.BaseURL, "/"),
		client: &http.Client{
			Timeout: time.Duration(serviceConfig.TimeoutSeconds) * time.Second,
		},
		tracer:        otel.Tracer("requirement-refiner-client"),
		breaker:       newBreaker("requirement-refiner", serviceConfig),
		exportBreaker: newBreaker("requirement-refiner-export", serviceConfig),
	}
}

func newBreaker(name string, serviceConfig *config.ServiceConfig) *gobreaker.CircuitBreaker {
	maxFailures := uint32(serviceConfig.BreakerMaxFailures)
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     time.Duration(serviceConfig.BreakerOpenSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return maxFailures > 0 && counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: isHealthy,
	})
}

// isHealthy reports whether err leaves the service looking reachable. Only
// missing responses and 5xx statuses count against the breaker.
func isHealthy(err error) bool {
	if err == nil {
		return true
	}
	status, ok := StatusOf(err)
	return ok && status != 0 && status < 500
}

// Analyze submits a raw requirement for analysis
func (r *RefinerRepository) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	body, err := r.post(ctx, "analyze", analyzePath, req)
	if err != nil {
		return nil, err
	}

	var resp models.AnalyzeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode analyze response: %w", err)
	}

	return &resp, nil
}

// Refine applies an instruction to the current draft report
func (r *RefinerRepository) Refine(ctx context.Context, req models.RefineRequest) (*models.RefineResponse, error) {
	body, err := r.post(ctx, "refine", refinePath, req)
	if err != nil {
		return nil, err
	}

	var resp models.RefineResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode refine response: %w", err)
	}

	return &resp, nil
}

// Export renders the report as a document and returns its bytes
func (r *RefinerRepository) Export(ctx context.Context, format models.ExportFormat, report *models.Report) ([]byte, error) {
	path := format.Endpoint()
	if path == "" {
		return nil, fmt.Errorf("unsupported export format %q", format)
	}

	return r.send(ctx, r.exportBreaker, "export_"+string(format), path, report)
}

// post sends payload as JSON through the analysis circuit breaker and returns the body
func (r *RefinerRepository) post(ctx context.Context, op, path string, payload interface{}) ([]byte, error) {
	return r.send(ctx, r.breaker, op, path, payload)
}

func (r *RefinerRepository) send(ctx context.Context, breaker *gobreaker.CircuitBreaker, op, path string, payload interface{}) ([]byte, error) {
	ctx, span := r.tracer.Start(ctx, "refiner."+op)
	defer span.End()

	span.SetAttributes(attribute.String("refiner.path", path))

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")
	if id, ok := ctx.Value(sessionKey{}).(string); ok && id != "" {
		req.Header.Set(sessionHeader, id)
		span.SetAttributes(attribute.String("session.id", id))
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	result, err := breaker.Execute(func() (interface{}, error) {
		return r.do(op, req)
	})
	if err != nil {
		span.RecordError(err)
		if status, ok := StatusOf(err); ok && status != 0 {
			span.SetAttributes(attribute.Int("http.status_code", status))
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s request not sent: %w", op, err)
		}
		return nil, err
	}

	return result.([]byte), nil
}

// do performs the HTTP round trip
func (r *RefinerRepository) do(op string, req *http.Request) ([]byte, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &RequestError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Op: op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	return body, nil
}
