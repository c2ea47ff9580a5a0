package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"requirement-refiner/internal/helpers"
	"requirement-refiner/internal/metrics"
	"requirement-refiner/internal/models"
	"requirement-refiner/internal/repositories"
)

// Input rejections. None of them change session state.
var (
	ErrBlankInput       = errors.New("requirement text is blank")
	ErrBlankInstruction = errors.New("refinement instruction is blank")
	ErrRequestInFlight  = errors.New("a request is already in flight")
	ErrReportExists     = errors.New("requirement already analysed; start a new session to submit another")
	ErrNoReport         = errors.New("no report has been produced yet")
)

// AnalysisAPI is the remote requirement analysis service
type AnalysisAPI interface {
	Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResponse, error)
	Refine(ctx context.Context, req models.RefineRequest) (*models.RefineResponse, error)
}

// Phase is the user visible state of a session
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseSubmitting         Phase = "submitting"
	PhaseReport             Phase = "report"
	PhaseRefining           Phase = "refining"
	PhaseValidationRejected Phase = "validation_rejected"
	PhaseServiceError       Phase = "service_error"
	PhaseTransportError     Phase = "transport_error"
)

// Notice is a dismissible message shown to the user
type Notice struct {
	Visible bool
	Message string
}

// Session is a point-in-time copy of the workflow state
type Session struct {
	ID                  string
	Phase               Phase
	UserInput           string
	InputLocked         bool
	Instruction         string
	Analysis            *models.Report
	QualityBefore       *float64
	QualityAfter        *float64
	QualityBeforeReason string
	QualityAfterReason  string
	Loading             bool
	SelectedImage       *models.Attachment
	ValidationNotice    Notice
	ErrorNotice         Notice
	Sections            map[string]bool
	ExportsInFlight     int
}

// Workflow drives one requirement through analysis, refinement and export.
// All methods are safe for concurrent use.
type Workflow struct {
	api      AnalysisAPI
	exporter *Exporter
	metrics  *metrics.WorkflowMetrics
	tracer   trace.Tracer

	mu        sync.Mutex
	session   Session
	sections  *Sections
	machine   *WorkflowMachine
	errorKind OutcomeKind

	exports atomic.Int32
}

// NewWorkflow creates a workflow with a fresh session
func NewWorkflow(api AnalysisAPI, exporter *Exporter, m *metrics.WorkflowMetrics) (*Workflow, error) {
	w := &Workflow{
		api:      api,
		exporter: exporter,
		metrics:  m,
		tracer:   otel.Tracer("requirement-refiner-workflow"),
	}
	if err := w.reset(); err != nil {
		return nil, err
	}
	return w, nil
}

// Reset discards the session and starts a new one. It is refused while a
// request is in flight.
func (w *Workflow) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session.Loading {
		return ErrRequestInFlight
	}
	return w.reset()
}

func (w *Workflow) reset() error {
	machine, err := NewWorkflowMachine(func() bool { return w.session.Analysis != nil })
	if err != nil {
		return err
	}

	w.machine = machine
	w.sections = NewSections()
	w.errorKind = OutcomeServiceError
	w.session = Session{ID: uuid.NewString()}
	return nil
}

// Snapshot returns a copy of the current session
func (w *Workflow) Snapshot() Session {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.session
	s.Phase = w.phase()
	s.Sections = w.sections.Map()
	s.ExportsInFlight = int(w.exports.Load())
	if s.SelectedImage != nil {
		img := *s.SelectedImage
		s.SelectedImage = &img
	}
	return s
}

// phase derives the visible phase. Must be called with mu held.
func (w *Workflow) phase() Phase {
	state := w.machine.Current()
	if state == StateSubmitting || state == StateRefining {
		return Phase(state)
	}
	if w.session.ErrorNotice.Visible {
		if w.errorKind == OutcomeTransportError {
			return PhaseTransportError
		}
		return PhaseServiceError
	}
	if w.session.ValidationNotice.Visible {
		return PhaseValidationRejected
	}
	return Phase(state)
}

// Submit sends the requirement and the staged image for analysis and waits
// for the result. Request failures are shown as notices, not returned.
func (w *Workflow) Submit(ctx context.Context, userInput string) error {
	w.mu.Lock()
	if strings.TrimSpace(userInput) == "" {
		w.mu.Unlock()
		return ErrBlankInput
	}
	if err := w.machine.Transition(EventSubmit); err != nil {
		state := w.machine.Current()
		w.mu.Unlock()
		if state == StateReport {
			return ErrReportExists
		}
		return ErrRequestInFlight
	}

	w.session.UserInput = userInput
	w.session.Loading = true
	req := models.AnalyzeRequest{UserInput: userInput}
	if img := w.session.SelectedImage; img != nil {
		encoded := img.Encoded
		req.ImageBase64 = &encoded
	}
	sessionID := w.session.ID
	w.mu.Unlock()

	ctx = repositories.ContextWithSessionID(ctx, sessionID)
	ctx, span := w.tracer.Start(ctx, "workflow.submit")
	defer span.End()
	span.SetAttributes(attribute.Bool("request.has_image", req.ImageBase64 != nil))

	start := time.Now()
	w.recordStarted(ctx, "analyze")
	resp, err := w.api.Analyze(ctx, req)
	out := classifyAnalyze(resp, err)
	w.recordFinished(ctx, "analyze", out.Kind, time.Since(start))
	span.SetAttributes(attribute.String("outcome", out.Kind.String()))

	w.mu.Lock()
	defer w.mu.Unlock()

	switch out.Kind {
	case OutcomeSuccess:
		w.session.Analysis = out.Report
		w.session.QualityBefore = models.ScoreOf(out.QualityBefore)
		w.session.QualityBeforeReason = reasonOf(out.QualityBefore)
		w.session.QualityAfter = models.ScoreOf(out.QualityAfter)
		w.session.QualityAfterReason = reasonOf(out.QualityAfter)
		w.session.InputLocked = true
		w.finish(EventSucceed)
	case OutcomeValidationRejected:
		w.session.ValidationNotice = Notice{Visible: true, Message: out.Message}
		w.finish(EventFail)
	default:
		w.showError(out)
		w.finish(EventFail)
	}

	return nil
}

// Refine applies an instruction to the current report and waits for the
// result. Request failures are shown as notices, not returned.
func (w *Workflow) Refine(ctx context.Context, instruction string) error {
	w.mu.Lock()
	if strings.TrimSpace(instruction) == "" {
		w.mu.Unlock()
		return ErrBlankInstruction
	}
	if w.session.Analysis == nil && !w.session.Loading {
		w.mu.Unlock()
		return ErrNoReport
	}
	if err := w.machine.Transition(EventRefine); err != nil {
		w.mu.Unlock()
		return ErrRequestInFlight
	}

	w.session.Instruction = instruction
	w.session.Loading = true
	req := models.RefineRequest{
		OriginalRequirement: w.session.UserInput,
		CurrentDraft:        w.session.Analysis,
		Instruction:         instruction,
	}
	sessionID := w.session.ID
	w.mu.Unlock()

	ctx = repositories.ContextWithSessionID(ctx, sessionID)
	ctx, span := w.tracer.Start(ctx, "workflow.refine")
	defer span.End()

	start := time.Now()
	w.recordStarted(ctx, "refine")
	resp, err := w.api.Refine(ctx, req)
	out := classifyRefine(resp, err)
	w.recordFinished(ctx, "refine", out.Kind, time.Since(start))
	span.SetAttributes(attribute.String("outcome", out.Kind.String()))

	w.mu.Lock()
	defer w.mu.Unlock()

	if out.Kind == OutcomeSuccess {
		w.session.Analysis = out.Report
		w.session.QualityAfter = models.ScoreOf(out.QualityAfter)
		w.session.QualityAfterReason = reasonOf(out.QualityAfter)
		w.session.Instruction = ""
		w.finish(EventSucceed)
		return nil
	}

	w.showError(out)
	w.finish(EventFail)
	return nil
}

// ExportAs downloads the current report as a document and returns the saved
// path. It runs outside the request state machine and never touches the
// session; failures only produce a diagnostic.
func (w *Workflow) ExportAs(ctx context.Context, format models.ExportFormat) (string, error) {
	w.mu.Lock()
	report := w.session.Analysis
	sessionID := w.session.ID
	w.mu.Unlock()

	if report == nil {
		return "", ErrNoReport
	}

	w.exports.Add(1)
	defer w.exports.Add(-1)

	ctx = repositories.ContextWithSessionID(ctx, sessionID)
	return w.exporter.Export(ctx, format, report)
}

// DismissValidationNotice hides the validation notice
func (w *Workflow) DismissValidationNotice() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.session.ValidationNotice = Notice{}
}

// DismissErrorNotice hides the error notice
func (w *Workflow) DismissErrorNotice() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.session.ErrorNotice = Notice{}
}

// ToggleSection flips the visibility of a report section
func (w *Workflow) ToggleSection(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sections.Toggle(name)
}

// SelectImage stages an image file for the next submission, replacing any
// previous one. An empty path is ignored; a failed load keeps the current
// selection.
func (w *Workflow) SelectImage(path string) error {
	if path == "" {
		return nil
	}

	att, err := helpers.LoadImage(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.session.SelectedImage = att
	return nil
}

// ClearImage removes the staged image
func (w *Workflow) ClearImage() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.session.SelectedImage = nil
}

// showError opens the error notice for a failed outcome. Must be called with mu held.
func (w *Workflow) showError(out Outcome) {
	w.errorKind = out.Kind
	w.session.ErrorNotice = Notice{Visible: true, Message: out.Message}
}

// finish settles the in-flight request. Must be called with mu held.
func (w *Workflow) finish(event string) {
	if err := w.machine.Transition(event); err != nil {
		helpers.PrintDiagnostic("workflow: %v", err)
	}
	w.session.Loading = false
}

func (w *Workflow) recordStarted(ctx context.Context, op string) {
	if w.metrics != nil {
		w.metrics.RecordRequestStarted(ctx, op)
	}
}

func (w *Workflow) recordFinished(ctx context.Context, op string, kind OutcomeKind, d time.Duration) {
	if w.metrics != nil {
		w.metrics.RecordRequestFinished(ctx, op, kind.String(), d)
	}
}

func reasonOf(q *models.QualityScore) string {
	if q == nil {
		return ""
	}
	return q.Reason
}
