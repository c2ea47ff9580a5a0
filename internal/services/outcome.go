package services

import (
	"strings"

	"requirement-refiner/internal/models"
	"requirement-refiner/internal/repositories"
)

// OutcomeKind classifies the result of an analysis or refinement request
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeValidationRejected
	OutcomeServiceError
	OutcomeTransportError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeValidationRejected:
		return "validation_rejected"
	case OutcomeServiceError:
		return "service_error"
	case OutcomeTransportError:
		return "transport_error"
	}
	return "unknown"
}

// Outcome is the classified result of one request. Report and the scores are
// only set for OutcomeSuccess; Message is only set for the other kinds.
type Outcome struct {
	Kind          OutcomeKind
	Report        *models.Report
	QualityBefore *models.QualityScore
	QualityAfter  *models.QualityScore
	Message       string
}

const (
	msgValidationFallback = "The input does not appear to be a valid requirement. Please provide a feature request, bug report, or technical specification."
	msgAnalyzeServiceErr  = "An error occurred while processing your request."
	msgRefineServiceErr   = "An error occurred while refining your requirement."
)

// transportMessages holds the user facing text for a failed request, keyed by
// whether a response arrived and its status class
type transportMessages struct {
	noResponse  string
	serverError string
	badRequest  string
	generic     string
}

var analyzeTransport = transportMessages{
	noResponse:  "Unable to reach the server. Please check your connection and try again.",
	serverError: "Server error occurred. Please try again in a moment.",
	badRequest:  "Invalid request. Please check your input and try again.",
	generic:     "Unable to connect to the service. Please check your connection and try again.",
}

var refineTransport = transportMessages{
	noResponse:  "Connection lost. Please check your connection and try again.",
	serverError: "Server error occurred during refinement. Please try again.",
	badRequest:  "Invalid refinement request. Please check your instruction and try again.",
	generic:     "Unable to refine the requirement. Please try again.",
}

func (m transportMessages) forError(err error) string {
	status, ok := repositories.StatusOf(err)
	switch {
	case !ok:
		return m.generic
	case status == 0:
		return m.noResponse
	case status >= 500 && status <= 599:
		return m.serverError
	case status >= 400 && status <= 499:
		return m.badRequest
	}
	return m.generic
}

// reasonOr prefers a non-blank service reason over the fixed fallback
func reasonOr(reason, fallback string) string {
	if strings.TrimSpace(reason) != "" {
		return reason
	}
	return fallback
}

// classifyAnalyze maps an analyze round trip onto an Outcome
func classifyAnalyze(resp *models.AnalyzeResponse, err error) Outcome {
	if err != nil {
		return Outcome{Kind: OutcomeTransportError, Message: analyzeTransport.forError(err)}
	}
	if resp == nil {
		return Outcome{Kind: OutcomeServiceError, Message: msgAnalyzeServiceErr}
	}

	// the service sets is_valid false alongside error on hard failures
	if resp.Error {
		return Outcome{Kind: OutcomeServiceError, Message: reasonOr(resp.Reason, msgAnalyzeServiceErr)}
	}
	if resp.IsValid != nil && !*resp.IsValid {
		return Outcome{Kind: OutcomeValidationRejected, Message: reasonOr(resp.Reason, msgValidationFallback)}
	}
	if resp.Ticket == nil {
		return Outcome{Kind: OutcomeServiceError, Message: msgAnalyzeServiceErr}
	}

	return Outcome{
		Kind:          OutcomeSuccess,
		Report:        resp.Ticket,
		QualityBefore: resp.QualityBefore,
		QualityAfter:  resp.QualityAfter,
	}
}

// classifyRefine maps a refine round trip onto an Outcome
func classifyRefine(resp *models.RefineResponse, err error) Outcome {
	if err != nil {
		return Outcome{Kind: OutcomeTransportError, Message: refineTransport.forError(err)}
	}
	if resp == nil || resp.Error || resp.Ticket == nil {
		reason := ""
		if resp != nil && resp.Error {
			reason = resp.Reason
		}
		return Outcome{Kind: OutcomeServiceError, Message: reasonOr(reason, msgRefineServiceErr)}
	}

	return Outcome{
		Kind:         OutcomeSuccess,
		Report:       resp.Ticket,
		QualityAfter: resp.QualityAfter,
	}
}
