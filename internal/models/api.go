package models

import "fmt"

// AnalyzeRequest represents a request to analyse a raw requirement
type AnalyzeRequest struct {
	UserInput   string  `json:"user_input"`
	ImageBase64 *string `json:"image_base64"`
}

// QualityScore represents a quality assessment attached to a report
type QualityScore struct {
	Score  *float64 `json:"score"`
	Reason string   `json:"reason,omitempty"`
}

// AnalyzeResponse represents the analysis service response.
// IsValid is nil when the service omits the flag, which counts as valid.
type AnalyzeResponse struct {
	Error         bool          `json:"error,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	IsValid       *bool         `json:"is_valid,omitempty"`
	Ticket        *Report       `json:"ticket,omitempty"`
	QualityBefore *QualityScore `json:"quality_before,omitempty"`
	QualityAfter  *QualityScore `json:"quality_after,omitempty"`
}

// RefineRequest represents a follow-up refinement of an existing report
type RefineRequest struct {
	OriginalRequirement string  `json:"original_requirement"`
	CurrentDraft        *Report `json:"current_draft"`
	Instruction         string  `json:"instruction"`
}

// RefineResponse represents the refinement service response
type RefineResponse struct {
	Error        bool          `json:"error,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	Ticket       *Report       `json:"ticket,omitempty"`
	QualityAfter *QualityScore `json:"quality_after,omitempty"`
}

// Attachment represents an image staged for submission
type Attachment struct {
	Encoded    string // base64 payload without a data URI prefix
	PreviewURL string // full data URI
	MIMEType   string
}

// ExportFormat identifies a document format offered by the export service
type ExportFormat string

const (
	FormatWord ExportFormat = "word"
	FormatPDF  ExportFormat = "pdf"
)

// ParseExportFormat converts a user supplied format name
func ParseExportFormat(name string) (ExportFormat, error) {
	switch ExportFormat(name) {
	case FormatWord, "docx":
		return FormatWord, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q (use word or pdf)", name)
}

// Filename returns the fixed file name a document of this format is saved under
func (f ExportFormat) Filename() string {
	switch f {
	case FormatWord:
		return "requirement_analysis_report.docx"
	case FormatPDF:
		return "requirement_analysis_report.pdf"
	}
	return ""
}

// Endpoint returns the export service path for this format
func (f ExportFormat) Endpoint() string {
	switch f {
	case FormatWord:
		return "/download-word"
	case FormatPDF:
		return "/download-pdf"
	}
	return ""
}

// ScoreOf returns the score carried by q, or nil when q or its score is absent
func ScoreOf(q *QualityScore) *float64 {
	if q == nil || q.Score == nil {
		return nil
	}
	score := *q.Score
	return &score
}
