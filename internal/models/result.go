package models

import "time"

// AnalysisResult represents a saved analysis session
type AnalysisResult struct {
	SessionID     string        `json:"session_id"`
	Requirement   string        `json:"requirement"`
	Report        *Report       `json:"report"`
	QualityBefore *QualityScore `json:"quality_before,omitempty"`
	QualityAfter  *QualityScore `json:"quality_after,omitempty"`
	Refinements   []string      `json:"refinements,omitempty"`
	AnalysisTime  time.Time     `json:"analysis_time"`
}
