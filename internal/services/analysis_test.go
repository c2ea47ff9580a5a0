package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requirement-refiner/internal/config"
	"requirement-refiner/internal/models"
)

const sampleReport = `{
	"requirement_summary": {"requirement_id": "REQ-42", "original_requirement": "Add a logout button"},
	"classification": {"requirement_type": "Functional", "domain": "Auth"},
	"acceptance_criteria": [{"title": "Logout", "given": "a signed in user", "when": "they click logout", "then": "the session ends", "and": ["they see the login page"]}],
	"edge_cases": [{"scenario": "Expired token", "risk_level": "Low", "expected_behavior": "redirect"}],
	"user_stories": [{"story_id": "US-1", "title": "Logout", "as_a": "user", "i_want": "to log out", "so_that": "my account is safe", "priority": "High", "estimated_effort": "2 pts"}],
	"effort_estimation": {"total_estimated_effort": "3 days"},
	"next_steps": ["Confirm with security"],
	"service_only": {"kept": true}
}`

func sampleSession(t *testing.T) Session {
	t.Helper()
	var report models.Report
	require.NoError(t, json.Unmarshal([]byte(sampleReport), &report))

	return Session{
		ID:                 "session-1",
		UserInput:          "Add a logout button",
		Analysis:           &report,
		QualityBefore:      scorePtr(40),
		QualityAfter:       scorePtr(78),
		QualityAfterReason: "Clear acceptance criteria",
		Sections:           DefaultSections(),
	}
}

func TestAnalysisService_FormatReport(t *testing.T) {
	svc := NewAnalysisService(config.Default())
	session := sampleSession(t)

	t.Run("renders visible sections only", func(t *testing.T) {
		out := svc.FormatReport(session)

		assert.True(t, strings.HasPrefix(out, "# REQ-42\n"))
		assert.Contains(t, out, "**Quality:** 40 → 78")
		assert.Contains(t, out, "## Classification")
		assert.Contains(t, out, "Type: Functional")
		assert.Contains(t, out, "Given a signed in user, when they click logout, then the session ends, and they see the login page")
		assert.Contains(t, out, "US-1 Logout")
		assert.Contains(t, out, "1. Confirm with security")
		assert.NotContains(t, out, "## Edge Cases")
		assert.NotContains(t, out, "Expired token")
	})

	t.Run("expanded section appears", func(t *testing.T) {
		expanded := session
		expanded.Sections = DefaultSections()
		expanded.Sections[SectionEdgeCases] = true

		out := svc.FormatReport(expanded)
		assert.Contains(t, out, "## Edge Cases")
		assert.Contains(t, out, "Expired token [Low]: expected redirect")
	})

	t.Run("absent score", func(t *testing.T) {
		partial := session
		partial.QualityBefore = nil
		assert.Contains(t, svc.FormatReport(partial), "**Quality:** n/a → 78")
	})

	t.Run("no report", func(t *testing.T) {
		assert.Empty(t, svc.FormatReport(Session{}))
	})
}

func TestAnalysisService_SaveAndLoad(t *testing.T) {
	captureOutput(t)
	svc := NewAnalysisService(config.Default())
	session := sampleSession(t)
	dir := filepath.Join(t.TempDir(), "output")

	path, err := svc.SaveAnalysisResult(session, []string{"Add negative test cases"}, dir)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	result, err := svc.LoadAnalysisResult(path)
	require.NoError(t, err)
	assert.Equal(t, "session-1", result.SessionID)
	assert.Equal(t, "Add a logout button", result.Requirement)
	assert.Equal(t, []string{"Add negative test cases"}, result.Refinements)
	assert.Equal(t, 78.0, *models.ScoreOf(result.QualityAfter))
	assert.Equal(t, "Clear acceptance criteria", result.QualityAfter.Reason)

	// fields unknown to the model survive the save
	encoded, err := json.Marshal(result.Report)
	require.NoError(t, err)
	assert.JSONEq(t, sampleReport, string(encoded))
}

func TestAnalysisService_SaveWithoutReport(t *testing.T) {
	svc := NewAnalysisService(config.Default())
	_, err := svc.SaveAnalysisResult(Session{}, nil, t.TempDir())
	assert.ErrorIs(t, err, ErrNoReport)
}

func TestAnalysisService_LoadRejectsEmptyReport(t *testing.T) {
	svc := NewAnalysisService(config.Default())
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"session_id":"x"}`), 0644))

	_, err := svc.LoadAnalysisResult(path)
	assert.ErrorContains(t, err, "contains no report")
}

func TestSectionTitle(t *testing.T) {
	assert.Equal(t, "Dependencies & Risks", SectionTitle(SectionDependencies))
	assert.Equal(t, "glossary", SectionTitle("glossary"))
	for _, name := range SectionNames() {
		assert.NotEqual(t, name, SectionTitle(name))
	}
}

func TestSummaryTitle(t *testing.T) {
	session := sampleSession(t)
	assert.Equal(t, "REQ-42", summaryTitle(session))

	session.Analysis = &models.Report{}
	session.UserInput = "Add a logout button\nwith confirmation"
	assert.Equal(t, "Add a logout button", summaryTitle(session))

	session.UserInput = strings.Repeat("é", 56) + "ünïcödé tail"
	title := summaryTitle(session)
	assert.True(t, utf8.ValidString(title))
	assert.Equal(t, 60, utf8.RuneCountInString(title))
	assert.Equal(t, strings.Repeat("é", 56)+"ü...", title)
}
