package services

import (
	"fmt"
	"strings"
	"time"

	"requirement-refiner/internal/config"
	"requirement-refiner/internal/helpers"
	"requirement-refiner/internal/models"
)

// reportSection renders one collapsible part of a report
type reportSection struct {
	name  string
	title string
	lines func(r *models.Report) []string
}

var reportSections = []reportSection{
	{SectionClassification, "Classification", classificationLines},
	{SectionDetailedAnalysis, "Detailed Analysis", detailedAnalysisLines},
	{SectionEdgeCases, "Edge Cases", edgeCaseLines},
	{SectionClarificationQuestions, "Clarification Questions", clarificationLines},
	{SectionAcceptanceCriteria, "Acceptance Criteria", acceptanceCriteriaLines},
	{SectionImplementationOptions, "Implementation Options", implementationLines},
	{SectionUserStories, "User Stories", userStoryLines},
	{SectionTestCases, "Test Cases", testCaseLines},
	{SectionDependencies, "Dependencies & Risks", dependencyLines},
	{SectionEffortEstimation, "Effort Estimation", effortLines},
}

// SectionTitle returns the display title of a section
func SectionTitle(name string) string {
	for _, section := range reportSections {
		if section.name == name {
			return section.title
		}
	}
	return name
}

// AnalysisService handles report presentation and persistence
type AnalysisService struct {
	config *config.Config
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(config *config.Config) *AnalysisService {
	return &AnalysisService{config: config}
}

// DisplayReport displays the session's report in a formatted way
func (s *AnalysisService) DisplayReport(session Session) {
	report := session.Analysis
	if report == nil {
		helpers.PrintWarning("No report to display")
		return
	}

	helpers.PrintTitle("Requirement Analysis: %s", summaryTitle(session))
	helpers.PrintInfo("Quality: %s", qualityLine(session))
	if session.QualityAfterReason != "" {
		helpers.PrintInfo("Assessment: %s", session.QualityAfterReason)
	}
	helpers.PrintSeparator()

	for _, section := range reportSections {
		if !session.Sections[section.name] {
			helpers.PrintInfo("▸ %s (collapsed)", section.title)
			continue
		}

		helpers.PrintInfo("▾ %s", section.title)
		for _, line := range section.lines(report) {
			helpers.PrintInfo("  %s", line)
		}
		helpers.PrintSeparator()
	}

	if len(report.NextSteps) > 0 {
		helpers.PrintInfo("Next Steps:")
		for _, step := range report.NextSteps {
			helpers.PrintInfo("  • %s", step)
		}
	}
}

// FormatReport renders the session's report as markdown, including only the
// expanded sections
func (s *AnalysisService) FormatReport(session Session) string {
	report := session.Analysis
	if report == nil {
		return ""
	}

	var summary strings.Builder

	summary.WriteString(fmt.Sprintf("# %s\n\n", summaryTitle(session)))
	summary.WriteString(fmt.Sprintf("**Quality:** %s\n\n", qualityLine(session)))
	if session.QualityBeforeReason != "" {
		summary.WriteString(fmt.Sprintf("**Before:** %s\n\n", session.QualityBeforeReason))
	}
	if session.QualityAfterReason != "" {
		summary.WriteString(fmt.Sprintf("**After:** %s\n\n", session.QualityAfterReason))
	}

	for _, section := range reportSections {
		if !session.Sections[section.name] {
			continue
		}

		summary.WriteString(fmt.Sprintf("## %s\n\n", section.title))
		lines := section.lines(report)
		if len(lines) == 0 {
			summary.WriteString("_Nothing reported._\n\n")
			continue
		}
		for _, line := range lines {
			summary.WriteString(fmt.Sprintf("- %s\n", line))
		}
		summary.WriteString("\n")
	}

	if len(report.NextSteps) > 0 {
		summary.WriteString("## Next Steps\n\n")
		for i, step := range report.NextSteps {
			summary.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
		}
		summary.WriteString("\n")
	}

	return summary.String()
}

// SaveAnalysisResult saves the session's report and a markdown summary to
// outputDir and returns the path of the JSON file
func (s *AnalysisService) SaveAnalysisResult(session Session, refinements []string, outputDir string) (string, error) {
	if session.Analysis == nil {
		return "", ErrNoReport
	}

	if err := helpers.EnsureDir(outputDir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &models.AnalysisResult{
		SessionID:     session.ID,
		Requirement:   session.UserInput,
		Report:        session.Analysis,
		QualityBefore: scoreOf(session.QualityBefore, session.QualityBeforeReason),
		QualityAfter:  scoreOf(session.QualityAfter, session.QualityAfterReason),
		Refinements:   refinements,
		AnalysisTime:  time.Now(),
	}

	fullAnalysisFilename := helpers.GenerateOutputFilename("requirement-analysis", "json")
	fullAnalysisPath := helpers.GetOutputPath(outputDir, fullAnalysisFilename)

	if err := helpers.SaveJSON(result, fullAnalysisPath); err != nil {
		return "", fmt.Errorf("failed to save full analysis: %w", err)
	}

	helpers.PrintSuccess("Saved full analysis to: %s", fullAnalysisPath)

	summaryFilename := helpers.GenerateOutputFilename("requirement-summary", "md")
	summaryPath := helpers.GetOutputPath(outputDir, summaryFilename)

	if err := helpers.SaveText(s.FormatReport(session), summaryPath); err != nil {
		return "", fmt.Errorf("failed to save summary: %w", err)
	}

	helpers.PrintSuccess("Saved summary to: %s", summaryPath)
	return fullAnalysisPath, nil
}

// LoadAnalysisResult loads a previously saved analysis
func (s *AnalysisService) LoadAnalysisResult(path string) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	if err := helpers.LoadJSON(path, &result); err != nil {
		return nil, fmt.Errorf("failed to load analysis file: %w", err)
	}
	if result.Report == nil {
		return nil, fmt.Errorf("analysis file %s contains no report", path)
	}
	return &result, nil
}

func scoreOf(score *float64, reason string) *models.QualityScore {
	if score == nil && reason == "" {
		return nil
	}
	return &models.QualityScore{Score: score, Reason: reason}
}

func summaryTitle(session Session) string {
	if id := session.Analysis.RequirementSummary.RequirementID; id != "" {
		return id
	}
	title := strings.TrimSpace(session.UserInput)
	if first, _, found := strings.Cut(title, "\n"); found {
		title = first
	}
	if runes := []rune(title); len(runes) > 60 {
		title = string(runes[:57]) + "..."
	}
	return title
}

func formatScore(score *float64) string {
	if score == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f", *score)
}

func qualityLine(session Session) string {
	return fmt.Sprintf("%s → %s", formatScore(session.QualityBefore), formatScore(session.QualityAfter))
}

func labeled(label, value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return []string{fmt.Sprintf("%s: %s", label, value)}
}

func labeledList(label string, values []string) []string {
	if len(values) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("%s: %s", label, strings.Join(values, "; "))}
}

func classificationLines(r *models.Report) []string {
	c := r.Classification
	var lines []string
	lines = append(lines, labeled("Type", c.RequirementType)...)
	lines = append(lines, labeled("Target system", c.TargetSystem)...)
	lines = append(lines, labeled("Domain", c.Domain)...)
	lines = append(lines, labeled("Stakeholder", c.Stakeholder)...)
	lines = append(lines, labeled("Category", strings.Trim(c.PrimaryCategory+" / "+c.SubCategory, " /"))...)
	lines = append(lines, labeled("Impact", c.ImpactScope)...)
	return lines
}

func detailedAnalysisLines(r *models.Report) []string {
	d := r.DetailedAnalysis
	var lines []string
	lines = append(lines, labeledList("Hardware", d.HardwareRequirements)...)
	lines = append(lines, labeledList("UI/UX", d.SoftwareRequirements.UIUXRelated)...)
	lines = append(lines, labeledList("HMI", d.SoftwareRequirements.HMIRelated)...)
	lines = append(lines, labeledList("Backend", d.SoftwareRequirements.BackendLogic)...)
	lines = append(lines, labeledList("Performance", d.PerformanceRequirements)...)
	lines = append(lines, labeledList("Cross-functional", d.CrossFunctionalRequirements)...)
	return lines
}

func edgeCaseLines(r *models.Report) []string {
	var lines []string
	for _, ec := range r.EdgeCases {
		lines = append(lines, fmt.Sprintf("%s [%s]: expected %s", ec.Scenario, ec.RiskLevel, ec.ExpectedBehavior))
	}
	return lines
}

func clarificationLines(r *models.Report) []string {
	q := r.ClarificationQuestions
	var lines []string
	for _, group := range []struct {
		label     string
		questions []string
	}{
		{"Functional", q.Functional},
		{"Technical", q.Technical},
		{"Constraints", q.Constraints},
		{"Scope", q.Scope},
	} {
		for _, question := range group.questions {
			lines = append(lines, fmt.Sprintf("(%s) %s", group.label, question))
		}
	}
	return lines
}

func acceptanceCriteriaLines(r *models.Report) []string {
	var lines []string
	for _, ac := range r.AcceptanceCriteria {
		line := fmt.Sprintf("%s: Given %s, when %s, then %s", ac.Title, ac.Given, ac.When, ac.Then)
		for _, and := range ac.And {
			line += ", and " + and
		}
		lines = append(lines, line)
	}
	return lines
}

func implementationLines(r *models.Report) []string {
	var lines []string
	for _, opt := range r.ImplementationOptions {
		lines = append(lines, fmt.Sprintf("%s (effort %s, risk %s): %s", opt.OptionName, opt.EffortEstimate, opt.RiskLevel, opt.Description))
	}
	lines = append(lines, labeled("Recommendation", r.Recommendation)...)
	return lines
}

func userStoryLines(r *models.Report) []string {
	var lines []string
	lines = append(lines, labeled("Epic", r.Epic.Name)...)
	for _, story := range r.UserStories {
		lines = append(lines, fmt.Sprintf("%s %s: As a %s, I want %s so that %s (%s, %s)",
			story.StoryID, story.Title, story.AsA, story.IWant, story.SoThat, story.Priority, story.EstimatedEffort))
	}
	return lines
}

func testCaseLines(r *models.Report) []string {
	var lines []string
	for _, tc := range r.TestCases {
		lines = append(lines, fmt.Sprintf("%s %s [%s]: %s", tc.TestID, tc.Title, tc.TestType, tc.ExpectedResult))
	}
	for _, ts := range r.TestStories {
		lines = append(lines, fmt.Sprintf("%s %s", ts.TestStoryID, ts.Title))
	}
	if total := r.TestCoverageSummary.TotalTestCases; total > 0 {
		lines = append(lines, fmt.Sprintf("Coverage: %d cases, %d automated, %d manual",
			total, r.TestCoverageSummary.Automated, r.TestCoverageSummary.Manual))
	}
	return lines
}

func dependencyLines(r *models.Report) []string {
	var lines []string
	lines = append(lines, r.DependenciesAndRisks.Dependencies...)
	for _, risk := range r.DependenciesAndRisks.Risks {
		lines = append(lines, fmt.Sprintf("Risk: %s (mitigation: %s)", risk.Risk, risk.Mitigation))
	}
	return lines
}

func effortLines(r *models.Report) []string {
	e := r.EffortEstimation
	var lines []string
	lines = append(lines, labeled("Total", e.TotalEstimatedEffort)...)
	lines = append(lines, labeled("Development", e.Breakdown.Development)...)
	lines = append(lines, labeled("Testing", e.Breakdown.Testing)...)
	lines = append(lines, labeled("Documentation", e.Breakdown.Documentation)...)
	lines = append(lines, labeled("Sprints", e.SuggestedSprintAllocation)...)
	return lines
}
