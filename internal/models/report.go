package models

import "encoding/json"

// RequirementSummary identifies the analysed requirement
type RequirementSummary struct {
	OriginalRequirement string `json:"original_requirement"`
	RequirementID       string `json:"requirement_id"`
	Analyst             string `json:"analyst"`
	Date                string `json:"date"`
}

// Classification represents how the requirement is categorised
type Classification struct {
	RequirementType string `json:"requirement_type"`
	TargetSystem    string `json:"target_system"`
	Domain          string `json:"domain"`
	Stakeholder     string `json:"stakeholder"`
	PrimaryCategory string `json:"primary_category"`
	SubCategory     string `json:"sub_category"`
	ImpactScope     string `json:"impact_scope"`
}

// SoftwareRequirements groups software requirement statements by layer
type SoftwareRequirements struct {
	UIUXRelated  []string `json:"ui_ux_related"`
	HMIRelated   []string `json:"hmi_related"`
	BackendLogic []string `json:"backend_logic"`
}

// DetailedAnalysis represents the categorised requirement statements
type DetailedAnalysis struct {
	HardwareRequirements        []string             `json:"hardware_requirements"`
	SoftwareRequirements        SoftwareRequirements `json:"software_requirements"`
	PerformanceRequirements     []string             `json:"performance_requirements"`
	CrossFunctionalRequirements []string             `json:"cross_functional_requirements"`
}

// EdgeCase represents a boundary scenario and its handling
type EdgeCase struct {
	Scenario           string `json:"scenario"`
	Trigger            string `json:"trigger"`
	CurrentBehavior    string `json:"current_behavior"`
	ExpectedBehavior   string `json:"expected_behavior"`
	RiskLevel          string `json:"risk_level"`
	MitigationStrategy string `json:"mitigation_strategy"`
}

// ClarificationQuestions represents open questions grouped by topic
type ClarificationQuestions struct {
	Functional  []string `json:"functional"`
	Technical   []string `json:"technical"`
	Constraints []string `json:"constraints"`
	Scope       []string `json:"scope"`
}

// AcceptanceCriterion represents a Given/When/Then criterion
type AcceptanceCriterion struct {
	Title              string   `json:"title"`
	Given              string   `json:"given"`
	When               string   `json:"when"`
	Then               string   `json:"then"`
	And                []string `json:"and"`
	VerificationMethod string   `json:"verification_method"`
	TestDataRequired   string   `json:"test_data_required"`
}

// ImplementationOption represents one candidate approach
type ImplementationOption struct {
	OptionName     string   `json:"option_name"`
	Description    string   `json:"description"`
	Pros           []string `json:"pros"`
	Cons           []string `json:"cons"`
	EffortEstimate string   `json:"effort_estimate"`
	RiskLevel      string   `json:"risk_level"`
	Dependencies   []string `json:"dependencies"`
}

// UserStory represents a user story derived from the requirement
type UserStory struct {
	StoryID            string   `json:"story_id"`
	Title              string   `json:"title"`
	AsA                string   `json:"as_a"`
	IWant              string   `json:"i_want"`
	SoThat             string   `json:"so_that"`
	StoryType          string   `json:"story_type"`
	Priority           string   `json:"priority"`
	EstimatedEffort    string   `json:"estimated_effort"`
	Dependencies       []string `json:"dependencies"`
	TechnicalNotes     []string `json:"technical_notes"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	DefinitionOfDone   []string `json:"definition_of_done"`
}

// Epic represents the epic grouping the user stories
type Epic struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	BusinessValue string   `json:"business_value"`
	Stories       []string `json:"stories"`
}

// TestCase represents a single test case
type TestCase struct {
	TestID           string   `json:"test_id"`
	Title            string   `json:"title"`
	StoryReference   string   `json:"story_reference"`
	TestType         string   `json:"test_type"`
	Priority         string   `json:"priority"`
	Automated        string   `json:"automated"`
	Preconditions    []string `json:"preconditions"`
	TestSteps        []string `json:"test_steps"`
	TestData         string   `json:"test_data"`
	ExpectedResult   string   `json:"expected_result"`
	PassFailCriteria string   `json:"pass_fail_criteria"`
}

// TestStory represents a test-focused story
type TestStory struct {
	TestStoryID         string   `json:"test_story_id"`
	Title               string   `json:"title"`
	AsA                 string   `json:"as_a"`
	IWant               string   `json:"i_want"`
	SoThat              string   `json:"so_that"`
	TestScope           []string `json:"test_scope"`
	TestApproach        []string `json:"test_approach"`
	EntryCriteria       []string `json:"entry_criteria"`
	ExitCriteria        []string `json:"exit_criteria"`
	AssociatedTestCases []string `json:"associated_test_cases"`
}

// TestCoverageSummary aggregates the test cases
type TestCoverageSummary struct {
	TotalTestCases   int      `json:"total_test_cases"`
	UnitTests        int      `json:"unit_tests"`
	IntegrationTests int      `json:"integration_tests"`
	SystemTests      int      `json:"system_tests"`
	UATTests         int      `json:"uat_tests"`
	Automated        int      `json:"automated"`
	Manual           int      `json:"manual"`
	EdgeCasesCovered []string `json:"edge_cases_covered"`
}

// Risk represents a risk and its mitigation
type Risk struct {
	Risk       string `json:"risk"`
	Mitigation string `json:"mitigation"`
}

// DependenciesAndRisks represents external dependencies and risks
type DependenciesAndRisks struct {
	Dependencies []string `json:"dependencies"`
	Risks        []Risk   `json:"risks"`
}

// EffortBreakdown splits the effort estimate by activity
type EffortBreakdown struct {
	Development   string `json:"development"`
	Testing       string `json:"testing"`
	Documentation string `json:"documentation"`
}

// EffortEstimation represents the overall effort estimate
type EffortEstimation struct {
	TotalEstimatedEffort      string          `json:"total_estimated_effort"`
	Breakdown                 EffortBreakdown `json:"breakdown"`
	SuggestedSprintAllocation string          `json:"suggested_sprint_allocation"`
}

// Report represents a complete requirement analysis report.
//
// A Report is treated as an immutable value once decoded: it is replaced
// wholesale, never edited field by field. A Report decoded from JSON keeps
// the exact bytes it was decoded from and encodes back to them, so fields the
// service adds beyond this model survive refinement and export round trips.
type Report struct {
	RequirementSummary     RequirementSummary     `json:"requirement_summary"`
	Classification         Classification         `json:"classification"`
	DetailedAnalysis       DetailedAnalysis       `json:"detailed_analysis"`
	EdgeCases              []EdgeCase             `json:"edge_cases"`
	ClarificationQuestions ClarificationQuestions `json:"clarification_questions"`
	AcceptanceCriteria     []AcceptanceCriterion  `json:"acceptance_criteria"`
	ImplementationOptions  []ImplementationOption `json:"implementation_options"`
	Recommendation         string                 `json:"recommendation"`
	UserStories            []UserStory            `json:"user_stories"`
	Epic                   Epic                   `json:"epic"`
	TestCases              []TestCase             `json:"test_cases"`
	TestStories            []TestStory            `json:"test_stories"`
	TestCoverageSummary    TestCoverageSummary    `json:"test_coverage_summary"`
	DependenciesAndRisks   DependenciesAndRisks   `json:"dependencies_and_risks"`
	EffortEstimation       EffortEstimation       `json:"effort_estimation"`
	NextSteps              []string               `json:"next_steps"`

	raw json.RawMessage
}

// reportFields has Report's fields without its JSON methods
type reportFields Report

// UnmarshalJSON decodes the report and retains the source document
func (r *Report) UnmarshalJSON(data []byte) error {
	var fields reportFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*r = Report(fields)
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the source document for decoded reports
func (r Report) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	return json.Marshal(reportFields(r))
}
