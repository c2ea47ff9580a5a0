package services

// Report section names in display order
const (
	SectionClassification         = "classification"
	SectionDetailedAnalysis       = "detailed_analysis"
	SectionEdgeCases              = "edge_cases"
	SectionClarificationQuestions = "clarification_questions"
	SectionAcceptanceCriteria     = "acceptance_criteria"
	SectionImplementationOptions  = "implementation_options"
	SectionUserStories            = "user_stories"
	SectionTestCases              = "test_cases"
	SectionDependencies           = "dependencies"
	SectionEffortEstimation       = "effort_estimation"
)

var sectionOrder = []string{
	SectionClassification,
	SectionDetailedAnalysis,
	SectionEdgeCases,
	SectionClarificationQuestions,
	SectionAcceptanceCriteria,
	SectionImplementationOptions,
	SectionUserStories,
	SectionTestCases,
	SectionDependencies,
	SectionEffortEstimation,
}

var sectionDefaults = map[string]bool{
	SectionClassification:     true,
	SectionAcceptanceCriteria: true,
	SectionUserStories:        true,
	SectionEffortEstimation:   true,
}

// Sections tracks which report sections are expanded
type Sections struct {
	visible map[string]bool
}

// NewSections creates a tracker with the default visibility
func NewSections() *Sections {
	s := &Sections{visible: make(map[string]bool, len(sectionOrder))}
	for _, name := range sectionOrder {
		s.visible[name] = sectionDefaults[name]
	}
	return s
}

// Toggle flips the visibility of a section. Unknown names start hidden and
// become visible; names are never removed.
func (s *Sections) Toggle(name string) {
	s.visible[name] = !s.visible[name]
}

// Visible reports whether a section is expanded
func (s *Sections) Visible(name string) bool {
	return s.visible[name]
}

// Map returns a copy of the visibility map
func (s *Sections) Map() map[string]bool {
	out := make(map[string]bool, len(s.visible))
	for name, visible := range s.visible {
		out[name] = visible
	}
	return out
}

// SectionNames returns the known report sections in display order
func SectionNames() []string {
	return append([]string(nil), sectionOrder...)
}

// DefaultSections returns the default visibility map
func DefaultSections() map[string]bool {
	return NewSections().Map()
}
