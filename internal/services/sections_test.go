package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSections_Defaults(t *testing.T) {
	s := NewSections()

	expected := map[string]bool{
		"classification":          true,
		"detailed_analysis":       false,
		"edge_cases":              false,
		"clarification_questions": false,
		"acceptance_criteria":     true,
		"implementation_options":  false,
		"user_stories":            true,
		"test_cases":              false,
		"dependencies":            false,
		"effort_estimation":       true,
	}
	assert.Equal(t, expected, s.Map())
	assert.Len(t, SectionNames(), 10)
	assert.Equal(t, "classification", SectionNames()[0])
	assert.Equal(t, "effort_estimation", SectionNames()[9])
}

func TestSections_Toggle(t *testing.T) {
	t.Run("double toggle restores", func(t *testing.T) {
		s := NewSections()
		for _, name := range SectionNames() {
			before := s.Visible(name)
			s.Toggle(name)
			assert.Equal(t, !before, s.Visible(name), name)
			s.Toggle(name)
			assert.Equal(t, before, s.Visible(name), name)
		}
	})

	t.Run("unknown section is created visible", func(t *testing.T) {
		s := NewSections()
		s.Toggle("glossary")
		assert.True(t, s.Visible("glossary"))
		s.Toggle("glossary")
		assert.False(t, s.Visible("glossary"))
		assert.Contains(t, s.Map(), "glossary")
		assert.Len(t, s.Map(), 11)
	})

	t.Run("map is a copy", func(t *testing.T) {
		s := NewSections()
		m := s.Map()
		m["classification"] = false
		assert.True(t, s.Visible("classification"))
	})
}
