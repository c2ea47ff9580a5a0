package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"requirement-refiner/internal/models"
	"requirement-refiner/internal/services"
)

// Layout constants
const (
	defaultWidth          = 100
	defaultViewportHeight = 16
	textareaHeight        = 4
	chromeHeight          = 14
)

// sectionKeys maps alt+digit to the section at that display position
var sectionKeys = map[string]int{
	"alt+1": 0, "alt+2": 1, "alt+3": 2, "alt+4": 3, "alt+5": 4,
	"alt+6": 5, "alt+7": 6, "alt+8": 7, "alt+9": 8, "alt+0": 9,
}

// Messages
type requestDoneMsg struct {
	refine bool
	err    error
}

type exportDoneMsg struct {
	format models.ExportFormat
	path   string
	err    error
}

type imageSelectedMsg struct {
	path string
	err  error
}

// Model is an interactive requirement analysis session
type Model struct {
	ctx      context.Context
	workflow *services.Workflow
	analysis *services.AnalysisService

	session     services.Session
	status      string
	attaching   bool
	pending     bool // a request cmd is out and its requestDoneMsg has not arrived
	refinements []string
	width       int

	input     textarea.Model
	imagePath textinput.Model
	spinner   spinner.Model
	viewport  viewport.Model
}

// NewModel creates a session model over workflow
func NewModel(ctx context.Context, workflow *services.Workflow, analysis *services.AnalysisService) Model {
	ta := textarea.New()
	ta.Placeholder = "Describe a feature request, bug report or technical requirement..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetWidth(defaultWidth)
	ta.SetHeight(textareaHeight)
	ta.Focus()

	ti := textinput.New()
	ti.Placeholder = "path/to/image.png"
	ti.Prompt = "Image: "

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styleTitle

	m := Model{
		ctx:       ctx,
		workflow:  workflow,
		analysis:  analysis,
		width:     defaultWidth,
		input:     ta,
		imagePath: ti,
		spinner:   s,
		viewport:  viewport.New(defaultWidth, defaultViewportHeight),
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(msg.Width - 2)
		m.viewport.Width = msg.Width - 2
		if h := msg.Height - chromeHeight - textareaHeight; h > 3 {
			m.viewport.Height = h
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.busy() {
			m.refresh()
		}
		return m, cmd

	case requestDoneMsg:
		return m.handleRequestDone(msg), nil

	case exportDoneMsg:
		if msg.err == nil {
			m.status = fmt.Sprintf("Saved %s document to %s", msg.format, msg.path)
		} else if errors.Is(msg.err, services.ErrNoReport) {
			m.status = "Nothing to export yet"
		}
		m.refresh()
		return m, nil

	case imageSelectedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Could not attach %s: %v", msg.path, msg.err)
		} else if msg.path != "" {
			m.status = fmt.Sprintf("Attached %s", msg.path)
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.attaching {
		switch key {
		case "esc":
			m.stopAttaching()
			return m, nil
		case "enter":
			path := strings.TrimSpace(m.imagePath.Value())
			m.stopAttaching()
			return m, m.selectImage(path)
		}
		var cmd tea.Cmd
		m.imagePath, cmd = m.imagePath.Update(msg)
		return m, cmd
	}

	if idx, ok := sectionKeys[key]; ok {
		m.workflow.ToggleSection(services.SectionNames()[idx])
		m.refresh()
		return m, nil
	}

	switch key {
	case "esc":
		if m.session.ErrorNotice.Visible {
			m.workflow.DismissErrorNotice()
		} else if m.session.ValidationNotice.Visible {
			m.workflow.DismissValidationNotice()
		}
		m.refresh()
		return m, nil

	case "ctrl+s":
		cmd := m.send()
		return m, cmd

	case "ctrl+w":
		return m, m.export(models.FormatWord)

	case "ctrl+p":
		return m, m.export(models.FormatPDF)

	case "ctrl+o":
		m.attaching = true
		m.input.Blur()
		m.imagePath.Reset()
		return m, m.imagePath.Focus()

	case "ctrl+x":
		m.workflow.ClearImage()
		m.status = "Image removed"
		m.refresh()
		return m, nil

	case "ctrl+n":
		if m.pending {
			m.status = services.ErrRequestInFlight.Error()
			return m, nil
		}
		if err := m.workflow.Reset(); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.refinements = nil
		m.status = "Started a new session"
		m.input.Reset()
		m.refresh()
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send submits the requirement, or refines the report once one exists
func (m *Model) send() tea.Cmd {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" || m.busy() {
		return nil
	}

	workflow, ctx := m.workflow, m.ctx
	m.status = ""
	m.pending = true
	m.session.Loading = true
	if m.session.Analysis != nil {
		m.session.Phase = services.PhaseRefining
		m.refinements = append(m.refinements, text)
		return func() tea.Msg {
			return requestDoneMsg{refine: true, err: workflow.Refine(ctx, text)}
		}
	}
	return func() tea.Msg {
		return requestDoneMsg{err: workflow.Submit(ctx, text)}
	}
}

func (m Model) handleRequestDone(msg requestDoneMsg) Model {
	hadReport := m.session.Analysis != nil
	m.pending = false
	m.refresh()

	switch {
	case msg.err != nil:
		if msg.refine && len(m.refinements) > 0 {
			m.refinements = m.refinements[:len(m.refinements)-1]
		}
		if !errors.Is(msg.err, services.ErrBlankInput) && !errors.Is(msg.err, services.ErrBlankInstruction) {
			m.status = msg.err.Error()
		}
	case msg.refine && m.session.Instruction == "":
		m.input.Reset()
		m.status = "Report refined"
	case msg.refine:
		// failed refinement keeps the instruction for another attempt
		m.refinements = m.refinements[:len(m.refinements)-1]
	case !hadReport && m.session.Analysis != nil:
		m.input.Reset()
		m.input.Placeholder = "Tell the assistant how to refine the report..."
		m.status = "Analysis complete"
	}
	return m
}

func (m Model) export(format models.ExportFormat) tea.Cmd {
	if m.session.Analysis == nil {
		return nil
	}
	workflow, ctx := m.workflow, m.ctx
	return func() tea.Msg {
		path, err := workflow.ExportAs(ctx, format)
		return exportDoneMsg{format: format, path: path, err: err}
	}
}

func (m Model) selectImage(path string) tea.Cmd {
	workflow := m.workflow
	return func() tea.Msg {
		return imageSelectedMsg{path: path, err: workflow.SelectImage(path)}
	}
}

func (m *Model) stopAttaching() {
	m.attaching = false
	m.imagePath.Blur()
	m.input.Focus()
}

// busy reports whether a request is running or about to start
func (m Model) busy() bool {
	return m.pending || m.session.Loading
}

// refresh reloads the session snapshot and re-renders the report
func (m *Model) refresh() {
	m.session = m.workflow.Snapshot()

	var b strings.Builder
	if m.session.Analysis == nil {
		b.WriteString(styleMuted.Render("No report yet. Write a requirement below and press ctrl+s."))
	} else {
		b.WriteString(m.analysis.FormatReport(m.session))
	}
	m.viewport.SetContent(b.String())
}

// Refinements returns the instructions applied successfully so far
func (m Model) Refinements() []string {
	return append([]string(nil), m.refinements...)
}

// Session returns the last rendered snapshot
func (m Model) Session() services.Session {
	return m.session
}

func (m Model) View() string {
	var b strings.Builder

	header := styleTitle.Render("Requirement Refiner") + "  " +
		stylePhase.Render(string(m.session.Phase)) + "  " +
		styleMuted.Render("session "+shortID(m.session.ID))
	b.WriteString(header + "\n")

	if m.session.Analysis != nil {
		b.WriteString(fmt.Sprintf("Quality %s → %s", score(m.session.QualityBefore), score(m.session.QualityAfter)))
		if m.session.ExportsInFlight > 0 {
			b.WriteString(styleMuted.Render(fmt.Sprintf("  (%d export(s) running)", m.session.ExportsInFlight)))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.sectionBar() + "\n")

	if n := m.session.ErrorNotice; n.Visible {
		b.WriteString(styleErrorNotice.Render(n.Message+"\n"+styleMuted.Render("esc to dismiss")) + "\n")
	}
	if n := m.session.ValidationNotice; n.Visible {
		b.WriteString(styleValidationNotice.Render(n.Message+"\n"+styleMuted.Render("esc to dismiss")) + "\n")
	}

	b.WriteString(styleReport.Render(m.viewport.View()) + "\n")

	if img := m.session.SelectedImage; img != nil {
		b.WriteString(styleOK.Render(fmt.Sprintf("📎 %s attached", img.MIMEType)) + "\n")
	}

	if m.attaching {
		b.WriteString(m.imagePath.View() + "\n")
	} else if m.busy() {
		b.WriteString(m.spinner.View() + " " + loadingText(m.session.Analysis != nil) + "\n")
	} else {
		b.WriteString(m.input.View() + "\n")
	}

	if m.status != "" {
		b.WriteString(styleMuted.Render(m.status) + "\n")
	}
	b.WriteString(styleMuted.Render(helpLine(m.session.Analysis != nil)))

	return lipgloss.NewStyle().MaxWidth(m.width).Render(b.String())
}

func (m Model) sectionBar() string {
	names := services.SectionNames()
	parts := make([]string, 0, len(names))
	for i, name := range names {
		mark := "▸"
		style := styleMuted
		if m.session.Sections[name] {
			mark = "▾"
			style = lipgloss.NewStyle()
		}
		parts = append(parts, style.Render(fmt.Sprintf("%d%s%s", (i+1)%10, mark, services.SectionTitle(name))))
	}
	return strings.Join(parts, " ")
}

func loadingText(refining bool) string {
	if refining {
		return "Refining requirement..."
	}
	return "Analysing requirement..."
}

func helpLine(hasReport bool) string {
	if hasReport {
		return "ctrl+s refine • alt+1..0 sections • ctrl+w word • ctrl+p pdf • ctrl+n new • esc dismiss • ctrl+c quit"
	}
	return "ctrl+s analyse • ctrl+o attach image • ctrl+x remove image • esc dismiss • ctrl+c quit"
}

func score(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f", *v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
