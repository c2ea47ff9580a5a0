package services

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Workflow machine states
const (
	StateIdle       = "idle"
	StateSubmitting = "submitting"
	StateReport     = "report"
	StateRefining   = "refining"
)

// Workflow machine events
const (
	EventSubmit  = "submit"
	EventRefine  = "refine"
	EventSucceed = "succeed"
	EventFail    = "fail"
)

// machineContext lets guards look at session data owned by the workflow
type machineContext struct {
	HasReport func() bool
}

// WorkflowMachine defines the valid request transitions of a session
type WorkflowMachine struct {
	interpreter *statekit.Interpreter[machineContext]
}

// NewWorkflowMachine builds a machine starting in the idle state. hasReport
// guards the refine transition; nil means always allowed.
func NewWorkflowMachine(hasReport func() bool) (*WorkflowMachine, error) {
	if hasReport == nil {
		hasReport = func() bool { return true }
	}

	builder := statekit.NewMachine[machineContext]("requirement-workflow").
		WithInitial(statekit.StateID(StateIdle)).
		WithContext(machineContext{HasReport: hasReport}).
		WithGuard("hasReport", func(ctx machineContext, e statekit.Event) bool {
			return ctx.HasReport()
		})

	builder.State(StateIdle).
		On(EventSubmit).Target(StateSubmitting).
		Done()

	builder.State(StateSubmitting).
		On(EventSucceed).Target(StateReport).
		On(EventFail).Target(StateIdle).
		Done()

	builder.State(StateReport).
		On(EventRefine).Target(StateRefining).Guard("hasReport").
		Done()

	builder.State(StateRefining).
		On(EventSucceed).Target(StateReport).
		On(EventFail).Target(StateReport).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build workflow machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &WorkflowMachine{interpreter: interpreter}, nil
}

// Transition sends event and fails when the machine did not move
func (m *WorkflowMachine) Transition(event string) error {
	before := m.Current()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if m.Current() != before {
		return nil
	}
	return fmt.Errorf("%s is not allowed in the %s state", event, before)
}

// Current returns the current state
func (m *WorkflowMachine) Current() string {
	return string(m.interpreter.State().Value)
}
