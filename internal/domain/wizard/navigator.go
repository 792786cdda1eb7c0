package wizard

import (
	"fmt"
	"slices"
)

// State is the navigator position. Completed is kept sorted.
type State struct {
	Step      int    `json:"step"`
	SubStep   string `json:"sub_step,omitempty"`
	Completed []int  `json:"completed"`
}

func (s State) IsCompleted(step int) bool {
	_, found := slices.BinarySearch(s.Completed, step)
	return found
}

func (s State) withCompleted(step int) State {
	i, found := slices.BinarySearch(s.Completed, step)
	if found {
		return s
	}
	s.Completed = slices.Insert(slices.Clone(s.Completed), i, step)
	return s
}

// Validator is consulted before leaving the current position with Next.
// A false result vetoes the move; reason is shown to the coach.
type Validator func(s State) (ok bool, reason string)

// StepBlockedError reports a Next vetoed by the step's validator.
type StepBlockedError struct {
	Step   int
	Reason string
}

func (e *StepBlockedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("step %d is not complete", e.Step)
	}
	return fmt.Sprintf("step %d is not complete: %s", e.Step, e.Reason)
}

type NavigatorOption func(*Navigator)

// WithValidator installs the Next check for one step. Steps without a
// validator are always valid.
func WithValidator(step int, v Validator) NavigatorOption {
	return func(n *Navigator) { n.validators[step] = v }
}

// Navigator computes transitions over a Flow. It holds no position of its
// own; every transition takes a State and returns the next one.
type Navigator struct {
	flow       *Flow
	validators map[int]Validator
}

func NewNavigator(flow *Flow, opts ...NavigatorOption) *Navigator {
	n := &Navigator{flow: flow, validators: make(map[int]Validator)}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Navigator) Flow() *Flow { return n.flow }

// Initial is the first step at its first sub-step with nothing completed.
func (n *Navigator) Initial() State {
	first := n.flow.Steps[0]
	return State{Step: first.Number, SubStep: first.firstSubStep(), Completed: []int{}}
}

// position resolves s to step and sub-step indexes, falling back to the
// start of the flow for a position the flow does not know.
func (n *Navigator) position(s State) (int, int) {
	si := n.flow.index(s.Step)
	if si < 0 {
		return 0, 0
	}
	step := n.flow.Steps[si]
	if len(step.SubSteps) == 0 {
		return si, -1
	}
	ssi := step.subStepIndex(s.SubStep)
	if ssi < 0 {
		ssi = 0
	}
	return si, ssi
}

func (n *Navigator) CanNext(s State) bool {
	si, ssi := n.position(s)
	step := n.flow.Steps[si]
	if ssi >= 0 && ssi < len(step.SubSteps)-1 {
		return true
	}
	return si < len(n.flow.Steps)-1
}

func (n *Navigator) CanPrevious(s State) bool {
	si, ssi := n.position(s)
	return ssi > 0 || si > 0
}

// Next advances one sub-step, or completes the step and enters the next
// one at its first sub-step. At the final position it returns s unchanged.
func (n *Navigator) Next(s State) (State, error) {
	if !n.CanNext(s) {
		return s, nil
	}
	if v, ok := n.validators[s.Step]; ok {
		if valid, reason := v(s); !valid {
			return s, &StepBlockedError{Step: s.Step, Reason: reason}
		}
	}

	si, ssi := n.position(s)
	step := n.flow.Steps[si]
	if ssi >= 0 && ssi < len(step.SubSteps)-1 {
		s.SubStep = step.SubSteps[ssi+1].Token
		return s, nil
	}
	s = s.withCompleted(step.Number)
	next := n.flow.Steps[si+1]
	s.Step = next.Number
	s.SubStep = next.firstSubStep()
	return s, nil
}

// Previous retreats one sub-step, or enters the previous step at its last
// sub-step. At the first position it returns s unchanged.
func (n *Navigator) Previous(s State) State {
	si, ssi := n.position(s)
	step := n.flow.Steps[si]
	if ssi > 0 {
		s.SubStep = step.SubSteps[ssi-1].Token
		return s
	}
	if si == 0 {
		return s
	}
	prev := n.flow.Steps[si-1]
	s.Step = prev.Number
	s.SubStep = prev.lastSubStep()
	return s
}

// JumpToStep moves to step at its first sub-step.
func (n *Navigator) JumpToStep(s State, step int) (State, error) {
	target, ok := n.flow.Step(step)
	if !ok {
		return s, fmt.Errorf("%w: %d", ErrUnknownStep, step)
	}
	s.Step = target.Number
	s.SubStep = target.firstSubStep()
	return s, nil
}

// JumpToSubStep accepts only tokens of the current step.
func (n *Navigator) JumpToSubStep(s State, token string) (State, error) {
	step, ok := n.flow.Step(s.Step)
	if !ok || step.subStepIndex(token) < 0 {
		return s, fmt.Errorf("%w: %q is not part of step %d", ErrUnknownSubStep, token, s.Step)
	}
	s.SubStep = token
	return s, nil
}
