package wizard

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func st(step int, sub string, completed ...int) State {
	return State{Step: step, SubStep: sub, Completed: completed}
}

func TestNavigator_Next(t *testing.T) {
	nav := NewNavigator(DefaultFlow())

	tests := []struct {
		name string
		from State
		want State
	}{
		{"into a step without sub-steps", st(1, ""), st(2, "2a", 1)},
		{"within sub-steps", st(2, "2a", 1), st(2, "2b", 1)},
		{"last sub-step completes the step", st(2, "2d", 1), st(3, "3a", 1, 2)},
		{"into a plain step", st(3, "3c", 1, 2), st(4, "", 1, 2, 3)},
		{"to the final step", st(4, ""), st(5, "", 4)},
		{"final position is a no-op", st(5, "", 1, 2, 3, 4), st(5, "", 1, 2, 3, 4)},
		{"completion is not duplicated", st(1, "", 1), st(2, "2a", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nav.Next(tt.from)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Next() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNavigator_Previous(t *testing.T) {
	nav := NewNavigator(DefaultFlow())

	tests := []struct {
		name string
		from State
		want State
	}{
		{"first position is a no-op", st(1, ""), st(1, "")},
		{"within sub-steps", st(2, "2c"), st(2, "2b")},
		{"first sub-step to previous step", st(2, "2a"), st(1, "")},
		{"into the last sub-step", st(4, ""), st(3, "3c")},
		{"first sub-step of 3 to last of 2", st(3, "3a"), st(2, "2d")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nav.Previous(tt.from)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Previous() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNavigator_PreviousKeepsCompleted(t *testing.T) {
	nav := NewNavigator(DefaultFlow())
	got := nav.Previous(st(3, "3a", 1, 2))
	assert.Equal(t, []int{1, 2}, got.Completed)
}

func TestNavigator_Buttons(t *testing.T) {
	nav := NewNavigator(DefaultFlow())

	assert.True(t, nav.CanNext(nav.Initial()))
	assert.False(t, nav.CanPrevious(nav.Initial()))
	assert.True(t, nav.CanPrevious(st(2, "2a")))
	assert.True(t, nav.CanNext(st(4, "")))
	assert.False(t, nav.CanNext(st(5, "")))
	assert.True(t, nav.CanPrevious(st(5, "")))
}

func TestNavigator_Initial(t *testing.T) {
	nav := NewNavigator(DefaultFlow())
	s := nav.Initial()
	assert.Equal(t, 1, s.Step)
	assert.Empty(t, s.SubStep)
	assert.Empty(t, s.Completed)
}

func TestNavigator_JumpToStep(t *testing.T) {
	nav := NewNavigator(DefaultFlow())

	got, err := nav.JumpToStep(st(2, "2c", 1), 3)
	require.NoError(t, err)
	assert.Equal(t, st(3, "3a", 1), got)

	got, err = nav.JumpToStep(st(4, "3b"), 2)
	require.NoError(t, err)
	assert.Equal(t, "2a", got.SubStep, "entering a step directly resets to its first sub-step")

	got, err = nav.JumpToStep(st(3, "3b"), 5)
	require.NoError(t, err)
	assert.Equal(t, st(5, ""), got)

	from := st(2, "2b")
	got, err = nav.JumpToStep(from, 9)
	assert.ErrorIs(t, err, ErrUnknownStep)
	assert.Equal(t, from, got)
}

func TestNavigator_JumpToSubStep(t *testing.T) {
	nav := NewNavigator(DefaultFlow())

	got, err := nav.JumpToSubStep(st(2, "2a"), "2d")
	require.NoError(t, err)
	assert.Equal(t, "2d", got.SubStep)

	from := st(2, "2a")
	got, err = nav.JumpToSubStep(from, "3a")
	assert.ErrorIs(t, err, ErrUnknownSubStep)
	assert.Equal(t, from, got)

	_, err = nav.JumpToSubStep(st(1, ""), "2a")
	assert.ErrorIs(t, err, ErrUnknownSubStep)
}

func TestNavigator_ValidatorVeto(t *testing.T) {
	calls := 0
	nav := NewNavigator(DefaultFlow(), WithValidator(1, func(s State) (bool, string) {
		calls++
		return false, "main complaint is required"
	}))

	from := nav.Initial()
	got, err := nav.Next(from)
	var blocked *StepBlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, 1, blocked.Step)
	assert.Equal(t, "main complaint is required", blocked.Reason)
	assert.Contains(t, err.Error(), "main complaint is required")
	assert.Equal(t, from, got)
	assert.Equal(t, 1, calls)

	// other steps stay unguarded
	got, err = nav.Next(st(2, "2a"))
	require.NoError(t, err)
	assert.Equal(t, "2b", got.SubStep)
}

func TestNavigator_ValidatorNotCalledAtEnd(t *testing.T) {
	nav := NewNavigator(DefaultFlow(), WithValidator(5, func(State) (bool, string) {
		t.Fatal("validator must not run when there is nowhere to go")
		return false, ""
	}))
	_, err := nav.Next(st(5, ""))
	require.NoError(t, err)
}

func TestNavigator_PureTransitions(t *testing.T) {
	nav := NewNavigator(DefaultFlow())
	from := st(2, "2d", 1)
	_, err := nav.Next(from)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, from.Completed, "input state must not be mutated")
}

func TestNavigator_FullWalk(t *testing.T) {
	nav := NewNavigator(DefaultFlow())
	s := nav.Initial()
	var visited []string
	for {
		visited = append(visited, positionLabel(s))
		if !nav.CanNext(s) {
			break
		}
		var err error
		s, err = nav.Next(s)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"1", "2a", "2b", "2c", "2d", "3a", "3b", "3c", "4", "5"}, visited)
	assert.Equal(t, []int{1, 2, 3, 4}, s.Completed)

	var back []string
	for nav.CanPrevious(s) {
		s = nav.Previous(s)
		back = append(back, positionLabel(s))
	}
	assert.Equal(t, []string{"4", "3c", "3b", "3a", "2d", "2c", "2b", "2a", "1"}, back)
}

func positionLabel(s State) string {
	if s.SubStep != "" {
		return s.SubStep
	}
	return string(rune('0' + s.Step))
}
