package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_CanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateParsed, StateStructured, true},
		{StateStructured, StateRegrouped, true},
		{StateRegrouped, StateExtracted, true},
		{StateExtracted, StateResolved, true},
		{StateResolved, StateCommitted, true},
		{StateParsed, StateRegrouped, false},
		{StateExtracted, StateStructured, false},
		{StateParsed, StateRejected, true},
		{StateResolved, StateRejected, true},
		{StateCommitted, StateRejected, false},
		{StateRejected, StateParsed, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "committed", StateCommitted.String())
	assert.Equal(t, "rejected", StateRejected.String())
	assert.Equal(t, "state(99)", State(99).String())
	assert.True(t, StateRejected.Terminal())
	assert.False(t, StateResolved.Terminal())
}
