package input

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsePhase(t *testing.T) {
	tests := []struct {
		input    string
		expected Phase
		hasError bool
	}{
		{"begin", PhaseBegin, false},
		{"PRESS", PhaseBegin, false},
		{"update", PhaseUpdate, false},
		{"motion", PhaseUpdate, false},
		{"end", PhaseEnd, false},
		{"Release", PhaseEnd, false},
		{"hover", 0, true},
		{"", 0, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			p, err := ParsePhase(test.input)
			if test.hasError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, test.expected, p)
		})
	}
}

func TestContactIDs(t *testing.T) {
	assert.Equal(t, ContactID("touch:7"), TouchContact(7))
	assert.NotEqual(t, MouseContact, TouchContact(0))
	assert.Equal(t, 1500*time.Millisecond, Millis(1500))
	assert.Equal(t, "update", PhaseUpdate.String())
}
