package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGate(t *testing.T) {
	for _, g := range []string{"behavioral", "relational", "epistemic", "promissory", "correction"} {
		got, err := ParseGate(g)
		require.NoError(t, err)
		assert.Equal(t, Gate(g), got)
	}

	_, err := ParseGate("checkpoint")
	assert.Error(t, err, "checkpoint is journal-only, not a valid Remember gate")

	_, err = ParseGate("bogus")
	assert.Error(t, err)
}

func TestDecayClassFor(t *testing.T) {
	cases := map[Gate]DecayClass{
		GatePromissory:  DecayNever,
		GateRelational:  DecaySlow,
		GateEpistemic:   DecayModerate,
		GateBehavioral:  DecayFast,
		GateCorrection:  DecayModerate,
		GateCheckpoint:  DecayFast,
		GateDigest:      DecayModerate,
		GateObservation: DecayFast,
	}
	for gate, want := range cases {
		assert.Equal(t, want, DecayClassFor(gate), "gate %s", gate)
	}
}
