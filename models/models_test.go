package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThresholdsValidate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())
}

func TestThresholdsValidateRejectsNonMonotonic(t *testing.T) {
	cases := []Thresholds{
		{Inaccuracy: 100, Mistake: 50, Blunder: 200},
		{Inaccuracy: 50, Mistake: 100, Blunder: 100},
		{Inaccuracy: 50, Mistake: 50, Blunder: 200},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, tc.Validate(), ErrNonMonotonicThresholds)
	}
}

func TestMoveClassificationString(t *testing.T) {
	assert.Equal(t, "good", ClassificationGood.String())
	assert.Equal(t, "blunder", ClassificationBlunder.String())
}

func TestGamePhaseString(t *testing.T) {
	assert.Equal(t, "opening", PhaseOpening.String())
	assert.Equal(t, "endgame", PhaseEndgame.String())
}

func TestTacticalPatternString(t *testing.T) {
	assert.Equal(t, "fork", PatternFork.String())
	assert.Equal(t, "overloaded_piece", PatternOverloadedPiece.String())
}
