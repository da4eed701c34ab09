package chessutil

import (
	"testing"

	"github.com/notnil/chess"
	"github.com/stretchr/testify/assert"

	"blundertutor/models"
)

func TestScoreToCPCentipawn(t *testing.T) {
	s := RawScore{CP: 37, Side: chess.White}
	assert.Equal(t, 37, ScoreToCP(s, chess.White))
	assert.Equal(t, -37, ScoreToCP(s, chess.Black))
}

func TestScoreToCPMate(t *testing.T) {
	s := RawScore{IsMate: true, Mate: 3, Side: chess.White}
	assert.Equal(t, models.MateScore, ScoreToCP(s, chess.White))
	assert.Equal(t, -models.MateScore, ScoreToCP(s, chess.Black))

	s2 := RawScore{IsMate: true, Mate: -2, Side: chess.White}
	assert.Equal(t, -models.MateScore, ScoreToCP(s2, chess.White))
}

func TestScoreToCPZeroValue(t *testing.T) {
	assert.Equal(t, 0, ScoreToCP(RawScore{}, chess.White))
}
