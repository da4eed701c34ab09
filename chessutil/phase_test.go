package chessutil

import (
	"strings"
	"testing"

	"github.com/notnil/chess"
	"github.com/stretchr/testify/require"

	"blundertutor/models"
)

func mustGame(t *testing.T, pgn string) *chess.Game {
	t.Helper()
	fn, err := chess.PGN(strings.NewReader(pgn))
	require.NoError(t, err)
	return chess.NewGame(fn)
}

func TestClassifyPhaseOpeningByMoveAndMaterial(t *testing.T) {
	g := mustGame(t, "1. e4 e5 2. Nf3 Nc6 *")
	board := g.Position().Board()
	require.Equal(t, models.PhaseOpening, ClassifyPhase(board, 2))
}

func TestClassifyPhaseNotEndgameWithFullMaterial(t *testing.T) {
	g := mustGame(t, "1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# *")
	board := g.Position().Board()
	// After Scholar's mate 29 non-king pieces remain, far above either
	// endgame piece-count cutoff.
	require.NotEqual(t, models.PhaseEndgame, ClassifyPhase(board, 4))
}
