package chessutil

import (
	"github.com/notnil/chess"

	"blundertutor/models"
)

// ClassifyPhase buckets a position into opening/middlegame/endgame from the
// piece count on the board (kings excluded) and the current move number,
// in the exact branch order the reference heuristic uses: each rule is
// checked in turn and the first match wins.
func ClassifyPhase(board *chess.Board, moveNumber int) models.GamePhase {
	pieces := len(board.SquareMap()) - 2

	switch {
	case moveNumber <= 10 && pieces >= 20:
		return models.PhaseOpening
	case moveNumber <= 15 && pieces >= 16:
		return models.PhaseOpening
	case pieces <= 6:
		return models.PhaseEndgame
	case pieces <= 10 && moveNumber > 30:
		return models.PhaseEndgame
	default:
		return models.PhaseMiddlegame
	}
}
