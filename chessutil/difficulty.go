package chessutil

import "github.com/notnil/chess"

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Difficulty is a best-effort [0,100] heuristic for how hard the best move
// was to find: more legal alternatives, a "quiet" (non-capture, non-check)
// best move, and a larger cp_loss for having missed it all push the score
// up. Callers must treat this as advisory only — no downstream step
// depends on it being present or precise.
func Difficulty(pos *chess.Position, bestMove *chess.Move, cpLoss int) float64 {
	legal := len(pos.ValidMoves())
	score := clamp(float64(legal)/40.0, 0, 1) * 40

	if bestMove != nil && !bestMove.HasTag(chess.Capture) && !bestMove.HasTag(chess.Check) {
		score += 30
	}

	score += clamp(float64(cpLoss)/500.0, 0, 1) * 30
	return clamp(score, 0, 100)
}
