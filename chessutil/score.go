// Package chessutil holds the pure chess-domain helpers the pipeline steps
// share: score orientation, opening classification, phase heuristics, and
// tactical-motif detection. None of it touches the network, the engine
// pool, or a database; everything here is a plain function over
// *chess.Game / *chess.Position values from github.com/notnil/chess.
package chessutil

import "blundertutor/models"

// RawScore is an engine's evaluation of a position as reported over UCI:
// either a centipawn value or a mate-in-N count, always relative to
// whichever side was to move in the analysed position (the UCI
// convention), recorded here as Side.
type RawScore struct {
	CP     int
	Mate   int
	IsMate bool
	Side   Color
}

// ScoreToCP collapses a RawScore to a plain centipawn int from the
// requested perspective, mapping mate scores to the ±models.MateScore
// sentinel. A zero-value RawScore (no evaluation available) yields 0,
// mirroring the reference `score_to_cp`'s `... or 0` fallback for a missing
// score.
func ScoreToCP(s RawScore, perspective Color) int {
	var cp int
	if s.IsMate {
		if s.Mate > 0 {
			cp = models.MateScore
		} else {
			cp = -models.MateScore
		}
	} else {
		cp = s.CP
	}
	if s.Side != perspective {
		cp = -cp
	}
	return cp
}
