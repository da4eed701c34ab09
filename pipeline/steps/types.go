// Package steps implements the six analysis steps spec.md §4.3 names:
// eco, stockfish, move_quality, phase, tactics, write. Each is a small
// pipeline.Step; the I/O-bound ones (eco's database lookup aside,
// really just stockfish and write) are kept separate from the pure
// transforms (move_quality, phase, tactics) so the pure ones can be
// tested without an engine or a database.
package steps

import "blundertutor/models"

// Eval is one position's engine evaluation, gathered by the stockfish
// step and consumed by move_quality.
type Eval struct {
	Ply          int
	MoveNumber   int
	Player       int // 0 = white, 1 = black
	UCI          string
	SAN          string
	EvalBefore   int
	EvalAfter    int
	BestMoveUCI  string
	BestMoveSAN  string
	BestLine     string
	BestMoveEval int
}

// QualityResult is one move_quality-classified ply, ready for the write
// step (minus phase/tactics, merged in later).
type QualityResult struct {
	Eval
	Delta          int
	CPLoss         int
	Classification models.MoveClassification
	Difficulty     *float64
}

// PhaseResult is one phase-classified ply.
type PhaseResult struct {
	Ply        int
	MoveNumber int
	Phase      models.GamePhase
}

// TacticsResult is the motif recorded for one blunder ply.
type TacticsResult struct {
	Ply     int
	Pattern models.TacticalPattern
	Reason  string
}

// Data map keys every step reads or writes.
const (
	KeyECOCode      = "eco_code"
	KeyECOName      = "eco_name"
	KeyEvaluations  = "evaluations"
	KeyQuality      = "quality"
	KeyPhases       = "phases"
	KeyTactics      = "tactics"
)
