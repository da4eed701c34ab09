// Package models holds the plain data types shared across the analysis
// engine: games, persisted analysis results, and the in-memory bookkeeping
// the pipeline passes between steps.
package models

import "time"

// Source identifies which site a Game was imported from.
type Source string

const (
	SourceLichess Source = "lichess"
	SourceChessCom Source = "chesscom"
)

// Game is a single imported chess game, identified by the content hash of
// its normalized PGN text. It is immutable after creation except for the
// Analyzed flag, which the pipeline flips once a write step has persisted
// results for it.
type Game struct {
	ID         string    `json:"id"`
	Source     Source    `json:"source"`
	Username   string    `json:"username"`
	White      string    `json:"white"`
	Black      string    `json:"black"`
	Result     string    `json:"result"`
	EndTimeUTC time.Time `json:"end_time_utc"`
	TimeControl string   `json:"time_control"`
	PGN        string    `json:"pgn"`
	Analyzed   bool      `json:"analyzed"`
}

// Thresholds are the centipawn cutoffs used to classify move quality. They
// must be strictly increasing: Inaccuracy < Mistake < Blunder.
type Thresholds struct {
	Inaccuracy int `yaml:"inaccuracy" json:"inaccuracy"`
	Mistake    int `yaml:"mistake" json:"mistake"`
	Blunder    int `yaml:"blunder" json:"blunder"`
}

// DefaultThresholds returns the reference thresholds (50/100/200 cp).
func DefaultThresholds() Thresholds {
	return Thresholds{Inaccuracy: 50, Mistake: 100, Blunder: 200}
}

// Validate reports whether the thresholds are strictly increasing.
func (t Thresholds) Validate() error {
	if !(t.Inaccuracy < t.Mistake && t.Mistake < t.Blunder) {
		return ErrNonMonotonicThresholds
	}
	return nil
}

// MoveClassification is the quality bucket assigned to a single move.
type MoveClassification int

const (
	ClassificationGood MoveClassification = iota
	ClassificationInaccuracy
	ClassificationMistake
	ClassificationBlunder
)

func (c MoveClassification) String() string {
	switch c {
	case ClassificationGood:
		return "good"
	case ClassificationInaccuracy:
		return "inaccuracy"
	case ClassificationMistake:
		return "mistake"
	case ClassificationBlunder:
		return "blunder"
	default:
		return "unknown"
	}
}

// GamePhase buckets a position by opening/middlegame/endgame.
type GamePhase int

const (
	PhaseOpening GamePhase = iota
	PhaseMiddlegame
	PhaseEndgame
)

func (p GamePhase) String() string {
	switch p {
	case PhaseOpening:
		return "opening"
	case PhaseMiddlegame:
		return "middlegame"
	case PhaseEndgame:
		return "endgame"
	default:
		return "unknown"
	}
}

// TacticalPattern enumerates the motifs the tactics step can assign to a
// blunder ply. TrappedPiece, RemovalOfDefender and OverloadedPiece are
// reserved: the classifier below never emits them, matching the reference
// detector it is ported from, but downstream consumers should still accept
// them so a future detector addition is not a breaking change.
type TacticalPattern int

const (
	PatternNone TacticalPattern = iota
	PatternFork
	PatternPin
	PatternSkewer
	PatternDiscoveredAttack
	PatternDiscoveredCheck
	PatternDoubleCheck
	PatternBackRankThreat
	PatternHangingPiece
	PatternTrappedPiece
	PatternRemovalOfDefender
	PatternOverloadedPiece
)

func (p TacticalPattern) String() string {
	switch p {
	case PatternNone:
		return "none"
	case PatternFork:
		return "fork"
	case PatternPin:
		return "pin"
	case PatternSkewer:
		return "skewer"
	case PatternDiscoveredAttack:
		return "discovered_attack"
	case PatternDiscoveredCheck:
		return "discovered_check"
	case PatternDoubleCheck:
		return "double_check"
	case PatternBackRankThreat:
		return "back_rank_threat"
	case PatternHangingPiece:
		return "hanging_piece"
	case PatternTrappedPiece:
		return "trapped_piece"
	case PatternRemovalOfDefender:
		return "removal_of_defender"
	case PatternOverloadedPiece:
		return "overloaded_piece"
	default:
		return "unknown"
	}
}

// MateScore is the sentinel used in place of a real centipawn value when a
// position is a forced/delivered mate, signed from the side the score is
// computed for.
const MateScore = 100000

// AnalysisRecord is the per-game aggregate written by the write step. One
// row exists per game and is replaced wholesale on re-analysis.
type AnalysisRecord struct {
	GameID     string     `json:"game_id"`
	PGNPath    string     `json:"pgn_path"`
	AnalyzedAt time.Time  `json:"analyzed_at"`
	EnginePath string     `json:"engine_path"`
	Depth      int        `json:"depth"`
	TimeLimit  *float64   `json:"time_limit,omitempty"`
	Thresholds Thresholds `json:"thresholds"`
	ECOCode    *string    `json:"eco_code,omitempty"`
	ECOName    *string    `json:"eco_name,omitempty"`
}

// MoveRecord is one analyzed ply.
type MoveRecord struct {
	GameID        string             `json:"game_id"`
	Ply           int                `json:"ply"`
	MoveNumber    int                `json:"move_number"`
	Player        int                `json:"player"` // 0 = white, 1 = black
	UCI           string             `json:"uci"`
	SAN           string             `json:"san"`
	EvalBefore    int                `json:"eval_before"`
	EvalAfter     int                `json:"eval_after"`
	Delta         int                `json:"delta"`
	CPLoss        int                `json:"cp_loss"`
	Classification MoveClassification `json:"classification"`
	BestMoveUCI   string             `json:"best_move_uci,omitempty"`
	BestMoveSAN   string             `json:"best_move_san,omitempty"`
	BestLine      string             `json:"best_line,omitempty"`
	BestMoveEval  int                `json:"best_move_eval"`
	GamePhase     GamePhase          `json:"game_phase"`
	TacticalPattern *TacticalPattern `json:"tactical_pattern,omitempty"`
	TacticalReason  *string          `json:"tactical_reason,omitempty"`
	Difficulty      *float64         `json:"difficulty,omitempty"`
}

// StepStatus records that a (game_id, step_id) pair has completed, so the
// executor can skip it on a later run.
type StepStatus struct {
	GameID      string    `json:"game_id"`
	StepID      string    `json:"step_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// StepResult is what a step's Execute returns: success flag, an opaque
// data bag downstream steps read known keys out of, and an error message
// when Success is false.
type StepResult struct {
	StepID  string
	Success bool
	Data    map[string]any
	Error   string
}

// PipelineReport summarizes one executor run over one game.
type PipelineReport struct {
	GameID        string    `json:"game_id"`
	StepsExecuted []string  `json:"steps_executed"`
	StepsSkipped  []string  `json:"steps_skipped"`
	StepsFailed   []string  `json:"steps_failed"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   time.Time `json:"completed_at"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
}

// BulkResult is the counters returned by a bulk coordinator run.
type BulkResult struct {
	Processed int `json:"processed"`
	Analyzed  int `json:"analyzed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}
