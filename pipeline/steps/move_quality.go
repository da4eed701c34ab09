package steps

import (
	"context"

	"github.com/notnil/chess"

	"blundertutor/chessutil"
	"blundertutor/models"
	"blundertutor/pipeline"
)

// MoveQualityStep is a pure transform of the stockfish step's per-ply
// evaluations into a classification plus an optional difficulty score.
// It depends on stockfish and does no I/O of its own.
type MoveQualityStep struct {
	// ComputeDifficulty turns the heuristic on; it is optional because
	// no downstream step depends on its presence or precision.
	ComputeDifficulty bool
}

func (s *MoveQualityStep) StepID() string      { return "move_quality" }
func (s *MoveQualityStep) DependsOn() []string { return []string{"stockfish"} }

func (s *MoveQualityStep) Execute(ctx context.Context, sc *pipeline.StepContext) models.StepResult {
	sfResult, ok := sc.Result("stockfish")
	if !ok {
		return models.StepResult{StepID: s.StepID(), Success: false, Error: "move_quality: stockfish result missing"}
	}
	evals, ok := sfResult.Data[KeyEvaluations].([]Eval)
	if !ok {
		return models.StepResult{StepID: s.StepID(), Success: false, Error: "move_quality: stockfish evaluations missing"}
	}

	th := sc.Thresholds
	positions := sc.ParsedGame.Positions()
	moves := sc.ParsedGame.Moves()

	results := make([]QualityResult, 0, len(evals))
	for i, ev := range evals {
		var cpLoss int
		var classification models.MoveClassification

		if ev.EvalAfter == models.MateScore {
			cpLoss = 0
			classification = models.ClassificationGood
		} else {
			delta := ev.EvalBefore - ev.EvalAfter
			cpLoss = max(0, delta)

			// The player had a won-mate score before moving and still
			// holds a decisive advantage after: don't call this a
			// blunder just because the forced mate evaporated.
			if ev.EvalBefore >= models.MateScore && ev.EvalAfter > 500 {
				cpLoss = min(cpLoss, th.Inaccuracy-1)
			}

			classification = classify(cpLoss, th)
		}

		var difficulty *float64
		if s.ComputeDifficulty && i < len(positions) {
			var bestMove *chess.Move
			if ev.BestMoveUCI != "" && i < len(moves) {
				for _, mv := range positions[i].ValidMoves() {
					if mv.String() == ev.BestMoveUCI {
						bestMove = mv
						break
					}
				}
			}
			d := chessutil.Difficulty(positions[i], bestMove, cpLoss)
			difficulty = &d
		}

		results = append(results, QualityResult{
			Eval:           ev,
			Delta:          ev.EvalBefore - ev.EvalAfter,
			CPLoss:         cpLoss,
			Classification: classification,
			Difficulty:     difficulty,
		})
	}

	return models.StepResult{
		StepID:  s.StepID(),
		Success: true,
		Data:    map[string]any{KeyQuality: results},
	}
}

func classify(cpLoss int, th models.Thresholds) models.MoveClassification {
	switch {
	case cpLoss >= th.Blunder:
		return models.ClassificationBlunder
	case cpLoss >= th.Mistake:
		return models.ClassificationMistake
	case cpLoss >= th.Inaccuracy:
		return models.ClassificationInaccuracy
	default:
		return models.ClassificationGood
	}
}
