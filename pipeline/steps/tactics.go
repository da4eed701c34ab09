package steps

import (
	"context"

	"github.com/notnil/chess"

	"blundertutor/chessutil"
	"blundertutor/models"
	"blundertutor/pipeline"
)

// TacticsStep identifies the primary tactical motif behind each blunder
// ply move_quality classified. It depends on move_quality.
type TacticsStep struct{}

func (TacticsStep) StepID() string      { return "tactics" }
func (TacticsStep) DependsOn() []string { return []string{"move_quality"} }

func (TacticsStep) Execute(ctx context.Context, sc *pipeline.StepContext) models.StepResult {
	mqResult, ok := sc.Result("move_quality")
	if !ok {
		return models.StepResult{StepID: "tactics", Success: false, Error: "tactics: move_quality result missing"}
	}
	quality, ok := mqResult.Data[KeyQuality].([]QualityResult)
	if !ok {
		// move_quality was skipped (already completed in an earlier run):
		// its synthesized result carries no Data. Rehydrate from what
		// write already persisted instead of re-querying the engine.
		moves, err := sc.Repo.LoadMoveRecords(ctx, sc.GameID)
		if err != nil {
			return models.StepResult{StepID: "tactics", Success: false, Error: "tactics: move_quality data missing and rehydration failed: " + err.Error()}
		}
		quality = qualityFromMoveRecords(moves)
	}

	positions := sc.ParsedGame.Positions()
	moves := sc.ParsedGame.Moves()

	var out []TacticsResult
	for i, q := range quality {
		if q.Classification != models.ClassificationBlunder || i >= len(positions) || i >= len(moves) {
			continue
		}
		before := positions[i]
		blunderMove := moves[i]

		var bestMove *chess.Move
		if q.BestMoveUCI != "" {
			for _, mv := range before.ValidMoves() {
				if mv.String() == q.BestMoveUCI {
					bestMove = mv
					break
				}
			}
		}

		bt := chessutil.ClassifyBlunderTactics(before, blunderMove, bestMove)
		out = append(out, TacticsResult{Ply: q.Ply, Pattern: bt.PrimaryPattern(), Reason: bt.Reason})
	}

	return models.StepResult{
		StepID:  "tactics",
		Success: true,
		Data:    map[string]any{KeyTactics: out},
	}
}
