package steps

import (
	"context"

	"blundertutor/chessutil"
	"blundertutor/models"
	"blundertutor/pipeline"
)

// PhaseStep classifies every ply's game phase from piece count and move
// number. It is pure: no engine, no I/O, no dependencies.
type PhaseStep struct{}

func (PhaseStep) StepID() string      { return "phase" }
func (PhaseStep) DependsOn() []string { return nil }

func (PhaseStep) Execute(ctx context.Context, sc *pipeline.StepContext) models.StepResult {
	positions := sc.ParsedGame.Positions()
	moves := sc.ParsedGame.Moves()

	var results []PhaseResult
	for i := range moves {
		if i+1 >= len(positions) {
			break
		}
		pos := positions[i+1]
		moveNumber := (i / 2) + 1
		phase := chessutil.ClassifyPhase(pos.Board(), moveNumber)
		results = append(results, PhaseResult{Ply: i + 1, MoveNumber: moveNumber, Phase: phase})
	}

	return models.StepResult{
		StepID:  "phase",
		Success: true,
		Data:    map[string]any{KeyPhases: results},
	}
}
