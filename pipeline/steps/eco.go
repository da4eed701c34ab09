package steps

import (
	"context"

	"blundertutor/chessutil"
	"blundertutor/models"
	"blundertutor/pipeline"
)

// ECOStep classifies a game's opening by matching its mainline SAN
// prefix against an ECO taxonomy. It has no dependencies and tolerates
// SAN formatting errors: the mainline SAN stops at the first move that
// cannot be encoded, and the prefix before it is what gets classified.
type ECOStep struct {
	DB *chessutil.ECODatabase
}

// NewECOStep constructs an ECOStep using db, or the embedded default
// fixture when db is nil.
func NewECOStep(db *chessutil.ECODatabase) *ECOStep {
	if db == nil {
		if loaded, err := chessutil.DefaultECODatabase(); err == nil {
			db = loaded
		} else {
			db = &chessutil.ECODatabase{}
		}
	}
	return &ECOStep{DB: db}
}

func (s *ECOStep) StepID() string      { return "eco" }
func (s *ECOStep) DependsOn() []string { return nil }

func (s *ECOStep) Execute(ctx context.Context, sc *pipeline.StepContext) models.StepResult {
	san := chessutil.MainlineSAN(sc.ParsedGame)
	code, name := s.DB.Classify(san)

	if err := sc.Repo.UpdateGameECO(ctx, sc.GameID, code, name); err != nil {
		return models.StepResult{StepID: s.StepID(), Success: false, Error: err.Error()}
	}

	return models.StepResult{
		StepID:  s.StepID(),
		Success: true,
		Data: map[string]any{
			KeyECOCode: code,
			KeyECOName: name,
		},
	}
}
