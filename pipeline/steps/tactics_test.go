package steps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"blundertutor/models"
	"blundertutor/pipeline"
	"blundertutor/repository"
)

func TestTacticsStepOnlyExaminesBlunderPlies(t *testing.T) {
	sc := &pipeline.StepContext{
		GameID:     "g1",
		ParsedGame: mustGame(t, "1. e4 e5 2. Qh5 *"),
		Repo:       repository.NewFake(),
		Results: map[string]models.StepResult{
			"move_quality": {
				StepID:  "move_quality",
				Success: true,
				Data: map[string]any{
					KeyQuality: []QualityResult{
						{Eval: Eval{Ply: 1, MoveNumber: 1, Player: 0}, Classification: models.ClassificationGood},
						{Eval: Eval{Ply: 2, MoveNumber: 1, Player: 1}, Classification: models.ClassificationGood},
						{Eval: Eval{Ply: 3, MoveNumber: 2, Player: 0}, Classification: models.ClassificationBlunder},
					},
				},
			},
		},
	}

	result := TacticsStep{}.Execute(context.Background(), sc)
	require.True(t, result.Success)
	tactics, ok := result.Data[KeyTactics].([]TacticsResult)
	require.True(t, ok)
	// Only ply 3 (index 2) is a blunder; the step must not examine the
	// other two plies at all, regardless of what it finds for ply 3.
	for _, tr := range tactics {
		require.Equal(t, 3, tr.Ply)
	}
}

func TestTacticsStepRehydratesFromRepositoryWhenMoveQualitySkipped(t *testing.T) {
	repo := repository.NewFake()
	require.NoError(t, repo.WriteAnalysis(context.Background(), models.AnalysisRecord{GameID: "g1"}, []models.MoveRecord{
		{GameID: "g1", Ply: 1, MoveNumber: 1, Player: 0, Classification: models.ClassificationGood},
		{GameID: "g1", Ply: 2, MoveNumber: 1, Player: 1, Classification: models.ClassificationGood},
		{GameID: "g1", Ply: 3, MoveNumber: 2, Player: 0, Classification: models.ClassificationBlunder},
	}))

	sc := &pipeline.StepContext{
		GameID:     "g1",
		ParsedGame: mustGame(t, "1. e4 e5 2. Qh5 *"),
		Repo:       repo,
		Results: map[string]models.StepResult{
			// Synthesized empty result, as the executor produces for a
			// step it skipped because it was already completed.
			"move_quality": {StepID: "move_quality", Success: true, Data: map[string]any{}},
		},
	}

	result := TacticsStep{}.Execute(context.Background(), sc)
	require.True(t, result.Success)
	tactics, ok := result.Data[KeyTactics].([]TacticsResult)
	require.True(t, ok)
	for _, tr := range tactics {
		require.Equal(t, 3, tr.Ply)
	}
}
