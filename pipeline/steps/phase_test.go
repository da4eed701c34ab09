package steps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"blundertutor/models"
	"blundertutor/pipeline"
	"blundertutor/repository"
)

func TestPhaseStepClassifiesEachPly(t *testing.T) {
	sc := &pipeline.StepContext{
		GameID:     "g1",
		ParsedGame: mustGame(t, "1. e4 e5 2. Nf3 Nc6 3. Bb5 *"),
		Repo:       repository.NewFake(),
	}

	result := PhaseStep{}.Execute(context.Background(), sc)
	require.True(t, result.Success)
	phases, ok := result.Data[KeyPhases].([]PhaseResult)
	require.True(t, ok)
	require.Len(t, phases, 5)
	for i, p := range phases {
		require.Equal(t, i+1, p.Ply)
		require.Equal(t, models.PhaseOpening, p.Phase)
	}
}
