package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"blundertutor/models"
)

type fakeStep struct {
	id   string
	deps []string
}

func (f fakeStep) StepID() string      { return f.id }
func (f fakeStep) DependsOn() []string { return f.deps }
func (f fakeStep) Execute(ctx context.Context, sc *StepContext) models.StepResult {
	return models.StepResult{StepID: f.id, Success: true, Data: map[string]any{}}
}

func indexOf(order []Step, id string) int {
	for i, s := range order {
		if s.StepID() == id {
			return i
		}
	}
	return -1
}

func TestResolveFullPresetOrdersDependenciesFirst(t *testing.T) {
	reg, err := NewRegistry(
		fakeStep{id: "eco"},
		fakeStep{id: "stockfish"},
		fakeStep{id: "move_quality", deps: []string{"stockfish"}},
		fakeStep{id: "phase"},
		fakeStep{id: "tactics", deps: []string{"move_quality"}},
		fakeStep{id: "write", deps: []string{"move_quality", "phase", "eco"}},
	)
	require.NoError(t, err)

	order, err := Resolve(reg, []string{"eco", "stockfish", "move_quality", "phase", "write"})
	require.NoError(t, err)
	require.Len(t, order, 5)

	require.Less(t, indexOf(order, "stockfish"), indexOf(order, "move_quality"))
	require.Less(t, indexOf(order, "move_quality"), indexOf(order, "write"))
	require.Less(t, indexOf(order, "phase"), indexOf(order, "write"))
	require.Less(t, indexOf(order, "eco"), indexOf(order, "write"))
}

func TestResolvePullsInTransitiveDependency(t *testing.T) {
	reg, err := NewRegistry(
		fakeStep{id: "stockfish"},
		fakeStep{id: "move_quality", deps: []string{"stockfish"}},
		fakeStep{id: "tactics", deps: []string{"move_quality"}},
	)
	require.NoError(t, err)

	order, err := Resolve(reg, []string{"tactics"})
	require.NoError(t, err)
	require.Len(t, order, 3)
	require.Less(t, indexOf(order, "stockfish"), indexOf(order, "move_quality"))
	require.Less(t, indexOf(order, "move_quality"), indexOf(order, "tactics"))
}

func TestResolveUnregisteredRequestedStepIsConfigurationError(t *testing.T) {
	reg, err := NewRegistry(fakeStep{id: "eco"})
	require.NoError(t, err)

	_, err = Resolve(reg, []string{"nonexistent"})
	require.Error(t, err)
}

func TestResolveUnregisteredDependencyIsConfigurationError(t *testing.T) {
	reg, err := NewRegistry(fakeStep{id: "a", deps: []string{"missing"}})
	require.NoError(t, err)

	_, err = Resolve(reg, []string{"a"})
	require.Error(t, err)
}

func TestResolveBackfillPresetIsSingleStep(t *testing.T) {
	reg, err := NewRegistry(fakeStep{id: "eco"}, fakeStep{id: "phase"})
	require.NoError(t, err)

	order, err := Resolve(reg, []string{"eco"})
	require.NoError(t, err)
	ids := make([]string, 0, len(order))
	for _, s := range order {
		ids = append(ids, s.StepID())
	}
	require.Equal(t, []string{"eco"}, ids)
}

func TestNewRegistryRejectsDuplicateStepID(t *testing.T) {
	_, err := NewRegistry(fakeStep{id: "eco"}, fakeStep{id: "eco"})
	require.Error(t, err)
}
