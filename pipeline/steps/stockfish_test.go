package steps

import (
	"context"
	"testing"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
	"github.com/stretchr/testify/require"

	"blundertutor/enginepool"
	"blundertutor/pipeline"
	"blundertutor/repository"
)

// fakeEngine scripts one uci.SearchResults per call to SearchResults, in
// call order, so a test can control exactly what the stockfish step sees
// for each position in its linear pass.
type fakeEngine struct {
	scripted []uci.SearchResults
	call     int
}

func (f *fakeEngine) Run(cmds ...uci.Cmd) error { return nil }
func (f *fakeEngine) SearchResults() uci.SearchResults {
	r := f.scripted[f.call]
	f.call++
	return r
}
func (f *fakeEngine) Close() error { return nil }

func findMove(pos *chess.Position, uciStr string) *chess.Move {
	for _, mv := range pos.ValidMoves() {
		if mv.String() == uciStr {
			return mv
		}
	}
	return nil
}

func TestStockfishStepEvaluatesEveryPositionOnce(t *testing.T) {
	game := mustGame(t, "1. e4 e5 *")
	positions := game.Positions()

	e4 := findMove(positions[0], "e2e4")
	require.NotNil(t, e4)
	e5 := findMove(positions[1], "e7e5")
	require.NotNil(t, e5)

	engine := &fakeEngine{scripted: []uci.SearchResults{
		{Info: uci.Info{Score: uci.Score{CP: 30}, PV: []*chess.Move{e4}}},
		{Info: uci.Info{Score: uci.Score{CP: -10}, PV: []*chess.Move{e5}}},
		{Info: uci.Info{Score: uci.Score{CP: 15}}},
	}}

	sc := &pipeline.StepContext{
		GameID:     "g1",
		ParsedGame: game,
		Repo:       repository.NewFake(),
		Depth:      10,
		Engine:     engine,
	}

	step := &StockfishStep{}
	result := step.Execute(context.Background(), sc)
	require.True(t, result.Success)

	evals, ok := result.Data[KeyEvaluations].([]Eval)
	require.True(t, ok)
	require.Len(t, evals, 2)
	require.Equal(t, 3, engine.call)
	require.Equal(t, "e2e4", evals[0].BestMoveUCI)
	require.Equal(t, "e7e5", evals[1].BestMoveUCI)
}

func TestStockfishStepSpawnsItsOwnEngineWhenNoneBorrowed(t *testing.T) {
	game := mustGame(t, "1. e4 *")
	positions := game.Positions()
	e4 := findMove(positions[0], "e2e4")
	require.NotNil(t, e4)

	spawned := &fakeEngine{scripted: []uci.SearchResults{
		{Info: uci.Info{Score: uci.Score{CP: 25}, PV: []*chess.Move{e4}}},
		{Info: uci.Info{Score: uci.Score{CP: 20}}},
	}}
	closed := false

	sc := &pipeline.StepContext{
		GameID:     "g1",
		ParsedGame: game,
		Repo:       repository.NewFake(),
		EnginePath: "stockfish",
		Depth:      10,
	}

	step := &StockfishStep{
		Spawn: func(ctx context.Context, enginePath string) (enginepool.Engine, error) {
			return &closingFakeEngine{fakeEngine: spawned, closed: &closed}, nil
		},
	}

	result := step.Execute(context.Background(), sc)
	require.True(t, result.Success)
	require.True(t, closed, "a step-owned engine must be closed after use")
}

type closingFakeEngine struct {
	*fakeEngine
	closed *bool
}

func (c *closingFakeEngine) Close() error {
	*c.closed = true
	return nil
}
