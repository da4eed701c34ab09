package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/notnil/chess/uci"
	"github.com/stretchr/testify/require"

	"blundertutor/config"
	"blundertutor/enginepool"
	"blundertutor/models"
	"blundertutor/pipeline"
	"blundertutor/repository"
)

type trivialStep struct{}

func (trivialStep) StepID() string      { return "noop" }
func (trivialStep) DependsOn() []string { return nil }
func (trivialStep) Execute(ctx context.Context, sc *pipeline.StepContext) models.StepResult {
	return models.StepResult{StepID: "noop", Success: true, Data: map[string]any{}}
}

type fakePoolEngine struct{}

func (fakePoolEngine) Run(cmds ...uci.Cmd) error      { return nil }
func (fakePoolEngine) SearchResults() uci.SearchResults { return uci.SearchResults{} }
func (fakePoolEngine) Close() error                   { return nil }

func newTestCoordinator(t *testing.T, repo repository.Repository) *Coordinator {
	t.Helper()
	reg, err := pipeline.NewRegistry(trivialStep{})
	require.NoError(t, err)
	executor := pipeline.NewExecutor(reg, repo, nil, nil)
	cfg := config.Default()
	cfg.Steps = []string{"noop"}

	pool := enginepool.New(enginepool.Options{
		Size:    2,
		Spawner: func(ctx context.Context) (enginepool.Engine, error) { return fakePoolEngine{}, nil },
	}, nil, nil)
	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(pool.Shutdown)

	return New(repo, executor, cfg, pool, nil, nil, nil, nil)
}

func putUnanalyzedGame(repo *repository.Fake, id string, age time.Duration) {
	repo.PutGame(&models.Game{ID: id, Source: models.SourceLichess, PGN: "1. e4 *", EndTimeUTC: time.Now().Add(-age)})
}

func TestCoordinatorAnalyzesEveryUnanalyzedGame(t *testing.T) {
	repo := repository.NewFake()
	putUnanalyzedGame(repo, "g1", 2*time.Hour)
	putUnanalyzedGame(repo, "g2", time.Hour)

	c := newTestCoordinator(t, repo)
	result, err := c.Run(context.Background(), Request{JobID: "job1", Steps: []string{"noop"}})
	require.NoError(t, err)
	require.Equal(t, models.BulkResult{Processed: 2, Analyzed: 2, Skipped: 0, Failed: 0}, result)
}

func TestCoordinatorSkipsGamesWithExistingAnalysis(t *testing.T) {
	repo := repository.NewFake()
	putUnanalyzedGame(repo, "g1", time.Hour)
	// ListUnanalyzedGameIDs filters on games.analyzed, not analysis_games,
	// so simulate the race spec.md names explicitly: an analysis record
	// exists even though the games table hasn't been flipped yet.
	require.NoError(t, repo.WriteAnalysis(context.Background(), models.AnalysisRecord{GameID: "g1"}, nil))

	c := newTestCoordinator(t, repo)
	result, err := c.Run(context.Background(), Request{JobID: "job1", Steps: []string{"noop"}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)
	require.Equal(t, 1, result.Skipped)
	require.Equal(t, 0, result.Analyzed)
}

func TestCoordinatorForceRerunIgnoresExistingAnalysis(t *testing.T) {
	repo := repository.NewFake()
	putUnanalyzedGame(repo, "g1", time.Hour)
	require.NoError(t, repo.WriteAnalysis(context.Background(), models.AnalysisRecord{GameID: "g1"}, nil))

	c := newTestCoordinator(t, repo)
	result, err := c.Run(context.Background(), Request{JobID: "job1", Steps: []string{"noop"}, ForceRerun: true})
	require.NoError(t, err)
	require.Equal(t, 1, result.Analyzed)
	require.Equal(t, 0, result.Skipped)
}

func TestCoordinatorRespectsLimit(t *testing.T) {
	repo := repository.NewFake()
	putUnanalyzedGame(repo, "g1", 3*time.Hour)
	putUnanalyzedGame(repo, "g2", 2*time.Hour)
	putUnanalyzedGame(repo, "g3", time.Hour)

	c := newTestCoordinator(t, repo)
	result, err := c.Run(context.Background(), Request{JobID: "job1", Steps: []string{"noop"}, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 2, result.Processed)
}
