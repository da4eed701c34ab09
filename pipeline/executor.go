package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/notnil/chess"

	"blundertutor/config"
	"blundertutor/enginepool"
	"blundertutor/models"
	"blundertutor/repository"
	"blundertutor/telemetry/logging"
	"blundertutor/telemetry/metrics"
	"blundertutor/telemetry/tracing"
)

// Executor runs a Registry's resolved step order over one game at a
// time.
type Executor struct {
	reg     *Registry
	repo    repository.Repository
	log     logging.Logger
	metrics metrics.Provider
}

// NewExecutor builds an Executor over reg, backed by repo.
func NewExecutor(reg *Registry, repo repository.Repository, log logging.Logger, metricsProvider metrics.Provider) *Executor {
	if log == nil {
		log = logging.NoOp()
	}
	if metricsProvider == nil {
		metricsProvider = metrics.NoOp()
	}
	return &Executor{reg: reg, repo: repo, log: log, metrics: metricsProvider}
}

// RunRequest parameterizes one Run call.
type RunRequest struct {
	GameID     string
	Steps      []string
	ForceRerun bool
	Cfg        *config.Config
	// Engine is an optional borrowed pool handle for the stockfish step;
	// when nil, the stockfish step spawns and closes its own.
	Engine enginepool.Engine
}

// Run executes the resolved step order for one game, returning a report
// of what ran, what was skipped, and what failed. It returns an error
// only when the requested steps cannot be resolved (an unregistered step
// or a dependency cycle); every other failure mode, a game that fails to
// load included, is captured in the returned report per spec.md's
// "return a failed report immediately" / "record as failed and break"
// semantics.
func (e *Executor) Run(ctx context.Context, req RunRequest) (models.PipelineReport, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.run_game")
	defer span.End()

	report := models.PipelineReport{GameID: req.GameID, StartedAt: time.Now()}

	order, err := Resolve(e.reg, req.Steps)
	if err != nil {
		report.CompletedAt = time.Now()
		report.Success = false
		report.Error = err.Error()
		return report, err
	}

	game, err := e.repo.LoadGame(ctx, req.GameID)
	if err != nil {
		report.CompletedAt = time.Now()
		report.Success = false
		report.Error = err.Error()
		return report, nil
	}

	parsed, err := chess.PGN(strings.NewReader(game.PGN))
	var parsedGame *chess.Game
	if err == nil {
		parsedGame = chess.NewGame(parsed)
	} else {
		parsedGame = chess.NewGame()
	}

	if req.ForceRerun {
		if err := e.repo.ClearStepStatus(ctx, req.GameID); err != nil {
			e.log.WarnCtx(ctx, "pipeline: failed to clear step status for force_rerun", "game_id", req.GameID, "error", err)
		}
	}

	sc := &StepContext{
		GameID:     req.GameID,
		Game:       game,
		ParsedGame: parsedGame,
		Repo:       e.repo,
		EnginePath: req.Cfg.EnginePath,
		Thresholds: req.Cfg.Thresholds,
		Depth:      req.Cfg.Depth,
		TimeLimit:  req.Cfg.TimeLimit,
		ForceRerun: req.ForceRerun,
		Engine:     req.Engine,
		Cfg:        req.Cfg,
		Results:    make(map[string]models.StepResult, len(order)),
	}

	report.Success = true
	for _, step := range order {
		stepID := step.StepID()

		completed, err := isCompleted(ctx, step, sc)
		if err != nil {
			report.StepsFailed = append(report.StepsFailed, stepID)
			report.Success = false
			report.Error = err.Error()
			break
		}

		if !req.ForceRerun && completed {
			report.StepsSkipped = append(report.StepsSkipped, stepID)
			sc.Results[stepID] = models.StepResult{StepID: stepID, Success: true, Data: map[string]any{}}
			continue
		}

		if missing := firstFailedDep(step, sc); missing != "" {
			result := models.StepResult{StepID: stepID, Success: false, Error: fmt.Sprintf("dependency %q did not succeed", missing)}
			sc.Results[stepID] = result
			report.StepsFailed = append(report.StepsFailed, stepID)
			report.Success = false
			report.Error = result.Error
			break
		}

		result := e.runStep(ctx, step, sc)
		sc.Results[stepID] = result
		if !result.Success {
			report.StepsFailed = append(report.StepsFailed, stepID)
			report.Success = false
			report.Error = result.Error
			break
		}

		if err := e.repo.MarkStepCompleted(ctx, req.GameID, stepID); err != nil {
			e.log.ErrorCtx(ctx, "pipeline: failed to mark step completed", "game_id", req.GameID, "step_id", stepID, "error", err)
		}
		report.StepsExecuted = append(report.StepsExecuted, stepID)
	}

	report.CompletedAt = time.Now()
	e.metrics.IncCounter("blundertutor_pipeline_runs_total", 1)
	if !report.Success {
		e.metrics.IncCounter("blundertutor_pipeline_failures_total", 1)
	}
	return report, nil
}

func (e *Executor) runStep(ctx context.Context, step Step, sc *StepContext) (result models.StepResult) {
	stepID := step.StepID()
	ctx, span := tracing.StartSpan(ctx, "pipeline.step."+stepID)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			result = models.StepResult{StepID: stepID, Success: false, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	return step.Execute(ctx, sc)
}

func isCompleted(ctx context.Context, step Step, sc *StepContext) (bool, error) {
	if checker, ok := step.(CompletionChecker); ok {
		return checker.IsCompleted(ctx, sc)
	}
	return defaultIsCompleted(ctx, sc, step.StepID())
}

func firstFailedDep(step Step, sc *StepContext) string {
	for _, dep := range step.DependsOn() {
		if _, ok := sc.Result(dep); !ok {
			return dep
		}
	}
	return ""
}
