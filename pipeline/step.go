// Package pipeline runs a registered set of analysis Steps over one game
// at a time, resolving their dependency closure into execution order and
// tracking per-step completion so a later run can resume where an
// earlier one left off.
package pipeline

import (
	"context"
	"fmt"

	"github.com/notnil/chess"

	"blundertutor/config"
	"blundertutor/enginepool"
	"blundertutor/models"
	"blundertutor/repository"
)

// Step is one unit of analysis work. StepID must be stable across
// releases: it is the key persisted in analysis_step_status.
type Step interface {
	StepID() string
	DependsOn() []string
	Execute(ctx context.Context, sc *StepContext) models.StepResult
}

// CompletionChecker is implemented by steps that need a non-default
// is_completed check; steps without one fall back to the repository's
// per-(game,step) status row.
type CompletionChecker interface {
	IsCompleted(ctx context.Context, sc *StepContext) (bool, error)
}

// StepContext is the per-run, per-game handle passed to every step: the
// parsed game tree, the repository, the engine/search budget, and the
// accumulating map of this run's step results.
type StepContext struct {
	GameID string
	Game   *models.Game

	// ParsedGame is populated by the executor before the first step
	// runs, by parsing Game.PGN once for the whole run.
	ParsedGame *chess.Game

	Repo       repository.Repository
	EnginePath string
	Thresholds models.Thresholds
	Depth      int
	TimeLimit  *float64
	ForceRerun bool

	// Engine is a borrowed pool engine handle for the "stockfish" step.
	// A step that needs one but finds this nil spawns (and closes) its
	// own, matching "owns the engine only if one wasn't passed in".
	Engine enginepool.Engine

	Cfg *config.Config

	// Results accumulates every step's outcome for this game, keyed by
	// step_id, so downstream steps can read a prior step's Data map.
	Results map[string]models.StepResult
}

// Result returns a prior step's result and whether it succeeded, for
// steps to read known data-map keys out of.
func (sc *StepContext) Result(stepID string) (models.StepResult, bool) {
	r, ok := sc.Results[stepID]
	return r, ok && r.Success
}

func defaultIsCompleted(ctx context.Context, sc *StepContext, stepID string) (bool, error) {
	done, err := sc.Repo.IsStepCompleted(ctx, sc.GameID, stepID)
	if err != nil {
		return false, fmt.Errorf("pipeline: is_completed(%s,%s): %w", sc.GameID, stepID, err)
	}
	return done, nil
}
