package steps

import (
	"context"
	"time"

	"blundertutor/models"
	"blundertutor/pipeline"
)

// WriteStep merges phase and tactics data into the move_quality results
// and persists the game's AnalysisRecord plus every MoveRecord in one
// transaction. This is the step whose durable side effect the whole
// pipeline commits to; its completion marker must only be set after
// this succeeds.
type WriteStep struct{}

func (WriteStep) StepID() string      { return "write" }
func (WriteStep) DependsOn() []string { return []string{"move_quality", "phase", "eco"} }

func (WriteStep) Execute(ctx context.Context, sc *pipeline.StepContext) models.StepResult {
	mqResult, ok := sc.Result("move_quality")
	if !ok {
		return models.StepResult{StepID: "write", Success: false, Error: "write: move_quality result missing"}
	}
	quality, ok := mqResult.Data[KeyQuality].([]QualityResult)
	if !ok {
		// Skipped dependency: rehydrate from already-persisted moves
		// rather than treat this as a hard failure. This is what lets a
		// resumed run after a crash between move_quality's completion
		// and write's persist the same move rows without re-querying
		// the engine. (No backfill preset includes write.)
		moves, err := sc.Repo.LoadMoveRecords(ctx, sc.GameID)
		if err != nil {
			return models.StepResult{StepID: "write", Success: false, Error: "write: move_quality data missing and rehydration failed: " + err.Error()}
		}
		quality = qualityFromMoveRecords(moves)
	}

	phaseByPly := map[int]models.GamePhase{}
	if phaseResult, ok := sc.Result("phase"); ok {
		if phases, ok := phaseResult.Data[KeyPhases].([]PhaseResult); ok {
			for _, p := range phases {
				phaseByPly[p.Ply] = p.Phase
			}
		} else if moves, err := sc.Repo.LoadMoveRecords(ctx, sc.GameID); err == nil {
			for _, p := range phasesFromMoveRecords(moves) {
				phaseByPly[p.Ply] = p.Phase
			}
		}
	}

	tacticsByPly := map[int]TacticsResult{}
	if tacticsResult, ok := sc.Result("tactics"); ok {
		if tactics, ok := tacticsResult.Data[KeyTactics].([]TacticsResult); ok {
			for _, t := range tactics {
				tacticsByPly[t.Ply] = t
			}
		} else if moves, err := sc.Repo.LoadMoveRecords(ctx, sc.GameID); err == nil {
			tacticsByPly = tacticsFromMoveRecords(moves)
		}
	} else if moves, err := sc.Repo.LoadMoveRecords(ctx, sc.GameID); err == nil {
		// tactics wasn't requested this run at all (e.g. the full
		// preset, which does not include it): preserve whatever tactical patterns a prior
		// run already recorded instead of dropping them on this upsert.
		tacticsByPly = tacticsFromMoveRecords(moves)
	}

	var ecoCode, ecoName *string
	ecoFromData := false
	if ecoResult, ok := sc.Result("eco"); ok {
		if c, ok := ecoResult.Data[KeyECOCode].(*string); ok {
			ecoCode = c
			ecoFromData = true
		}
		if n, ok := ecoResult.Data[KeyECOName].(*string); ok {
			ecoName = n
			ecoFromData = true
		}
	}
	if !ecoFromData {
		// eco was skipped (already completed earlier): rehydrate the
		// columns it already wrote rather than overwriting them with
		// NULL on this upsert.
		if code, name, err := sc.Repo.LoadAnalysisECO(ctx, sc.GameID); err == nil {
			ecoCode, ecoName = code, name
		}
	}

	moves := make([]models.MoveRecord, 0, len(quality))
	for _, q := range quality {
		mv := models.MoveRecord{
			GameID: sc.GameID, Ply: q.Ply, MoveNumber: q.MoveNumber, Player: q.Player,
			UCI: q.UCI, SAN: q.SAN, EvalBefore: q.EvalBefore, EvalAfter: q.EvalAfter,
			Delta: q.Delta, CPLoss: q.CPLoss, Classification: q.Classification,
			BestMoveUCI: q.BestMoveUCI, BestMoveSAN: q.BestMoveSAN, BestLine: q.BestLine,
			BestMoveEval: q.BestMoveEval, Difficulty: q.Difficulty,
		}
		if phase, ok := phaseByPly[q.Ply]; ok {
			mv.GamePhase = phase
		}
		if t, ok := tacticsByPly[q.Ply]; ok {
			pattern := t.Pattern
			mv.TacticalPattern = &pattern
			reason := t.Reason
			mv.TacticalReason = &reason
		}
		moves = append(moves, mv)
	}

	record := models.AnalysisRecord{
		GameID: sc.GameID, AnalyzedAt: time.Now().UTC(), EnginePath: sc.EnginePath,
		Depth: sc.Depth, TimeLimit: sc.TimeLimit, Thresholds: sc.Thresholds,
		ECOCode: ecoCode, ECOName: ecoName,
	}

	if err := sc.Repo.WriteAnalysis(ctx, record, moves); err != nil {
		return models.StepResult{StepID: "write", Success: false, Error: err.Error()}
	}
	if err := sc.Repo.MarkGameAnalyzed(ctx, sc.GameID); err != nil {
		return models.StepResult{StepID: "write", Success: false, Error: err.Error()}
	}

	return models.StepResult{StepID: "write", Success: true, Data: map[string]any{}}
}
