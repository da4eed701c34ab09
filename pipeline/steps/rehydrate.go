package steps

import "blundertutor/models"

// qualityFromMoveRecords rebuilds the move_quality step's output shape
// from already-persisted MoveRecords. Downstream steps (tactics, write)
// call this when move_quality's declared dependency came back as an
// empty synthesized result — which happens whenever move_quality was
// already marked completed in an earlier run and this run only needs to
// redo a later step (a backfill preset, or resuming after a crash that
// happened between move_quality's completion and write's). Recomputing
// move_quality from scratch would mean re-querying the engine; reading
// back what write already persisted does not.
func qualityFromMoveRecords(moves []models.MoveRecord) []QualityResult {
	out := make([]QualityResult, 0, len(moves))
	for _, m := range moves {
		out = append(out, QualityResult{
			Eval: Eval{
				Ply: m.Ply, MoveNumber: m.MoveNumber, Player: m.Player,
				UCI: m.UCI, SAN: m.SAN, EvalBefore: m.EvalBefore, EvalAfter: m.EvalAfter,
				BestMoveUCI: m.BestMoveUCI, BestMoveSAN: m.BestMoveSAN,
				BestLine: m.BestLine, BestMoveEval: m.BestMoveEval,
			},
			Delta: m.Delta, CPLoss: m.CPLoss,
			Classification: m.Classification, Difficulty: m.Difficulty,
		})
	}
	return out
}

// phasesFromMoveRecords rebuilds the phase step's output shape from
// already-persisted MoveRecords, for the same reason as
// qualityFromMoveRecords.
func phasesFromMoveRecords(moves []models.MoveRecord) []PhaseResult {
	out := make([]PhaseResult, 0, len(moves))
	for _, m := range moves {
		out = append(out, PhaseResult{Ply: m.Ply, MoveNumber: m.MoveNumber, Phase: m.GamePhase})
	}
	return out
}

// tacticsFromMoveRecords rebuilds a ply-keyed tactics map from
// already-persisted MoveRecords, for the same reason as
// qualityFromMoveRecords.
func tacticsFromMoveRecords(moves []models.MoveRecord) map[int]TacticsResult {
	out := map[int]TacticsResult{}
	for _, mv := range moves {
		if mv.TacticalPattern == nil {
			continue
		}
		reason := ""
		if mv.TacticalReason != nil {
			reason = *mv.TacticalReason
		}
		out[mv.Ply] = TacticsResult{Ply: mv.Ply, Pattern: *mv.TacticalPattern, Reason: reason}
	}
	return out
}
