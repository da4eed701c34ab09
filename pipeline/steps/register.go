package steps

import (
	"blundertutor/chessutil"
	"blundertutor/pipeline"
)

// All returns every registered analysis step, ready to hand to
// pipeline.NewRegistry. ecoDB may be nil to use the embedded default
// fixture.
func All(ecoDB *chessutil.ECODatabase, computeDifficulty bool) []pipeline.Step {
	return []pipeline.Step{
		NewECOStep(ecoDB),
		&StockfishStep{},
		&MoveQualityStep{ComputeDifficulty: computeDifficulty},
		PhaseStep{},
		TacticsStep{},
		WriteStep{},
	}
}
