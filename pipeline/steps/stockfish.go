package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"

	"blundertutor/chessutil"
	"blundertutor/enginepool"
	"blundertutor/models"
	"blundertutor/pipeline"
)

// StockfishStep is the performance-critical step: it evaluates every
// position in a game's mainline in one linear pass. It has no
// dependencies and owns the engine it uses only when the StepContext
// did not already carry a borrowed one.
type StockfishStep struct {
	// Spawn constructs a standalone engine when the context carries no
	// borrowed one, e.g. for ad-hoc single-game analysis outside a pool.
	Spawn func(ctx context.Context, enginePath string) (enginepool.Engine, error)
}

func (s *StockfishStep) StepID() string      { return "stockfish" }
func (s *StockfishStep) DependsOn() []string { return nil }

// positionInfo is what a single engine.analyse call yields: the
// collapsed score plus the principal variation, kept together through
// the linear pass so move i can derive its best_move fields from
// info_before without a second search.
type positionInfo struct {
	score chessutil.RawScore
	pv    []*chess.Move
}

func (s *StockfishStep) Execute(ctx context.Context, sc *pipeline.StepContext) models.StepResult {
	engine := sc.Engine
	if engine == nil {
		spawn := s.Spawn
		if spawn == nil {
			spawn = defaultSpawn
		}
		eng, err := spawn(ctx, sc.EnginePath)
		if err != nil {
			return models.StepResult{StepID: s.StepID(), Success: false, Error: err.Error()}
		}
		engine = eng
		defer engine.Close()
	}

	positions := sc.ParsedGame.Positions()
	moves := sc.ParsedGame.Moves()
	if len(positions) < len(moves)+1 {
		return models.StepResult{StepID: s.StepID(), Success: false, Error: "stockfish: fewer positions than moves+1"}
	}

	goCmd := uci.CmdGo{Depth: sc.Depth}
	if sc.TimeLimit != nil {
		goCmd = uci.CmdGo{MoveTime: time.Duration(*sc.TimeLimit * float64(time.Second))}
	}

	finalCheckmate := sc.ParsedGame.Outcome() != chess.NoOutcome && sc.ParsedGame.Method() == chess.Checkmate
	lastIdx := len(positions) - 1

	infos := make([]positionInfo, len(positions))
	for i, pos := range positions {
		if i == lastIdx && finalCheckmate {
			// the side to move at the final position is the mated side:
			// its score is a losing mate, always negative from its own
			// perspective.
			infos[i] = positionInfo{score: chessutil.RawScore{IsMate: true, Mate: -1, Side: pos.Turn()}}
			continue
		}

		if err := engine.Run(uci.CmdPosition{Position: pos}, goCmd); err != nil {
			return models.StepResult{StepID: s.StepID(), Success: false, Error: fmt.Sprintf("stockfish: analyse position %d: %v", i, err)}
		}
		results := engine.SearchResults()
		infos[i] = positionInfo{
			score: chessutil.RawScore{
				CP:     results.Info.Score.CP,
				Mate:   results.Info.Score.Mate,
				IsMate: results.Info.Score.Mate != 0,
				Side:   pos.Turn(),
			},
			pv: results.Info.PV,
		}
	}

	evals := make([]Eval, 0, len(moves))
	enc := chess.AlgebraicNotation{}
	for i, move := range moves {
		before := positions[i]
		mover := before.Turn()
		moveNumber := (i / 2) + 1
		ply := (moveNumber-1)*2 + plyOffset(mover)

		infoBefore := infos[i]
		evalBefore := chessutil.ScoreToCP(infoBefore.score, mover)

		var evalAfter int
		if i+1 == lastIdx && finalCheckmate {
			evalAfter = models.MateScore
		} else {
			evalAfter = chessutil.ScoreToCP(infos[i+1].score, mover)
		}

		san := func() (s string) {
			defer func() {
				if recover() != nil {
					s = move.String()
				}
			}()
			return enc.Encode(before, move)
		}()

		bestMoveUCI, bestMoveSAN, bestLine := bestLineFromPV(before, infoBefore.pv)

		player := 0
		if mover == chess.Black {
			player = 1
		}

		evals = append(evals, Eval{
			Ply: ply, MoveNumber: moveNumber, Player: player,
			UCI: move.String(), SAN: san,
			EvalBefore: evalBefore, EvalAfter: evalAfter,
			BestMoveUCI: bestMoveUCI, BestMoveSAN: bestMoveSAN, BestLine: bestLine,
			BestMoveEval: evalBefore,
		})
	}

	return models.StepResult{
		StepID:  s.StepID(),
		Success: true,
		Data:    map[string]any{KeyEvaluations: evals},
	}
}

func plyOffset(mover chess.Color) int {
	if mover == chess.White {
		return 1
	}
	return 2
}

// bestLineFromPV renders up to the first 5 plies of pv as SAN against a
// scratch copy of pos, per spec.md's "best_line" field.
func bestLineFromPV(pos *chess.Position, pv []*chess.Move) (uciStr, sanStr, line string) {
	if len(pv) == 0 {
		return "", "", ""
	}
	enc := chess.AlgebraicNotation{}
	cur := pos
	var sanParts []string
	for i, mv := range pv {
		if i >= 5 {
			break
		}
		s := func() (out string) {
			defer func() {
				if recover() != nil {
					out = mv.String()
				}
			}()
			return enc.Encode(cur, mv)
		}()
		sanParts = append(sanParts, s)
		cur = cur.Update(mv)
	}
	uciStr = pv[0].String()
	if len(sanParts) > 0 {
		sanStr = sanParts[0]
	}
	line = joinSAN(sanParts)
	return
}

func joinSAN(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

func defaultSpawn(ctx context.Context, enginePath string) (enginepool.Engine, error) {
	eng, err := uci.New(enginePath)
	if err != nil {
		return nil, fmt.Errorf("stockfish: spawn %q: %w", enginePath, err)
	}
	if err := eng.Run(uci.CmdUCI, uci.CmdIsReady, uci.CmdUCINewGame); err != nil {
		eng.Close()
		return nil, fmt.Errorf("stockfish: initialize %q: %w", enginePath, err)
	}
	return eng, nil
}
