package chessutil

import (
	"fmt"
	"sort"

	"github.com/notnil/chess"

	"blundertutor/models"
)

// Motif is one detected tactical idea: a pattern, the material it swings
// (in centipawns-ish piece-value units), and a human reason string.
type Motif struct {
	Pattern      models.TacticalPattern
	MaterialGain int
	Reason       string
}

// BlunderTactics is the outcome of classifying a single blunder ply: what
// the best move would have exploited, what the position now allows the
// opponent to exploit, and the combined reason text recorded on the move.
type BlunderTactics struct {
	MissedTactic *Motif
	AllowedTactic *Motif
	Reason       string
}

// PrimaryPattern picks the pattern recorded for a blunder ply: the missed
// tactic wins when it swings material, otherwise the allowed tactic when
// it swings material, otherwise whichever of the two is present, otherwise
// PatternNone.
func (b BlunderTactics) PrimaryPattern() models.TacticalPattern {
	switch {
	case b.MissedTactic != nil && b.MissedTactic.MaterialGain > 0:
		return b.MissedTactic.Pattern
	case b.AllowedTactic != nil && b.AllowedTactic.MaterialGain > 0:
		return b.AllowedTactic.Pattern
	case b.MissedTactic != nil:
		return b.MissedTactic.Pattern
	case b.AllowedTactic != nil:
		return b.AllowedTactic.Pattern
	default:
		return models.PatternNone
	}
}

func pieceValue(pt chess.PieceType) int {
	if v, ok := PieceValue[pt]; ok {
		return v
	}
	return 0
}

// detectFork looks at the squares the just-moved piece attacks from its
// destination and reports a fork when it attacks two or more enemy pieces
// each worth at least as much as the attacker (kings always count).
func detectFork(after *chess.Position, move *chess.Move) *Motif {
	board := after.Board()
	to := move.S2()
	piece := board.Piece(to)
	if piece.Type() == chess.NoPieceType {
		return nil
	}
	attackerValue := pieceValue(piece.Type())
	enemy := Opposite(piece.Color())

	var targetValues []int
	hasKing := false
	for _, sq := range pieceAttacks(board, to, piece) {
		target := board.Piece(sq)
		if target.Type() == chess.NoPieceType || target.Color() != enemy {
			continue
		}
		if target.Type() == chess.King {
			hasKing = true
			targetValues = append(targetValues, pieceValue(chess.King))
			continue
		}
		v := pieceValue(target.Type())
		if v >= attackerValue {
			targetValues = append(targetValues, v)
		}
	}
	if len(targetValues) < 2 {
		return nil
	}
	sort.Sort(sort.Reverse(sort.IntSlice(targetValues)))
	gain := targetValues[1]

	name := "Fork"
	switch {
	case hasKing && piece.Type() == chess.Queen && len(targetValues) >= 2:
		name = "Royal Fork"
	case hasKing && len(targetValues) == 2:
		name = "Fork with Check"
	}
	return &Motif{Pattern: models.PatternFork, MaterialGain: gain, Reason: fmt.Sprintf("%s: %s attacks %d pieces", name, move.String(), len(targetValues))}
}

// detectPin reports every piece of `color` pinned against a more valuable
// piece behind it (absolute pins against the king, and relative pins
// against any more valuable piece of the same color).
func detectPin(before *chess.Position, color chess.Color) []Motif {
	board := before.Board()
	enemy := Opposite(color)
	kingSq, hasKing := findKing(board, color)

	var out []Motif
	seen := map[chess.Square]bool{}

	for sq, piece := range board.SquareMap() {
		if piece.Color() != enemy {
			continue
		}
		dirs := slidingDirsFor(piece.Type())
		if dirs == nil {
			continue
		}
		f0, r0 := squareFileRank(sq)
		for _, d := range dirs {
			var blocker chess.Square
			haveBlocker := false
			cf, cr := f0, r0
			for {
				cf += d[0]
				cr += d[1]
				cur, ok := squareAt(cf, cr)
				if !ok {
					break
				}
				occ, present := board.SquareMap()[cur]
				if !present {
					continue
				}
				if !haveBlocker {
					if occ.Color() != color {
						break
					}
					blocker = cur
					haveBlocker = true
					continue
				}
				// second occupied square along the ray: is it a
				// more valuable piece of the pinned color (or the
				// king)?
				if occ.Color() != color {
					break
				}
				behindIsKing := hasKing && cur == kingSq
				if behindIsKing || pieceValue(occ.Type()) > pieceValue(board.Piece(blocker).Type()) {
					if !seen[blocker] {
						seen[blocker] = true
						kind := "Relative pin"
						if behindIsKing {
							kind = "Absolute pin"
						}
						out = append(out, Motif{
							Pattern:      models.PatternPin,
							MaterialGain: pieceValue(board.Piece(blocker).Type()),
							Reason:       fmt.Sprintf("%s: %v pinned by %v", kind, blocker, sq),
						})
					}
				}
				break
			}
		}
	}
	return out
}

// detectSkewer reports a skewer when the just-moved sliding piece attacks,
// along a ray, a more valuable enemy piece with a less valuable enemy
// piece directly behind it.
func detectSkewer(after *chess.Position, move *chess.Move) *Motif {
	board := after.Board()
	to := move.S2()
	piece := board.Piece(to)
	dirs := slidingDirsFor(piece.Type())
	if dirs == nil {
		return nil
	}
	enemy := Opposite(piece.Color())
	f0, r0 := squareFileRank(to)

	for _, d := range dirs {
		var front chess.Square
		haveFront := false
		cf, cr := f0, r0
		for {
			cf += d[0]
			cr += d[1]
			cur, ok := squareAt(cf, cr)
			if !ok {
				break
			}
			occ, present := board.SquareMap()[cur]
			if !present {
				continue
			}
			if !haveFront {
				if occ.Color() != enemy {
					break
				}
				front = cur
				haveFront = true
				continue
			}
			if occ.Color() != enemy {
				break
			}
			frontPiece := board.Piece(front)
			frontValue := pieceValue(frontPiece.Type())
			behindValue := pieceValue(occ.Type())
			isSkewerable := frontPiece.Type() == chess.King || frontPiece.Type() == chess.Queen || frontPiece.Type() == chess.Rook
			if isSkewerable && frontValue > behindValue {
				return &Motif{
					Pattern:      models.PatternSkewer,
					MaterialGain: behindValue,
					Reason:       fmt.Sprintf("Skewer: %s skewers %v through to %v", move.String(), front, cur),
				}
			}
			break
		}
	}
	return nil
}

// detectDiscoveredAttack reports a discovered attack or discovered check
// when moving the piece off `from` exposes one of the mover's own sliding
// pieces to a target it did not attack before the move.
func detectDiscoveredAttack(before, after *chess.Position, move *chess.Move) *Motif {
	from := move.S1()
	mover := before.Board().Piece(from).Color()
	beforeBoard := before.Board()
	afterBoard := after.Board()

	for sq, piece := range afterBoard.SquareMap() {
		if piece.Color() != mover || sq == move.S2() {
			continue
		}
		if slidingDirsFor(piece.Type()) == nil {
			continue
		}
		squares, ok := rayBetween(sq, from)
		if !ok {
			continue
		}
		blocked := false
		for _, mid := range squares {
			if _, occ := beforeBoard.SquareMap()[mid]; occ {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}
		before := attackSet(beforeBoard, sq, piece)
		afterAttacks := attackSet(afterBoard, sq, piece)
		for target := range afterAttacks {
			if before[target] {
				continue
			}
			tp := afterBoard.Piece(target)
			if tp.Type() == chess.NoPieceType || tp.Color() == mover {
				continue
			}
			if tp.Type() == chess.King {
				return &Motif{Pattern: models.PatternDiscoveredCheck, MaterialGain: pieceValue(chess.King), Reason: fmt.Sprintf("Discovered check from %v", sq)}
			}
			if pieceValue(tp.Type()) >= 300 {
				return &Motif{Pattern: models.PatternDiscoveredAttack, MaterialGain: pieceValue(tp.Type()), Reason: fmt.Sprintf("Discovered attack from %v on %v", sq, target)}
			}
		}
	}
	return nil
}

func attackSet(board *chess.Board, from chess.Square, piece chess.Piece) map[chess.Square]bool {
	set := make(map[chess.Square]bool)
	for _, sq := range pieceAttacks(board, from, piece) {
		set[sq] = true
	}
	return set
}

// detectDoubleCheck reports a fixed-value motif when the move delivers
// check from two pieces simultaneously.
func detectDoubleCheck(after *chess.Position, move *chess.Move) *Motif {
	if !move.HasTag(chess.Check) {
		return nil
	}
	board := after.Board()
	mover := board.Piece(move.S2()).Color()
	kingSq, ok := findKing(board, Opposite(mover))
	if !ok {
		return nil
	}
	checkers := attackersOf(board, kingSq, mover)
	if len(checkers) >= 2 {
		return &Motif{Pattern: models.PatternDoubleCheck, MaterialGain: 500, Reason: "Double check"}
	}
	return nil
}

// detectBackRankThreat is a simplified heuristic: the mover is a rook or
// queen, lands on the enemy's back rank, delivers check, and the enemy
// king has no escape square (ignoring interposition/capture-of-checker,
// matching the reference implementation's scope).
func detectBackRankThreat(before, after *chess.Position, move *chess.Move) *Motif {
	beforeBoard := before.Board()
	piece := beforeBoard.Piece(move.S1())
	if piece.Type() != chess.Rook && piece.Type() != chess.Queen {
		return nil
	}
	enemy := Opposite(piece.Color())
	backRank := 0
	if enemy == chess.Black {
		backRank = 7
	}
	kingSq, ok := findKing(beforeBoard, enemy)
	if !ok {
		return nil
	}
	_, kr := squareFileRank(kingSq)
	if kr != backRank {
		return nil
	}
	_, tr := squareFileRank(move.S2())
	if tr != backRank {
		return nil
	}
	if !move.HasTag(chess.Check) {
		return nil
	}

	afterBoard := after.Board()
	kf, _ := squareFileRank(kingSq)
	mover := piece.Color()
	for df := -1; df <= 1; df++ {
		for dr := -1; dr <= 1; dr++ {
			if df == 0 && dr == 0 {
				continue
			}
			sq, okSq := squareAt(kf+df, backRank+dr)
			if !okSq {
				continue
			}
			occ, occupied := afterBoard.SquareMap()[sq]
			if occupied && occ.Color() == enemy {
				continue
			}
			if len(attackersOf(afterBoard, sq, mover)) == 0 {
				return nil
			}
		}
	}
	return &Motif{Pattern: models.PatternBackRankThreat, MaterialGain: pieceValue(chess.King), Reason: fmt.Sprintf("Back-rank mate threat from %s", move.String())}
}

// detectHangingPiece reports every non-king piece of `color` that is
// attacked by the opponent and defended by nobody of `color`.
func detectHangingPiece(pos *chess.Position, color chess.Color) []Motif {
	board := pos.Board()
	enemy := Opposite(color)
	var out []Motif
	for sq, piece := range board.SquareMap() {
		if piece.Color() != color || piece.Type() == chess.King {
			continue
		}
		if len(attackersOf(board, sq, enemy)) == 0 {
			continue
		}
		if len(attackersOf(board, sq, color)) > 0 {
			continue
		}
		out = append(out, Motif{
			Pattern:      models.PatternHangingPiece,
			MaterialGain: pieceValue(piece.Type()),
			Reason:       fmt.Sprintf("Hanging %v on %v", piece.Type(), sq),
		})
	}
	return out
}

// AnalyzeMoveTactics runs the mover-side detectors (fork, skewer,
// discovered attack/check, double check, back-rank threat) for a single
// candidate move played from `before`, returning whichever swings the most
// material.
func AnalyzeMoveTactics(before *chess.Position, move *chess.Move) *Motif {
	after := before.Update(move)
	candidates := []*Motif{
		detectFork(after, move),
		detectSkewer(after, move),
		detectDiscoveredAttack(before, after, move),
		detectDoubleCheck(after, move),
		detectBackRankThreat(before, after, move),
	}
	var best *Motif
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if best == nil || c.MaterialGain > best.MaterialGain {
			best = c
		}
	}
	return best
}

// AnalyzePositionWeaknesses reports hanging pieces and pins against
// `color` in the given position — used to find what a blunder left behind
// rather than what a specific move does.
func AnalyzePositionWeaknesses(pos *chess.Position, color chess.Color) []Motif {
	out := append([]Motif{}, detectHangingPiece(pos, color)...)
	out = append(out, detectPin(pos, color)...)
	return out
}

// ClassifyBlunderTactics ports classify_blunder_tactics: given the position
// before a blunder, the blunder move actually played, and the best move
// the engine preferred, it identifies what the best move would have
// exploited (MissedTactic) and — absent an explicit opponent reply, which
// the pipeline never supplies — the worst weakness the blunder itself left
// behind (AllowedTactic), falling back to a generic reason when neither
// detector finds anything concrete.
func ClassifyBlunderTactics(before *chess.Position, blunderMove, bestMove *chess.Move) BlunderTactics {
	var result BlunderTactics

	if bestMove != nil {
		result.MissedTactic = AnalyzeMoveTactics(before, bestMove)
	}

	afterBlunder := before.Update(blunderMove)
	blunderingSide := before.Turn()
	weaknesses := AnalyzePositionWeaknesses(afterBlunder, blunderingSide)
	if len(weaknesses) > 0 {
		worst := weaknesses[0]
		for _, w := range weaknesses[1:] {
			if w.MaterialGain > worst.MaterialGain {
				worst = w
			}
		}
		result.AllowedTactic = &worst
	}

	var reasons []string
	if result.MissedTactic != nil {
		reasons = append(reasons, result.MissedTactic.Reason)
	}
	if result.AllowedTactic != nil {
		reasons = append(reasons, result.AllowedTactic.Reason)
	}
	if len(reasons) == 0 {
		result.Reason = "Positional error or deep tactical oversight"
	} else {
		joined := reasons[0]
		for _, r := range reasons[1:] {
			joined += "; " + r
		}
		result.Reason = joined
	}
	return result
}
