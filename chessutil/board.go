package chessutil

import "github.com/notnil/chess"

// Color and PieceType are re-exported so callers of this package rarely
// need to import notnil/chess directly for the values chessutil hands
// back.
type Color = chess.Color
type PieceType = chess.PieceType
type Square = chess.Square

const (
	White = chess.White
	Black = chess.Black
)

// PieceValue is the standard centipawn-ish material value used by the
// tactics detectors, matching the reference implementation's table.
var PieceValue = map[chess.PieceType]int{
	chess.Pawn:   100,
	chess.Knight: 320,
	chess.Bishop: 330,
	chess.Rook:   500,
	chess.Queen:  900,
	chess.King:   20000,
}

// Opposite returns the other side.
func Opposite(c chess.Color) chess.Color {
	if c == chess.White {
		return chess.Black
	}
	return chess.White
}

// squareFileRank returns 0-based file/rank for a square (file: a=0..h=7,
// rank: 1=0..8=7).
func squareFileRank(sq chess.Square) (int, int) {
	return int(sq.File()), int(sq.Rank())
}

func squareAt(file, rank int) (chess.Square, bool) {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return 0, false
	}
	return chess.NewSquare(chess.File(file), chess.Rank(rank)), true
}

func chebyshevDistance(a, b chess.Square) int {
	af, ar := squareFileRank(a)
	bf, br := squareFileRank(b)
	df, dr := af-bf, ar-br
	if df < 0 {
		df = -df
	}
	if dr < 0 {
		dr = -dr
	}
	if df > dr {
		return df
	}
	return dr
}

var bishopDirs = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
var rookDirs = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
var queenDirs = [8][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}, {1, 0}, {-1, 0}, {0, 1}, {0, -1}}
var knightOffsets = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}

func slidingDirsFor(pt chess.PieceType) [][2]int {
	switch pt {
	case chess.Bishop:
		return bishopDirs[:]
	case chess.Rook:
		return rookDirs[:]
	case chess.Queen:
		return queenDirs[:]
	default:
		return nil
	}
}

// pieceAttacks returns the set of squares a piece sitting on `from` attacks
// on the given board, treating occupied squares (by either color) as
// blockers for sliding pieces. It does not filter by the attacker's own
// king safety; it is a geometric attack map only.
func pieceAttacks(board *chess.Board, from chess.Square, piece chess.Piece) []chess.Square {
	squares := board.SquareMap()
	var out []chess.Square
	f, r := squareFileRank(from)

	switch piece.Type() {
	case chess.Pawn:
		dir := 1
		if piece.Color() == chess.Black {
			dir = -1
		}
		for _, df := range []int{-1, 1} {
			if sq, ok := squareAt(f+df, r+dir); ok {
				out = append(out, sq)
			}
		}
	case chess.Knight:
		for _, o := range knightOffsets {
			if sq, ok := squareAt(f+o[0], r+o[1]); ok {
				out = append(out, sq)
			}
		}
	case chess.King:
		for _, o := range queenDirs {
			if sq, ok := squareAt(f+o[0], r+o[1]); ok {
				out = append(out, sq)
			}
		}
	default:
		for _, d := range slidingDirsFor(piece.Type()) {
			cf, cr := f, r
			for {
				cf += d[0]
				cr += d[1]
				sq, ok := squareAt(cf, cr)
				if !ok {
					break
				}
				out = append(out, sq)
				if _, occupied := squares[sq]; occupied {
					break
				}
			}
		}
	}
	return out
}

// attackersOf returns every square holding a piece of color `by` that
// attacks `target` on the given board.
func attackersOf(board *chess.Board, target chess.Square, by chess.Color) []chess.Square {
	var out []chess.Square
	for sq, piece := range board.SquareMap() {
		if piece.Color() != by {
			continue
		}
		for _, attacked := range pieceAttacks(board, sq, piece) {
			if attacked == target {
				out = append(out, sq)
				break
			}
		}
	}
	return out
}

// findKing returns the square of color `c`'s king, if present.
func findKing(board *chess.Board, c chess.Color) (chess.Square, bool) {
	for sq, piece := range board.SquareMap() {
		if piece.Color() == c && piece.Type() == chess.King {
			return sq, true
		}
	}
	return 0, false
}

// rayBetween walks from `from` towards `to` (which must share a rank, file,
// or diagonal) returning the squares strictly between them, in order. Ok is
// false if the two squares are not aligned.
func rayBetween(from, to chess.Square) (squares []chess.Square, ok bool) {
	ff, fr := squareFileRank(from)
	tf, tr := squareFileRank(to)
	df, dr := sign(tf-ff), sign(tr-fr)
	if df == 0 && dr == 0 {
		return nil, false
	}
	if !(df == 0 || dr == 0 || abs(tf-ff) == abs(tr-fr)) {
		return nil, false
	}
	cf, cr := ff+df, fr+dr
	for cf != tf || cr != tr {
		sq, okSq := squareAt(cf, cr)
		if !okSq {
			return nil, false
		}
		squares = append(squares, sq)
		cf += df
		cr += dr
	}
	return squares, true
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
