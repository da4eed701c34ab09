package chessutil

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/notnil/chess"
)

// ECOEntry is one opening-book row: an ECO code, a human name, and the SAN
// move prefix that identifies it.
type ECOEntry struct {
	Code  string
	Name  string
	Moves []string
}

// ECODatabase is a fixed opening taxonomy loaded from a TSV fixture with
// columns eco, name, pgn. Entries are kept sorted by descending move-prefix
// length so the longest (most specific) match wins.
type ECODatabase struct {
	entries []ECOEntry
}

// LoadECODatabase parses a tab-separated `eco\tname\tpgn` fixture. The pgn
// column carries move-number tokens ("1.", "12...") interleaved with SAN
// moves; those tokens are stripped to recover a plain SAN sequence.
func LoadECODatabase(r io.Reader) (*ECODatabase, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var entries []ECOEntry
	first := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		if first {
			first = false
			if strings.HasPrefix(strings.ToLower(line), "eco\t") {
				continue
			}
		}
		cols := strings.SplitN(line, "\t", 3)
		if len(cols) < 3 {
			continue
		}
		entries = append(entries, ECOEntry{
			Code:  cols[0],
			Name:  cols[1],
			Moves: parsePGNMoves(cols[2]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].Moves) > len(entries[j].Moves)
	})
	return &ECODatabase{entries: entries}, nil
}

// parsePGNMoves strips move-number tokens ("1.", "2...", "10.") from a
// space-separated PGN move list, returning the bare SAN tokens.
func parsePGNMoves(pgn string) []string {
	fields := strings.Fields(pgn)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if isMoveNumberToken(f) {
			// "1." or "12..." alone carries no move; "1.e4" carries one.
			f = strings.TrimLeft(f[strings.Index(f, "."):], ".")
		}
		trimmed := strings.TrimRight(f, ".")
		if trimmed == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isMoveNumberToken(f string) bool {
	idx := strings.Index(f, ".")
	if idx <= 0 {
		return false
	}
	_, err := strconv.Atoi(f[:idx])
	return err == nil
}

// MainlineSAN replays a game's mainline from the start, returning the SAN
// string for every ply in order. Replay stops early (returning whatever
// prefix was successfully encoded) if a position fails to produce a legal
// encoding, tolerating malformed games rather than panicking.
func MainlineSAN(game *chess.Game) []string {
	moves := game.Moves()
	positions := game.Positions()
	var out []string
	enc := chess.AlgebraicNotation{}
	for i, move := range moves {
		if i >= len(positions) {
			break
		}
		san := func() (s string) {
			defer func() {
				if recover() != nil {
					s = ""
				}
			}()
			return enc.Encode(positions[i], move)
		}()
		if san == "" {
			break
		}
		out = append(out, san)
	}
	return out
}

// Classify finds the longest ECO entry whose move prefix matches the given
// SAN sequence exactly, returning nil, nil if nothing matches (or the
// sequence is empty).
func (db *ECODatabase) Classify(san []string) (code *string, name *string) {
	for _, entry := range db.entries {
		if len(entry.Moves) == 0 || len(entry.Moves) > len(san) {
			continue
		}
		if sameMoves(entry.Moves, san[:len(entry.Moves)]) {
			c, n := entry.Code, entry.Name
			return &c, &n
		}
	}
	return nil, nil
}

func sameMoves(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
