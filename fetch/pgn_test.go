package fetch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePGNConvertsCRLFAndTrimsTrailingWhitespace(t *testing.T) {
	raw := "[Event \"Test\"]\r\n[Site \"?\"]\r\n\r\n1. e4 e5 *  \r\n\r\n\r\n"
	got := NormalizePGN(raw)
	require.Equal(t, "[Event \"Test\"]\n[Site \"?\"]\n\n1. e4 e5 *", got[:len(got)-1])
	require.Equal(t, byte('\n'), got[len(got)-1])
	require.NotContains(t, got, "\r")
}

func TestContentHashIsStableForEqualNormalizedText(t *testing.T) {
	a := NormalizePGN("1. e4 *\r\n")
	b := NormalizePGN("1. e4 *\n\n\n")
	require.Equal(t, ContentHash(a), ContentHash(b))
}

func TestContentHashDiffersForDifferentGames(t *testing.T) {
	a := NormalizePGN("1. e4 *")
	b := NormalizePGN("1. d4 *")
	require.NotEqual(t, ContentHash(a), ContentHash(b))
}

func TestSplitGamesSeparatesAMultiGameArchive(t *testing.T) {
	archive := `[Event "Game 1"]
[White "a"]
[Black "b"]

1. e4 e5 *

[Event "Game 2"]
[White "c"]
[Black "d"]

1. d4 d5 *
`
	games := SplitGames(archive)
	require.Len(t, games, 2)
	require.Contains(t, games[0], `[White "a"]`)
	require.Contains(t, games[1], `[White "c"]`)
}

func TestSplitGamesOnEmptyArchiveReturnsNil(t *testing.T) {
	require.Nil(t, SplitGames(""))
}

func TestTagsParsesEscapedQuotes(t *testing.T) {
	game := `[Event "Foo \"Bar\""]
[White "x"]

1. e4 *`
	tg := tags(game)
	require.Equal(t, `Foo "Bar"`, tg["Event"])
	require.Equal(t, "x", tg["White"])
}
