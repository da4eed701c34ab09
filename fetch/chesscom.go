package fetch

import (
	"context"
	"encoding/json"
	"fmt"

	"blundertutor/models"
)

type chessComArchiveList struct {
	Archives []string `json:"archives"`
}

type chessComGame struct {
	PGN string `json:"pgn"`
}

type chessComGamesPage struct {
	Games []chessComGame `json:"games"`
}

// ListChessComArchives returns the monthly archive URLs chess.com
// publishes for a user, oldest first, as returned by the account's
// archive index.
func (c *Client) ListChessComArchives(ctx context.Context, username string) ([]string, error) {
	endpoint := fmt.Sprintf("https://api.chess.com/pub/player/%s/games/archives", username)
	body, _, err := c.fetchRaw(ctx, endpoint, "application/json")
	if err != nil {
		return nil, fmt.Errorf("fetch: chess.com archive list for %q: %w", username, err)
	}
	var list chessComArchiveList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("fetch: decode chess.com archive list for %q: %w", username, err)
	}
	return list.Archives, nil
}

// FetchChessComArchive pulls one monthly archive (a URL returned by
// ListChessComArchives) and turns every game in it into a Game record.
func (c *Client) FetchChessComArchive(ctx context.Context, username, archiveURL string) ([]*models.Game, error) {
	body, _, err := c.fetchRaw(ctx, archiveURL, "application/json")
	if err != nil {
		return nil, fmt.Errorf("fetch: chess.com archive %q: %w", archiveURL, err)
	}
	var page chessComGamesPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("fetch: decode chess.com archive %q: %w", archiveURL, err)
	}

	out := make([]*models.Game, 0, len(page.Games))
	for _, g := range page.Games {
		if g.PGN == "" {
			continue
		}
		out = append(out, buildGame(models.SourceChessCom, username, g.PGN))
	}
	return out, nil
}

// FetchAllChessComGames lists every monthly archive for username and
// fetches each in turn, returning every game across the account's full
// history. Archives are fetched sequentially through the same
// rate-limited Client other fetches use.
func (c *Client) FetchAllChessComGames(ctx context.Context, username string) ([]*models.Game, error) {
	archives, err := c.ListChessComArchives(ctx, username)
	if err != nil {
		return nil, err
	}

	var all []*models.Game
	for _, archiveURL := range archives {
		games, err := c.FetchChessComArchive(ctx, username, archiveURL)
		if err != nil {
			return all, err
		}
		all = append(all, games...)
	}
	return all, nil
}
