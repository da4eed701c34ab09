package fetch

import (
	"context"
	"fmt"
	"net/url"

	"blundertutor/models"
)

// LichessOptions narrows a lichess bulk export request.
type LichessOptions struct {
	// Since and Until bound the export by end time, in epoch
	// milliseconds; zero means unbounded on that side.
	Since, Until int64
	// Max limits the number of games lichess returns; zero means no
	// limit (lichess streams the whole history).
	Max int
}

// FetchLichessGames pulls a user's game archive from lichess's bulk PGN
// export endpoint and turns every game in the archive into a Game
// record ready for the repository.
func (c *Client) FetchLichessGames(ctx context.Context, username string, opts LichessOptions) ([]*models.Game, error) {
	endpoint := lichessExportURL(username, opts)

	body, _, err := c.fetchRaw(ctx, endpoint, "application/x-chess-pgn")
	if err != nil {
		return nil, fmt.Errorf("fetch: lichess export for %q: %w", username, err)
	}

	games := SplitGames(string(body))
	out := make([]*models.Game, 0, len(games))
	for _, pgn := range games {
		out = append(out, buildGame(models.SourceLichess, username, pgn))
	}
	return out, nil
}

func lichessExportURL(username string, opts LichessOptions) string {
	q := url.Values{}
	q.Set("clocks", "false")
	q.Set("evals", "false")
	q.Set("opening", "false")
	if opts.Since > 0 {
		q.Set("since", fmt.Sprintf("%d", opts.Since))
	}
	if opts.Until > 0 {
		q.Set("until", fmt.Sprintf("%d", opts.Until))
	}
	if opts.Max > 0 {
		q.Set("max", fmt.Sprintf("%d", opts.Max))
	}
	u := url.URL{
		Scheme:   "https",
		Host:     "lichess.org",
		Path:     fmt.Sprintf("/api/games/user/%s", url.PathEscape(username)),
		RawQuery: q.Encode(),
	}
	return u.String()
}
