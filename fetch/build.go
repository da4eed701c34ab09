package fetch

import (
	"fmt"
	"time"

	"blundertutor/models"
)

// buildGame turns one game's raw PGN text plus its source/username into
// a models.Game: normalizes the PGN, derives the content-hash id from
// the normalized bytes, and reads the handful of PGN tag pairs spec.md
// names as the minimum a Game record must carry.
func buildGame(source models.Source, username, rawPGN string) *models.Game {
	normalized := NormalizePGN(rawPGN)
	t := tags(rawPGN)

	return &models.Game{
		ID:          ContentHash(normalized),
		Source:      source,
		Username:    username,
		White:       t["White"],
		Black:       t["Black"],
		Result:      t["Result"],
		EndTimeUTC:  endTimeUTC(t),
		TimeControl: t["TimeControl"],
		PGN:         normalized,
	}
}

// endTimeUTC prefers UTCDate/UTCTime (lichess's convention), then
// EndDate/EndTime (chess.com's convention for completed games), and
// falls back to the zero time when neither pair parses — a malformed
// or missing timestamp must not fail the whole import, since end time
// is informational, not part of the content-hash identity.
func endTimeUTC(t map[string]string) time.Time {
	if ts, ok := parseDateTime(t["UTCDate"], t["UTCTime"]); ok {
		return ts
	}
	if ts, ok := parseDateTime(t["EndDate"], t["EndTime"]); ok {
		return ts
	}
	return time.Time{}
}

func parseDateTime(date, clock string) (time.Time, bool) {
	if date == "" || date == "????.??.??" {
		return time.Time{}, false
	}
	if clock == "" {
		clock = "00:00:00"
	}
	ts, err := time.Parse("2006.01.02 15:04:05", fmt.Sprintf("%s %s", date, clock))
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}
