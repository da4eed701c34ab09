// Package fetch imports games from lichess and chess.com into Game
// records. It is glue, not core: spec.md excludes HTTP fetchers from
// the analysis engine's own contract and only specifies the Game
// record shape they must produce (see the Inputs section of § External
// Interfaces). Nothing else in this module imports it, the CLI
// included.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"blundertutor/telemetry/logging"
)

// Client performs rate-limited HTTP fetches against lichess and
// chess.com, grounded on the teacher's own colly collector setup
// (internal/crawler/crawler.go): a single collector with a domain-wide
// parallelism/delay limit and a configurable user agent, reused across
// every request this client makes.
type Client struct {
	collector *colly.Collector
	log       logging.Logger
}

// Options configures a Client's politeness policy.
type Options struct {
	UserAgent    string
	RequestDelay time.Duration
	Timeout      time.Duration
	Log          logging.Logger
}

// New builds a Client. A zero-value Options yields a conservative
// default policy (one request in flight per domain, a small delay
// between requests) matching the teacher's own Phase-1 crawler
// defaults.
func New(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = "blundertutor-fetch/1.0"
	}
	if opts.RequestDelay <= 0 {
		opts.RequestDelay = 500 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Log == nil {
		opts.Log = logging.NoOp()
	}

	c := colly.NewCollector(colly.Async(false))
	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       opts.RequestDelay,
	})
	c.SetRequestTimeout(opts.Timeout)
	c.UserAgent = opts.UserAgent

	return &Client{collector: c, log: opts.Log}
}

// ErrInterstitial is returned when a fetch got an HTML page back
// instead of the expected PGN or JSON payload — lichess and chess.com
// both do this for a missing user, a rate-limited request, or a
// maintenance page.
type ErrInterstitial struct {
	URL     string
	Message string
}

func (e *ErrInterstitial) Error() string {
	return fmt.Sprintf("fetch: %s returned an HTML page instead of the expected export format: %s", e.URL, e.Message)
}

// fetchRaw performs one GET through the shared collector and returns
// the raw response body and content type. It exists as the single
// place request headers, politeness delay, and error wrapping are
// applied, mirroring how the teacher centralizes its own collector
// callbacks in one setupCallbacks method.
func (c *Client) fetchRaw(ctx context.Context, url string, accept string) ([]byte, string, error) {
	var body []byte
	var contentType string
	var fetchErr error

	// Clone so this call's callbacks don't accumulate on the shared
	// collector across repeated fetches (one Client imports many games
	// over its lifetime); the clone still shares the parent's rate
	// limit and user agent.
	req := c.collector.Clone()
	req.OnResponse(func(r *colly.Response) {
		body = r.Body
		contentType = r.Headers.Get("Content-Type")
	})
	req.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetch: request to %s failed: %w", url, err)
	})

	header := http.Header{}
	if accept != "" {
		header.Set("Accept", accept)
	}

	if err := req.Request(http.MethodGet, url, nil, nil, header); err != nil {
		return nil, "", fmt.Errorf("fetch: request %s: %w", url, err)
	}
	if fetchErr != nil {
		return nil, "", fetchErr
	}

	if strings.Contains(contentType, "text/html") {
		msg := interstitialMessage(body)
		c.log.WarnCtx(ctx, "fetch: got an HTML interstitial instead of the expected export", "url", url, "message", msg)
		return nil, contentType, &ErrInterstitial{URL: url, Message: msg}
	}
	return body, contentType, nil
}

// interstitialMessage extracts a human-readable reason from an HTML
// error/listing page using goquery — the one place this package
// touches actual HTML parsing, since both export endpoints otherwise
// return plain PGN or JSON.
func interstitialMessage(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "unparseable response"
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return "no error detail found on page"
}
