// Package social reads recent posts from X (Twitter) API v2.
//
// Client talks to the API and returns errors. Fetcher sits on top and
// implements the tracker's contract: it never fails, it returns an empty
// slice when anything goes wrong.
package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/sakif/shiptrack/internal/metrics"
	"github.com/sakif/shiptrack/internal/model"
)

// ErrUserNotFound is returned when a handle does not resolve to an account.
var ErrUserNotFound = errors.New("social: user not found")

// Options configures Client. Zero values fall back to the defaults below.
type Options struct {
	BaseURL     string
	BearerToken string
	RPS         float64
	Burst       int
	MaxAttempts int
	BaseBackoff time.Duration
	HTTPClient  *http.Client
}

// Client is a bearer-token client for the two X endpoints we need.
type Client struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.twitter.com/2"
	}
	if opts.RPS <= 0 {
		opts.RPS = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 500 * time.Millisecond
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:     opts.BaseURL,
		bearerToken: opts.BearerToken,
		httpClient:  opts.HTTPClient,
		limiter:     rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
		maxAttempts: opts.MaxAttempts,
		baseBackoff: opts.BaseBackoff,
	}
}

// apiErrors is the "errors" array X attaches to partial or failed responses.
type apiErrors []struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

// LookupUserID resolves a handle (without @) to the account's numeric id.
// X answers 200 with an "errors" array and no data for unknown handles.
func (c *Client) LookupUserID(ctx context.Context, handle string) (string, error) {
	if handle == "" {
		return "", errors.New("social: empty handle")
	}

	u := fmt.Sprintf("%s/users/by/username/%s", c.baseURL, url.PathEscape(handle))
	var raw struct {
		Data struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"data"`
		Errors apiErrors `json:"errors"`
	}
	if err := c.getJSON(ctx, "/users/by/username", u, &raw); err != nil {
		return "", err
	}
	if raw.Data.ID == "" {
		return "", fmt.Errorf("%w: %s", ErrUserNotFound, handle)
	}
	return raw.Data.ID, nil
}

// UserPosts returns up to limit of the user's most recent original posts,
// newest first. Retweets and replies are excluded server-side.
func (c *Client) UserPosts(ctx context.Context, userID, handle string, limit int) ([]model.Post, error) {
	u := fmt.Sprintf("%s/users/%s/tweets?max_results=%d&tweet.fields=created_at&exclude=retweets,replies",
		c.baseURL, url.PathEscape(userID), clamp(limit, 5, 100))

	var raw struct {
		Data []struct {
			ID        string    `json:"id"`
			Text      string    `json:"text"`
			CreatedAt time.Time `json:"created_at"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, "/users/:id/tweets", u, &raw); err != nil {
		return nil, err
	}

	out := make([]model.Post, 0, len(raw.Data))
	for _, d := range raw.Data {
		out = append(out, model.Post{
			ID:           d.ID,
			Text:         d.Text,
			CreatedAt:    d.CreatedAt,
			AuthorHandle: handle,
		})
	}
	slices.SortStableFunc(out, func(a, b model.Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > limit && limit > 0 {
		out = out[:limit]
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("social: building request: %w", err)
	}
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	req.Header.Set("Accept", "application/json")

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("social: rate limiter: %w", err)
	}
	resp, err := c.doWithRetry(ctx, endpoint, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrUserNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("social: x api %s status %d", endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("social: decoding %s: %w", endpoint, err)
	}
	return nil
}

// doWithRetry retries 429 and 5xx responses and transport errors with
// exponential backoff, honouring Retry-After when X sends it.
func (c *Client) doWithRetry(ctx context.Context, endpoint string, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncAPIRetry(endpoint)
		}
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
			if !retryable || attempt == c.maxAttempts {
				return resp, nil
			}
			wait := retryAfter(resp.Header.Get("Retry-After"), backoff)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
			backoff *= 2
			continue
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("social: %s failed after %d attempts: %w", endpoint, c.maxAttempts, lastErr)
}

func retryAfter(header string, fallback time.Duration) time.Duration {
	if header == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
		return 0
	}
	return fallback
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
