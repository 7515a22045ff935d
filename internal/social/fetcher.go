package social

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/shiptrack/internal/model"
)

// Fetcher returns a handle's recent posts and swallows every failure.
// An empty result means "nothing to evaluate", never "error".
type Fetcher struct {
	client *Client
	limit  int
	logger *slog.Logger
}

func NewFetcher(client *Client, limit int, logger *slog.Logger) *Fetcher {
	if limit <= 0 {
		limit = 10
	}
	return &Fetcher{client: client, limit: limit, logger: logger}
}

// Fetch returns up to the configured number of the handle's recent
// original posts, newest first. A leading "@" is ignored.
func (f *Fetcher) Fetch(ctx context.Context, handle string) []model.Post {
	handle = NormalizeHandle(handle)
	if handle == "" {
		return []model.Post{}
	}

	id, err := f.client.LookupUserID(ctx, handle)
	if err != nil {
		f.logger.Warn("social: user lookup failed", "handle", handle, "error", err)
		return []model.Post{}
	}

	posts, err := f.client.UserPosts(ctx, id, handle, f.limit)
	if err != nil {
		f.logger.Warn("social: fetching posts failed", "handle", handle, "error", err)
		return []model.Post{}
	}
	return posts
}

// NormalizeHandle trims whitespace and any leading "@".
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}
