package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-pkgz/lgr"

	"trendwatch/pkg/config"
	"trendwatch/pkg/domain"
)

// ForumFetcher pulls hot posts from the forum's public JSON API
type ForumFetcher struct {
	client *http.Client
	cfg    config.ForumSourceConfig
}

// NewForumFetcher creates a forum fetcher
func NewForumFetcher(cfg config.ForumSourceConfig, timeout time.Duration) *ForumFetcher {
	return &ForumFetcher{client: newHTTPClient(timeout), cfg: cfg}
}

// forumListing matches the public hot.json response shape
type forumListing struct {
	Data struct {
		Children []struct {
			Data forumPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type forumPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Ups         int     `json:"ups"`
	NumComments int     `json:"num_comments"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	CreatedUTC  float64 `json:"created_utc"`
}

// Fetch collects hot posts from the configured boards. A failing board
// is logged and skipped so one bad response never loses the whole batch.
func (f *ForumFetcher) Fetch(ctx context.Context) ([]domain.RawItem, error) {
	boards := f.cfg.Subreddits
	if max := f.cfg.MaxBoards; max > 0 && len(boards) > max {
		boards = boards[:max]
	}
	if len(boards) == 0 {
		return nil, fmt.Errorf("no boards configured")
	}

	var items []domain.RawItem
	for _, board := range boards {
		batch, err := f.FetchBoard(ctx, board)
		if err != nil {
			lgr.Printf("[WARN] failed to fetch board %s: %v", board, err)
			continue
		}
		items = append(items, batch...)
	}
	return items, nil
}

// FetchBoard collects hot posts from a single board
func (f *ForumFetcher) FetchBoard(ctx context.Context, board string) ([]domain.RawItem, error) {
	limit := f.cfg.PostsPerScan
	if limit <= 0 {
		limit = 5
	}

	url := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", f.cfg.BaseURL, board, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch board %s: %w", board, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forum api returned %s for %s", resp.Status, board)
	}

	var listing forumListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	items := make([]domain.RawItem, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post := child.Data
		items = append(items, domain.RawItem{
			ID:        post.ID,
			Title:     cleanText(post.Title),
			Content:   cleanText(post.Selftext),
			URL:       "https://reddit.com" + post.Permalink,
			Author:    post.Author,
			CreatedAt: time.Unix(int64(post.CreatedUTC), 0).UTC(),
			Metrics: domain.Metrics{
				Upvotes:     post.Ups,
				Comments:    post.NumComments,
				UpvoteRatio: post.UpvoteRatio,
			},
		})
	}
	return items, nil
}
