package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-pkgz/lgr"

	"trendwatch/pkg/config"
	"trendwatch/pkg/domain"
)

// MicroblogFetcher pulls recent posts from monitored accounts through a
// scraping-actor API: start a run, poll until it finishes, then read the
// run's dataset.
type MicroblogFetcher struct {
	client *http.Client
	cfg    config.MicroblogSourceConfig
}

// NewMicroblogFetcher creates a microblog fetcher
func NewMicroblogFetcher(cfg config.MicroblogSourceConfig, timeout time.Duration) *MicroblogFetcher {
	return &MicroblogFetcher{client: newHTTPClient(timeout), cfg: cfg}
}

// actor run and dataset response shapes
type actorRunResponse struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"data"`
}

type scrapedPost struct {
	ID           string `json:"id"`
	TweetID      string `json:"tweetId"`
	Text         string `json:"text"`
	URL          string `json:"url"`
	LikeCount    int    `json:"likeCount"`
	RetweetCount int    `json:"retweetCount"`
	CreatedAt    string `json:"createdAt"`
	Author       struct {
		UserName string `json:"userName"`
	} `json:"author"`
}

// Fetch collects recent posts from the given accounts, each account is
// one actor run. A failing account is logged and skipped.
func (f *MicroblogFetcher) Fetch(ctx context.Context, accounts []string) ([]domain.RawItem, error) {
	if f.cfg.APIToken == "" {
		return nil, fmt.Errorf("microblog api token not configured")
	}
	if len(accounts) == 0 {
		accounts = f.cfg.Accounts
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no accounts configured")
	}

	var items []domain.RawItem
	for _, account := range accounts {
		batch, err := f.FetchAccount(ctx, account)
		if err != nil {
			lgr.Printf("[WARN] failed to fetch account %s: %v", account, err)
			continue
		}
		items = append(items, batch...)
	}
	return items, nil
}

// FetchAccount runs the scraper actor for one account and parses its output
func (f *MicroblogFetcher) FetchAccount(ctx context.Context, account string) ([]domain.RawItem, error) {
	perScan := f.cfg.PerScan
	if perScan <= 0 {
		perScan = 5
	}

	run, err := f.startRun(ctx, account, perScan)
	if err != nil {
		return nil, err
	}

	if err := f.waitForRun(ctx, run.Data.ID); err != nil {
		return nil, err
	}

	posts, err := f.datasetItems(ctx, run.Data.DefaultDatasetID)
	if err != nil {
		return nil, err
	}

	items := make([]domain.RawItem, 0, len(posts))
	for _, post := range posts {
		id := post.ID
		if id == "" {
			id = post.TweetID
		}
		if id == "" {
			continue // unidentifiable post, nothing stable to dedupe on
		}

		url := post.URL
		if url == "" {
			url = fmt.Sprintf("https://x.com/%s/status/%s", account, id)
		}
		author := post.Author.UserName
		if author == "" {
			author = account
		}

		text := cleanText(post.Text)
		createdAt, err := time.Parse(time.RFC3339, post.CreatedAt)
		if err != nil {
			createdAt = time.Now().UTC()
		}

		items = append(items, domain.RawItem{
			ID:        id,
			Title:     truncate(text, 100),
			Content:   text,
			URL:       url,
			Author:    author,
			CreatedAt: createdAt,
			Metrics: domain.Metrics{
				Likes:    post.LikeCount,
				Retweets: post.RetweetCount,
			},
		})
	}
	return items, nil
}

// startRun kicks off an actor run scraping one account
func (f *MicroblogFetcher) startRun(ctx context.Context, account string, maxPosts int) (*actorRunResponse, error) {
	input := map[string]interface{}{
		"searchMode":  "user",
		"searchTerms": []string{account},
		"maxTweets":   maxPosts,
		"addUserInfo": true,
	}
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal actor input: %w", err)
	}

	url := fmt.Sprintf("%s/v2/acts/%s/runs", f.cfg.BaseURL, f.cfg.ActorID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.cfg.APIToken)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("start actor run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("actor run start returned %s", resp.Status)
	}

	var run actorRunResponse
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return nil, fmt.Errorf("decode run response: %w", err)
	}
	if run.Data.ID == "" || run.Data.DefaultDatasetID == "" {
		return nil, fmt.Errorf("actor run response missing run or dataset id")
	}
	return &run, nil
}

// waitForRun polls the run status until it succeeds, fails, or the poll
// budget is exhausted
func (f *MicroblogFetcher) waitForRun(ctx context.Context, runID string) error {
	maxPolls := f.cfg.MaxPolls
	if maxPolls <= 0 {
		maxPolls = 60
	}
	pollDelay := f.cfg.PollDelay
	if pollDelay <= 0 {
		pollDelay = time.Second
	}

	for attempt := 0; attempt < maxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollDelay):
		}

		status, err := f.runStatus(ctx, runID)
		if err != nil {
			return err
		}

		switch status {
		case "SUCCEEDED":
			return nil
		case "FAILED", "ABORTED", "TIMED-OUT":
			return fmt.Errorf("actor run %s ended with status %s", runID, status)
		}
	}
	return fmt.Errorf("actor run %s did not finish after %d polls", runID, maxPolls)
}

// runStatus fetches the current status of an actor run
func (f *MicroblogFetcher) runStatus(ctx context.Context, runID string) (string, error) {
	url := fmt.Sprintf("%s/v2/actor-runs/%s", f.cfg.BaseURL, runID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.cfg.APIToken)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get run status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("run status returned %s", resp.Status)
	}

	var run actorRunResponse
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return "", fmt.Errorf("decode status response: %w", err)
	}
	return run.Data.Status, nil
}

// datasetItems downloads the finished run's dataset
func (f *MicroblogFetcher) datasetItems(ctx context.Context, datasetID string) ([]scrapedPost, error) {
	url := fmt.Sprintf("%s/v2/datasets/%s/items?format=json", f.cfg.BaseURL, datasetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.cfg.APIToken)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dataset fetch returned %s", resp.Status)
	}

	var posts []scrapedPost
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return posts, nil
}
