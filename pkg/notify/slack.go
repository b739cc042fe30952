// Package notify sends best-effort alerts to a Slack incoming webhook.
// Delivery failures are logged, never propagated; alerting must not
// break the scan pipeline.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"trendwatch/pkg/domain"
)

// Slack posts alerts to an incoming webhook. A nil *Slack or an empty
// webhook URL disables all sends.
type Slack struct {
	client     *http.Client
	webhookURL string
}

// NewSlack creates a Slack notifier, nil-safe to call methods on
func NewSlack(webhookURL string, timeout time.Duration) *Slack {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Slack{
		client:     &http.Client{Timeout: timeout},
		webhookURL: webhookURL,
	}
}

// block is one element of a Slack block-kit message
type block struct {
	Type   string      `json:"type"`
	Text   *blockText  `json:"text,omitempty"`
	Fields []blockText `json:"fields,omitempty"`
}

type blockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TrendAlert announces a high-potential trend with its analysis
func (s *Slack) TrendAlert(ctx context.Context, trend *domain.Trend, analysis *domain.Analysis) {
	if s == nil || s.webhookURL == "" {
		return
	}

	potentialEmoji := map[domain.MarketPotential]string{
		domain.PotentialHigh:   "🔥",
		domain.PotentialMedium: "⚡",
		domain.PotentialLow:    "💡",
		domain.PotentialNone:   "❌",
	}[analysis.MarketPotential]

	sourceEmoji := map[domain.Source]string{
		domain.SourceForum:     "🔴",
		domain.SourceMicroblog: "𝕏",
		domain.SourceWeb:       "🌐",
	}[trend.Source]

	blocks := []block{
		{
			Type: "header",
			Text: &blockText{Type: "plain_text", Text: potentialEmoji + " New Market Opportunity Detected"},
		},
		{
			Type: "section",
			Text: &blockText{Type: "mrkdwn", Text: fmt.Sprintf("*%s*\n\n%s", trend.Title, analysis.Summary)},
		},
		{
			Type: "section",
			Fields: []blockText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Source:*\n%s %s", sourceEmoji, strings.ToUpper(string(trend.Source)))},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Market Potential:*\n%s %s", potentialEmoji, strings.ToUpper(string(analysis.MarketPotential)))},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Confidence:*\n%.0f%%", analysis.ConfidenceScore*100)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Engagement:*\n%.0f", trend.EngagementScore)},
			},
		},
	}

	if len(analysis.SuggestedMarkets) > 0 {
		blocks = append(blocks, block{
			Type: "section",
			Text: &blockText{Type: "mrkdwn", Text: "*Suggested Markets:*"},
		})
		for i, market := range analysis.SuggestedMarkets {
			text := fmt.Sprintf("%d. *%s*\n   • Type: %s\n   • Resolution: %s\n   • Est. Liquidity: %s",
				i+1, market.Question, market.MarketType, market.ResolutionCriteria, market.EstimatedLiquidity)
			blocks = append(blocks, block{Type: "section", Text: &blockText{Type: "mrkdwn", Text: text}})
		}
	}

	if trend.URL != "" {
		blocks = append(blocks, block{
			Type: "section",
			Text: &blockText{Type: "mrkdwn", Text: fmt.Sprintf("<%s|View Original Source>", trend.URL)},
		})
	}

	payload := map[string]interface{}{
		"blocks": blocks,
		"text":   fmt.Sprintf("%s New %s potential market: %s", potentialEmoji, analysis.MarketPotential, trend.Title),
	}
	s.post(ctx, payload)
}

// System sends a plain system notification
func (s *Slack) System(ctx context.Context, message string) {
	if s == nil || s.webhookURL == "" {
		return
	}
	s.post(ctx, map[string]interface{}{"text": "🤖 *System Notification*\n" + message})
}

// post delivers a payload to the webhook, logging failures
func (s *Slack) post(ctx context.Context, payload map[string]interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		lgr.Printf("[WARN] failed to marshal slack payload: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		lgr.Printf("[WARN] failed to create slack request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		lgr.Printf("[WARN] slack delivery failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		lgr.Printf("[WARN] slack webhook returned %s", resp.Status)
	}
}
