// Package llm scores trends for prediction-market potential using an
// OpenAI-compatible chat completion API.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"trendwatch/pkg/config"
	"trendwatch/pkg/domain"
)

// ErrRateLimited signals the provider rejected the request for quota
// reasons; callers may retry after a delay.
var ErrRateLimited = errors.New("llm rate limited")

// Analyzer uses LLM to evaluate trends
type Analyzer struct {
	client    *openai.Client
	config    config.LLMConfig
	systemMsg string
}

// NewAnalyzer creates a new LLM analyzer
func NewAnalyzer(cfg config.LLMConfig) *Analyzer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	// use custom system prompt if provided, otherwise use default
	systemMsg := cfg.SystemPrompt
	if systemMsg == "" {
		systemMsg = defaultSystemPrompt
	}

	return &Analyzer{
		client:    openai.NewClientWithConfig(clientConfig),
		config:    cfg,
		systemMsg: systemMsg,
	}
}

// default system prompt for trend analysis
const defaultSystemPrompt = `You are an analyst for a prediction-market platform. You evaluate trending topics and decide whether a tradable market could be built around them.

For each trend, respond with a single JSON object:
- market_potential: one of "high", "medium", "low", "none". A trend has potential when it concerns a verifiable future outcome with a clear resolution date (elections, sports results, product launches, court rulings, economic releases). Opinions, evergreen discussions, and past events are "none".
- confidence_score: number from 0 to 1 expressing how confident you are in the judgment.
- summary: what the trend is about, one or two sentences. Start with the subject matter itself, never with "The trend discusses".
- reasoning: why this does or does not support a market (max 200 chars).
- suggested_markets: array of 0-3 market ideas, each with question, market_type ("binary", "multiple_choice" or "scalar"), options (for multiple_choice only), resolution_criteria, estimated_liquidity ("high", "medium" or "low").
- keywords: 2-5 lowercase keywords describing the trend.

A good market question is specific, time-bound, and publicly resolvable. "Will X win the November election?" is good; "Is X a good candidate?" is not.`

// analysisResponse is the JSON shape expected from the model
type analysisResponse struct {
	MarketPotential  string                    `json:"market_potential"`
	ConfidenceScore  float64                   `json:"confidence_score"`
	Summary          string                    `json:"summary"`
	Reasoning        string                    `json:"reasoning"`
	SuggestedMarkets []domain.MarketSuggestion `json:"suggested_markets"`
	Keywords         []string                  `json:"keywords"`
}

// Analyze evaluates a single trend and returns its analysis.
// Returns ErrRateLimited when the provider throttles the request.
func (a *Analyzer) Analyze(ctx context.Context, trend *domain.Trend) (*domain.Analysis, error) {
	prompt := a.buildPrompt(trend)

	req := openai.ChatCompletionRequest{
		Model:       a.config.Model,
		Temperature: float32(a.config.Temperature),
		MaxTokens:   a.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: a.systemMsg,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if isRateLimitError(err) {
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return nil, fmt.Errorf("llm request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from llm")
	}

	analysis, err := a.parseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	analysis.TrendID = trend.ID
	return analysis, nil
}

// buildPrompt creates the per-trend prompt for the LLM
func (a *Analyzer) buildPrompt(trend *domain.Trend) string {
	var sb strings.Builder

	sb.WriteString("Evaluate this trend:\n\n")
	sb.WriteString(fmt.Sprintf("Source: %s\n", trend.Source))
	sb.WriteString(fmt.Sprintf("Title: %s\n", trend.Title))
	if trend.Content != "" {
		// limit content to first 1000 chars
		content := trend.Content
		if len(content) > 1000 {
			content = content[:1000] + "..."
		}
		sb.WriteString(fmt.Sprintf("Content: %s\n", content))
	}
	if trend.EngagementScore > 0 {
		sb.WriteString(fmt.Sprintf("Engagement score: %.0f\n", trend.EngagementScore))
	}

	sb.WriteString("\nRespond with a single JSON object.")
	return sb.String()
}

// parseResponse extracts and validates the analysis JSON from the model output
func (a *Analyzer) parseResponse(content string) (*domain.Analysis, error) {
	// models sometimes wrap the object in prose or code fences
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || start >= end {
		return nil, fmt.Errorf("no json object found in response")
	}

	var resp analysisResponse
	if err := json.Unmarshal([]byte(content[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse json response: %w", err)
	}

	potential := domain.MarketPotential(strings.ToLower(strings.TrimSpace(resp.MarketPotential)))
	if !potential.Valid() {
		potential = domain.PotentialNone
	}

	// clamp confidence to [0,1]
	confidence := resp.ConfidenceScore
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	suggestions := resp.SuggestedMarkets
	if suggestions == nil {
		suggestions = []domain.MarketSuggestion{}
	}
	keywords := resp.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	return &domain.Analysis{
		MarketPotential:  potential,
		ConfidenceScore:  confidence,
		Summary:          resp.Summary,
		Reasoning:        resp.Reasoning,
		SuggestedMarkets: suggestions,
		Keywords:         keywords,
	}, nil
}

// GenerateMarketingIdeas produces ad-copy suggestions for promoting
// matched markets against a trend
func (a *Analyzer) GenerateMarketingIdeas(ctx context.Context, trend *domain.Trend, matches []*domain.MarketMatch) (string, error) {
	if len(matches) == 0 {
		return "", fmt.Errorf("no matches provided")
	}

	var sb strings.Builder
	sb.WriteString("A topic is trending and we have prediction markets related to it.\n")
	sb.WriteString("Write 2-3 short ad-copy variants (max 120 chars each) promoting the markets to people following the trend.\n\n")
	sb.WriteString(fmt.Sprintf("Trend: %s\n", trend.Title))
	if trend.Content != "" {
		content := trend.Content
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		sb.WriteString(fmt.Sprintf("Context: %s\n", content))
	}

	sb.WriteString("\nMatched markets:\n")
	for _, m := range matches {
		sb.WriteString(fmt.Sprintf("- %s (volume $%.0f)\n", m.MarketQuestion, m.MarketVolume))
	}

	req := openai.ChatCompletionRequest{
		Model:       a.config.Model,
		Temperature: 0.7,
		MaxTokens:   500,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a marketing copywriter for a prediction-market platform.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: sb.String(),
			},
		},
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if isRateLimitError(err) {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("generate marketing ideas failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from llm")
	}

	return resp.Choices[0].Message.Content, nil
}

// isRateLimitError checks if an error is a provider rate-limit rejection
func isRateLimitError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") || strings.Contains(strings.ToLower(errStr), "rate limit")
}
