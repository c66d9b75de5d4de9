package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/traitsurvey/internal/llm/prompts"
	"github.com/pavelanni/traitsurvey/internal/model"
)

// ErrNothingAnswered is returned when there are no scores to summarize.
var ErrNothingAnswered = errors.New("no answered items to summarize")

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.Variant
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName, variant string) (*Client, error) {
	if !prompts.IsValidVariant(variant) {
		return nil, fmt.Errorf("unknown summary variant %q", variant)
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: prompts.Variant(variant),
	}, nil
}

// Ping checks that the endpoint answers and serves the configured model.
func (c *Client) Ping(ctx context.Context) error {
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	for _, m := range list.Models {
		if m.ID == c.model || strings.HasPrefix(m.ID, c.model+":") {
			return nil
		}
	}
	return fmt.Errorf("model %q not served by endpoint", c.model)
}

// Summarize asks the model for a short narrative of a report.
func (c *Client) Summarize(ctx context.Context, respondent string, scores []model.CategoryScore) (*model.Summary, error) {
	answered := make([]model.CategoryScore, 0, len(scores))
	for _, s := range scores {
		if s.MaxScore > 0 {
			answered = append(answered, s)
		}
	}
	if len(answered) == 0 {
		return nil, ErrNothingAnswered
	}

	systemPrompt, err := prompts.BuildSummaryPrompt(c.variant, respondent, answered)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Write the summary now."},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.4,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)
	return parseSummary(raw)
}

func parseSummary(raw string) (*model.Summary, error) {
	raw = strings.TrimSpace(raw)
	// Some local models wrap JSON in a markdown fence despite the response format.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var s model.Summary
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &s); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	s.Text = strings.TrimSpace(s.Text)
	if s.Text == "" {
		return nil, fmt.Errorf("LLM response has no summary (raw: %s)", raw)
	}
	s.Strengths = compact(s.Strengths)
	s.Support = compact(s.Support)
	return &s, nil
}

func compact(items []string) []string {
	out := items[:0]
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
