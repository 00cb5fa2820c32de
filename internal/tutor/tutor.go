// Package tutor asks an OpenAI-compatible model to expand on a question's
// stored explanation. It is optional: grading never depends on it.
package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/retina/internal/model"
	"github.com/pavelanni/retina/internal/tutor/prompts"
)

// Request is one "tell me more" action on a checked question.
type Request struct {
	Case            model.Case
	Question        model.Question
	Selected        string
	Correct         bool
	LearnerQuestion string
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.Variant
}

// New creates a tutor client. An invalid variant falls back to standard.
func New(baseURL, apiKey, modelName, variant string) (*Client, error) {
	if err := prompts.Load(prompts.FS); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	variant = strings.ToLower(strings.TrimSpace(variant))
	if !prompts.IsValidVariant(variant) {
		slog.Warn("invalid tutor variant, using standard", "variant", variant)
		variant = string(prompts.VariantStandard)
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

// Ping checks that the endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Elaborate returns the model's explanation for req.
func (c *Client) Elaborate(ctx context.Context, req Request) (string, error) {
	systemPrompt, err := buildPrompt(c.variant, req)
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("tutor response", "case", req.Case.ID, "question", req.Question.ID, "chars", len(text))
	if text == "" {
		return "", fmt.Errorf("LLM returned an empty answer")
	}
	return text, nil
}

func buildPrompt(variant prompts.Variant, req Request) (string, error) {
	return prompts.BuildElaboratePrompt(variant, prompts.ElaborateData{
		CaseTitle:       req.Case.Title,
		History:         req.Case.History,
		Prompt:          req.Question.Prompt,
		Options:         req.Question.Options,
		CorrectOption:   req.Question.CorrectOption,
		Selected:        req.Selected,
		Correct:         req.Correct,
		Explanation:     req.Question.Explanation,
		LearnerQuestion: req.LearnerQuestion,
	})
}
