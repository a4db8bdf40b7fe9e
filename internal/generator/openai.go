// internal/generator/openai.go
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jason-s-yu/classkit/internal/models"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// OpenAIGenerator asks an OpenAI-compatible chat completions API for content.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator builds a generator. An empty baseURL keeps the library default.
func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) ([]models.Item, error) {
	p := BuildPrompt(req)
	log := logrus.WithFields(logrus.Fields{"model": g.model, "activity": req.Activity})

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.9,
	})
	elapsed := time.Since(start)

	if err != nil {
		llmRequestsTotal.WithLabelValues(g.model, "error").Inc()
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			log = log.WithField("status", apiErr.HTTPStatusCode)
		}
		log.WithError(err).WithField("elapsed", elapsed).Warn("LLM request failed")
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		llmRequestsTotal.WithLabelValues(g.model, "error_empty_response").Inc()
		return nil, fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	llmRequestsTotal.WithLabelValues(g.model, "success").Inc()
	llmTokensTotal.WithLabelValues(g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	llmTokensTotal.WithLabelValues(g.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	log.WithFields(logrus.Fields{
		"elapsed":       elapsed,
		"total_tokens":  resp.Usage.TotalTokens,
		"finish_reason": resp.Choices[0].FinishReason,
	}).Debug("LLM request succeeded")

	res, err := ParseItems(resp.Choices[0].Message.Content, req)
	if len(res.Rejected) > 0 {
		itemsRejectedTotal.WithLabelValues(string(req.Activity)).Add(float64(len(res.Rejected)))
	}
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}
