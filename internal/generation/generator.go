// Package generation produces narrative descriptions for newly expanded
// areas through a chat-completion backend.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"realm-server/internal/models"
	"realm-server/internal/telemetry"
)

// Request describes one location awaiting prose.
type Request struct {
	Name      string
	Terrain   string
	Direction string
}

// Result is one generated description with its token cost.
type Result struct {
	Text       string
	TokenUsage int
}

// Generator produces a batch of descriptions. Implementations must respect
// the context deadline; callers fall back to baseline text on failure.
type Generator interface {
	GenerateBatch(ctx context.Context, requests []Request) ([]Result, error)
}

const systemPrompt = `You are the narrator of a persistent text world.
For each numbered place, write one vivid paragraph of 2-3 sentences
describing what a traveller sees on arrival. Respond with a JSON array of
strings, one per place, in the same order. Respond with JSON only.`

type openAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	metrics *telemetry.Recorder
	logger  *zap.Logger
}

// NewOpenAIGenerator creates a Generator backed by a chat-completion API.
// baseURL may point at any OpenAI-compatible endpoint.
func NewOpenAIGenerator(apiKey, baseURL, model string, timeout time.Duration, metrics *telemetry.Recorder, logger *zap.Logger) Generator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openAIGenerator{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		metrics: metrics,
		logger:  logger.Named("Generator"),
	}
}

func (g *openAIGenerator) GenerateBatch(ctx context.Context, requests []Request) ([]Result, error) {
	if len(requests) == 0 {
		return nil, nil
	}

	var prompt strings.Builder
	for i, req := range requests {
		fmt.Fprintf(&prompt, "%d. %q, %s terrain, reached heading %s\n",
			i+1, req.Name, req.Terrain, req.Direction)
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	resp, err := g.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt.String()},
		},
	})
	duration := time.Since(started)
	if err != nil {
		g.metrics.RecordGeneration(duration.Seconds(), 0)
		g.logger.Warn("Description generation failed",
			zap.Int("batch_size", len(requests)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", models.ErrGenerationFailed, err)
	}
	g.metrics.RecordGeneration(duration.Seconds(), resp.Usage.TotalTokens)

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: empty completion", models.ErrGenerationFailed)
	}

	texts, err := parseBatch(resp.Choices[0].Message.Content, len(requests))
	if err != nil {
		return nil, err
	}
	g.logger.Info("Generated description batch",
		zap.Int("batch_size", len(requests)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("duration", duration),
	)

	// Token usage is reported per batch; attribute it to the first entry so
	// totals stay correct without inventing a per-item split.
	results := make([]Result, len(texts))
	for i, text := range texts {
		results[i] = Result{Text: text}
	}
	results[0].TokenUsage = resp.Usage.TotalTokens
	return results, nil
}

// parseBatch decodes the model's JSON array, tolerating code fences.
func parseBatch(content string, want int) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var texts []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &texts); err != nil {
		return nil, fmt.Errorf("%w: malformed completion: %v", models.ErrGenerationFailed, err)
	}
	if len(texts) != want {
		return nil, fmt.Errorf("%w: expected %d descriptions, got %d", models.ErrGenerationFailed, want, len(texts))
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: empty description at index %d", models.ErrGenerationFailed, i)
		}
		texts[i] = strings.TrimSpace(t)
	}
	return texts, nil
}
