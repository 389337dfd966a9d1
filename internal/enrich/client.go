package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/docuqa/backend/internal/metrics"
	"github.com/docuqa/backend/internal/storage/models"
	"github.com/docuqa/backend/pkg/circuitbreaker"
	"github.com/docuqa/backend/pkg/config"
	"github.com/docuqa/backend/pkg/logger"
	"github.com/docuqa/backend/pkg/retry"
)

// Client is the optional AI enrichment capability. It is only consulted
// after every rule-based tier came up empty, and a disabled or failing
// client must never block the rule-based answer path.
type Client struct {
	api     *openai.Client
	cfg     config.EnrichmentConfig
	breaker *circuitbreaker.CircuitBreaker
}

// NewClient returns a disabled client when enrichment is off or no API key
// is configured.
func NewClient(cfg config.EnrichmentConfig) *Client {
	if !cfg.Enabled || cfg.APIKey == "" {
		logger.Info("Enrichment disabled")
		return &Client{cfg: cfg}
	}

	breaker := circuitbreaker.NewCircuitBreaker("enrichment", circuitbreaker.Config{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Timeout:          30 * time.Second,
		Logger:           logger.GetLogger(),
	})

	logger.Info("Enrichment enabled", zap.String("model", cfg.Model))

	return &Client{
		api:     openai.NewClient(cfg.APIKey),
		cfg:     cfg,
		breaker: breaker,
	}
}

// Enabled reports whether the capability can be called at all.
func (c *Client) Enabled() bool {
	return c.api != nil
}

const systemPrompt = `You answer questions about a document strictly from the JSON knowledge base provided.
If the knowledge base does not contain the answer, reply with the single word UNKNOWN.
Answer in the language of the question, in one short sentence.`

// Enhance asks the model for an answer grounded in the snapshot. It
// returns an empty string when the model cannot answer from the provided
// knowledge base.
func (c *Client) Enhance(ctx context.Context, question string, snap *models.Snapshot) (string, error) {
	if !c.Enabled() {
		return "", errors.New("enrichment is disabled")
	}

	knowledge, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutSec)*time.Second)
	defer cancel()

	answer, err := retry.DoWithResult(ctx, retry.Config{
		MaxAttempts:  2,
		InitialDelay: 500 * time.Millisecond,
		Logger:       logger.GetLogger(),
	}, func() (string, error) {
		var content string
		execErr := c.breaker.Execute(ctx, func() error {
			resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       c.cfg.Model,
				Temperature: c.cfg.Temperature,
				MaxTokens:   c.cfg.MaxTokens,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
					{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Knowledge base:\n%s\n\nQuestion: %s", knowledge, question)},
				},
			})
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 {
				return errors.New("empty completion")
			}
			content = strings.TrimSpace(resp.Choices[0].Message.Content)
			return nil
		})
		return content, execErr
	})

	if err != nil {
		metrics.EnrichmentCalls.WithLabelValues("error").Inc()
		return "", err
	}

	if answer == "" || strings.EqualFold(answer, "UNKNOWN") {
		metrics.EnrichmentCalls.WithLabelValues("no_answer").Inc()
		return "", nil
	}

	metrics.EnrichmentCalls.WithLabelValues("ok").Inc()
	return answer, nil
}
