// Package gemini generates text with the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

var ErrNoContent = errors.New("gemini: no content generated")

type Client struct {
	client   *genai.Client
	model    string
	jsonMode bool
	logger   *zap.Logger
}

type ClientOption func(*Client)

func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithJSONResponse asks the model to answer with application/json.
func WithJSONResponse(on bool) ClientOption {
	return func(c *Client) {
		c.jsonMode = on
	}
}

func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	c := &Client{
		client: genaiClient,
		model:  DefaultModel,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("caller", "GeminiClient"))
	return c, nil
}

func (c *Client) Model() string { return c.model }

// GenerateContent sends prompt as a single user turn and returns the
// concatenated text of the first candidate.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	logger := c.logger.With(zap.String("method", "GenerateContent"), zap.String("model", c.model))

	var config *genai.GenerateContentConfig
	if c.jsonMode {
		config = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	logger.Debug("finish run", zap.Duration("duration", time.Since(start)))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return extractText(result)
}

func extractText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", ErrNoContent
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrNoContent
	}
	return sb.String(), nil
}
