package chat

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiClient streams completions through the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration, logger *zap.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model, timeout: timeout, logger: logger}, nil
}

func (c *GeminiClient) Stream(ctx context.Context, req CompletionRequest) (<-chan string, <-chan error) {
	contentCh := make(chan string, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(contentCh)
		defer close(errCh)

		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
		start := time.Now()

		cfg := &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(SystemPrompt(req.Tasks), genai.RoleUser),
		}
		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, geminiContents(req.Messages), cfg) {
			if err != nil {
				c.logger.Warn("gemini stream failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
				errCh <- fmt.Errorf("gemini stream: %w", err)
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			select {
			case contentCh <- text:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		c.logger.Debug("gemini stream finished", zap.String("model", c.model), zap.Duration("elapsed", time.Since(start)))
	}()

	return contentCh, errCh
}

// geminiContents maps history onto Gemini's two roles.
func geminiContents(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Content, role))
	}
	return out
}
