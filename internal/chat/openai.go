package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// OpenAIClient talks to any OpenAI-compatible /chat/completions endpoint.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger

	maxAttempts int
	backoff     func(attempt int) time.Duration
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func NewOpenAIClient(cfg OpenAIConfig, logger *zap.Logger) *OpenAIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OpenAIClient{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		httpClient:  &http.Client{},
		logger:      logger,
		maxAttempts: 3,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt-1)) * time.Second
		},
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type openAIChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// errRetryable marks failures worth another attempt (429s and transport errors).
var errRetryable = errors.New("retryable")

func (c *OpenAIClient) Stream(ctx context.Context, req CompletionRequest) (<-chan string, <-chan error) {
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

		body, err := json.Marshal(c.buildRequest(req))
		if err != nil {
			errCh <- fmt.Errorf("failed to marshal request: %w", err)
			return
		}

		var resp *http.Response
		var lastErr error
		for attempt := 1; attempt <= c.maxAttempts; attempt++ {
			if attempt > 1 {
				select {
				case <-time.After(c.backoff(attempt - 1)):
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}
			resp, lastErr = c.open(ctx, body)
			if lastErr == nil {
				break
			}
			if !errors.Is(lastErr, errRetryable) || ctx.Err() != nil {
				errCh <- lastErr
				return
			}
			c.logger.Warn("completion request failed, retrying", zap.Int("attempt", attempt), zap.Error(lastErr))
		}
		if resp == nil {
			errCh <- fmt.Errorf("max retries exceeded: %w", lastErr)
			return
		}
		defer resp.Body.Close()

		if err := c.readStream(ctx, resp.Body, contentCh); err != nil {
			c.logger.Warn("completion stream failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
			errCh <- err
			return
		}
		c.logger.Debug("completion stream finished", zap.String("model", c.model), zap.Duration("elapsed", time.Since(start)))
	}()

	return contentCh, errCh
}

func (c *OpenAIClient) buildRequest(req CompletionRequest) openAIRequest {
	msgs := make([]openAIMessage, 0, len(req.Messages)+1)
	msgs = append(msgs, openAIMessage{Role: "system", Content: SystemPrompt(req.Tasks)})
	for _, m := range req.Messages {
		msgs = append(msgs, openAIMessage{Role: string(m.Role), Content: m.Content})
	}
	return openAIRequest{Model: c.model, Messages: msgs, Stream: true}
}

func (c *OpenAIClient) open(ctx context.Context, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", errRetryable, err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: rate limit exceeded (429): %s", errRetryable, strings.TrimSpace(string(msg)))
	}
	return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}

// readStream forwards the delta content of each SSE data line until [DONE] or EOF.
func (c *OpenAIClient) readStream(ctx context.Context, r io.Reader, out chan<- string) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return nil
		}
		var chunk openAIChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			return fmt.Errorf("API error: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		select {
		case out <- chunk.Choices[0].Delta.Content:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream error: %w", err)
	}
	return nil
}
