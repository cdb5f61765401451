package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shlokDS16/flow-state-studio/internal/config"
)

// NewCompleter builds the completer for cfg.LLM.Provider. It returns nil, nil for the
// none provider.
func NewCompleter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Completer, error) {
	switch cfg.LLM.Provider {
	case "", config.ProviderNone:
		return nil, nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLMBaseURL(),
			Model:   cfg.LLMModel(),
			Timeout: cfg.LLMTimeout(),
		}, logger), nil
	case config.ProviderGemini:
		c, err := NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLMModel(), cfg.LLMTimeout(), logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLM.Provider)
	}
}
