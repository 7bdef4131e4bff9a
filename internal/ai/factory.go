package ai

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Vovarama1992/studio-assistant/internal/config"
)

// New собирает Completer по LLM_PROVIDER
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (Completer, error) {
	switch cfg.LLMProvider {
	case ProviderOpenAI:
		return NewOpenAIClient(
			cfg.OpenAIAPIKey,
			cfg.OpenAIBaseURL,
			cfg.OpenAIModel,
			cfg.OpenRouterReferrer,
			cfg.OpenRouterTitle,
			log,
		), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
	case ProviderYandex:
		return NewYandexClient(cfg.YandexOAuthToken, cfg.YandexFolderID)
	case ProviderHTTP:
		return NewHTTPClient(cfg.HTTPBackendURL, cfg.HTTPBackendToken, &http.Client{})
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
}
