package ai

import "context"

// Completer — внешний генеративный бэкенд: промпт на вход, текст на выход.
// Ошибки отдаются как *BackendError, чтобы вызывающий мог различить
// троттлинг бэкенда, сбой транспорта и прочие ошибки сервиса.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderYandex = "yandex"
	ProviderHTTP   = "http"
)
