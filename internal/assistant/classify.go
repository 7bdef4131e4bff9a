package assistant

import (
	"context"
	"errors"
	"net/http"

	"github.com/Vovarama1992/studio-assistant/internal/ai"
)

// classify переводит ошибку бэкенда в Classification/Reason.
// Без состояния: одна ошибка, один ответ.
func classify(err error) Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return Result{Classification: ClassNetworkError, Reason: ReasonTimeout, Message: err.Error()}
	}

	var berr *ai.BackendError
	if !errors.As(err, &berr) {
		return Result{Classification: ClassBackendError, Reason: ReasonServerError, Message: err.Error()}
	}

	switch berr.Kind {
	case ai.KindTransport:
		return Result{Classification: ClassNetworkError, Reason: ReasonTransport, Message: berr.Message}
	case ai.KindRateLimited:
		return Result{Classification: ClassBackendError, Reason: ReasonRateLimited, Message: berr.Message, StatusCode: berr.StatusCode}
	}

	res := Result{Classification: ClassBackendError, Message: berr.Message, StatusCode: berr.StatusCode}
	switch s := berr.StatusCode; {
	case s == http.StatusUnauthorized || s == http.StatusForbidden:
		res.Reason = ReasonAuth
	case s >= 400 && s < 500:
		res.Reason = ReasonBadRequest
	default:
		res.Reason = ReasonServerError
	}
	return res
}
