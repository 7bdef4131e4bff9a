package ai

import (
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindRateLimited ErrorKind = "rate_limited"
	KindTransport   ErrorKind = "transport"
	KindServer      ErrorKind = "server"
)

// BackendError — единый формат ошибки всех адаптеров.
// Kind определяется один раз, на границе адаптера.
type BackendError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	if e == nil {
		return "backend error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s error: status %d: %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s error: %s", e.Provider, e.Kind, e.Message)
}

func (e *BackendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func kindForStatus(status int) ErrorKind {
	if status == http.StatusTooManyRequests {
		return KindRateLimited
	}
	return KindServer
}

func statusError(provider string, status int, msg string, err error) *BackendError {
	return &BackendError{
		Provider:   provider,
		Kind:       kindForStatus(status),
		StatusCode: status,
		Message:    msg,
		Err:        err,
	}
}

func transportError(provider string, err error) *BackendError {
	return &BackendError{
		Provider: provider,
		Kind:     KindTransport,
		Message:  err.Error(),
		Err:      err,
	}
}
