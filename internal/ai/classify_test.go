package ai

import (
	"context"
	"errors"
	"net"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassifyYandexError(t *testing.T) {
	// yagpt оборачивает ошибки gRPC через errors.WithMessage
	wrap := func(c codes.Code, msg string) error {
		return pkgerrors.WithMessage(status.Error(c, msg), "failed completion")
	}

	tests := []struct {
		name       string
		err        error
		wantKind   ErrorKind
		wantStatus int
		wantMsg    string
		deadline   bool
	}{
		{name: "throttled", err: wrap(codes.ResourceExhausted, "quota exceeded"), wantKind: KindRateLimited, wantStatus: 429, wantMsg: "quota exceeded"},
		{name: "deadline", err: wrap(codes.DeadlineExceeded, "deadline exceeded"), wantKind: KindTransport, wantMsg: "deadline exceeded", deadline: true},
		{name: "unavailable", err: wrap(codes.Unavailable, "connection refused"), wantKind: KindTransport, wantMsg: "connection refused"},
		{name: "unauthenticated", err: wrap(codes.Unauthenticated, "bad iam token"), wantKind: KindServer, wantStatus: 401, wantMsg: "bad iam token"},
		{name: "invalid argument", err: wrap(codes.InvalidArgument, "prompt too long"), wantKind: KindServer, wantStatus: 400, wantMsg: "prompt too long"},
		{name: "internal", err: wrap(codes.Internal, "boom"), wantKind: KindServer, wantMsg: "boom"},
		{name: "context deadline", err: pkgerrors.WithMessage(context.DeadlineExceeded, "failed completion"), wantKind: KindTransport, deadline: true},
		{name: "net error", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}, wantKind: KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var berr *BackendError
			require.True(t, errors.As(classifyYandexError(tt.err), &berr))
			assert.Equal(t, tt.wantKind, berr.Kind)
			assert.Equal(t, tt.wantStatus, berr.StatusCode)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, berr.Message)
			}
			assert.ErrorIs(t, berr, tt.err)
			assert.Equal(t, tt.deadline, errors.Is(berr, context.DeadlineExceeded))
		})
	}
}

func TestClassifyGeminiError(t *testing.T) {
	var berr *BackendError

	require.True(t, errors.As(classifyGeminiError(genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}), &berr))
	assert.Equal(t, KindRateLimited, berr.Kind)
	assert.Equal(t, "RESOURCE_EXHAUSTED: quota", berr.Message)

	require.True(t, errors.As(classifyGeminiError(genai.APIError{Code: 503, Message: "overloaded"}), &berr))
	assert.Equal(t, KindServer, berr.Kind)
	assert.Equal(t, 503, berr.StatusCode)

	require.True(t, errors.As(classifyGeminiError(errors.New("connection reset by peer")), &berr))
	assert.Equal(t, KindTransport, berr.Kind)
}

func TestBackendErrorMessage(t *testing.T) {
	err := &BackendError{Provider: "openai", Kind: KindRateLimited, StatusCode: 429, Message: "slow down"}
	assert.Equal(t, "openai rate_limited error: status 429: slow down", err.Error())

	err = &BackendError{Provider: "http", Kind: KindTransport, Message: "refused"}
	assert.Equal(t, "http transport error: refused", err.Error())
}
