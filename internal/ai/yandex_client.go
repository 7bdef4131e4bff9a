package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/Morwran/yagpt"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type YandexClient struct {
	ya       yagpt.YaGPTFace
	iamToken string
}

func NewYandexClient(oauthToken, folderID string) (*YandexClient, error) {
	// IAM токен из OAuth токена
	iam, err := yagpt.NewYaIam(oauthToken)
	if err != nil {
		return nil, fmt.Errorf("init yandex iam: %w", err)
	}
	resp, err := iam.Create()
	if err != nil {
		return nil, fmt.Errorf("create iam token: %w", err)
	}

	ya, err := yagpt.NewYagpt(folderID)
	if err != nil {
		return nil, fmt.Errorf("init yagpt: %w", err)
	}

	return &YandexClient{ya: ya, iamToken: resp.IamToken}, nil
}

func (c *YandexClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.ya.CompletionWithCtx(ctx, c.iamToken, []yagpt.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return "", classifyYandexError(err)
	}
	if resp == nil || len(resp.Alternatives) == 0 {
		return "", &BackendError{Provider: ProviderYandex, Kind: KindServer, Message: "empty alternatives"}
	}
	return resp.Alternatives[0].Message.Content, nil
}

// classifyYandexError разбирает gRPC статус под обёрткой pkg/errors
func classifyYandexError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return transportError(ProviderYandex, err)
	}

	st, ok := status.FromError(err)
	if !ok {
		// не gRPC: ошибка до отправки запроса (dial, dns)
		var netErr net.Error
		if errors.As(err, &netErr) {
			return transportError(ProviderYandex, err)
		}
		return &BackendError{Provider: ProviderYandex, Kind: KindServer, Message: err.Error(), Err: err}
	}

	switch st.Code() {
	case codes.ResourceExhausted:
		return &BackendError{Provider: ProviderYandex, Kind: KindRateLimited, StatusCode: http.StatusTooManyRequests, Message: st.Message(), Err: err}
	case codes.DeadlineExceeded:
		return &BackendError{Provider: ProviderYandex, Kind: KindTransport, Message: st.Message(), Err: fmt.Errorf("%w: %w", context.DeadlineExceeded, err)}
	case codes.Canceled:
		return &BackendError{Provider: ProviderYandex, Kind: KindTransport, Message: st.Message(), Err: fmt.Errorf("%w: %w", context.Canceled, err)}
	case codes.Unavailable:
		return &BackendError{Provider: ProviderYandex, Kind: KindTransport, Message: st.Message(), Err: err}
	case codes.Unauthenticated:
		return &BackendError{Provider: ProviderYandex, Kind: KindServer, StatusCode: http.StatusUnauthorized, Message: st.Message(), Err: err}
	case codes.PermissionDenied:
		return &BackendError{Provider: ProviderYandex, Kind: KindServer, StatusCode: http.StatusForbidden, Message: st.Message(), Err: err}
	case codes.InvalidArgument:
		return &BackendError{Provider: ProviderYandex, Kind: KindServer, StatusCode: http.StatusBadRequest, Message: st.Message(), Err: err}
	}
	return &BackendError{Provider: ProviderYandex, Kind: KindServer, Message: st.Message(), Err: err}
}
