package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPClient — произвольный text-generation эндпоинт:
// POST {"prompt": "..."} -> {"text": "..."}
type HTTPClient struct {
	url    string
	token  string
	client *http.Client
}

func NewHTTPClient(url, token string, client *http.Client) (*HTTPClient, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("http backend url is required")
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPClient{
		url:    url,
		token:  strings.TrimSpace(token),
		client: client,
	}, nil
}

type httpCompletionResponse struct {
	Text    string `json:"text"`
	Content string `json:"content"`
	Error   string `json:"error"`
}

func (c *HTTPClient) Complete(ctx context.Context, prompt string) (string, error) {
	b, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", transportError(ProviderHTTP, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(ProviderHTTP, err)
	}

	var parsed httpCompletionResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode >= 300 {
		msg := strings.TrimSpace(parsed.Error)
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		if msg == "" {
			msg = resp.Status
		}
		return "", statusError(ProviderHTTP, resp.StatusCode, msg, nil)
	}

	if decodeErr != nil {
		return "", &BackendError{Provider: ProviderHTTP, Kind: KindServer, StatusCode: resp.StatusCode, Message: "invalid json: " + decodeErr.Error(), Err: decodeErr}
	}

	text := parsed.Text
	if text == "" {
		text = parsed.Content
	}
	if strings.TrimSpace(text) == "" {
		return "", &BackendError{Provider: ProviderHTTP, Kind: KindServer, StatusCode: resp.StatusCode, Message: "empty completion"}
	}
	return text, nil
}
