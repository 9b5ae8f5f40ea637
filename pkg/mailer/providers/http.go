package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512

	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	mimeJSON            = "application/json"
	bearerPrefix        = "Bearer "

	errAPIStatusFmt = "%s api: status %d: %s"
)

var (
	ErrAPIKeyRequired = errors.New("api key is required")

	defaultClient = &http.Client{Timeout: defaultTimeout}
)

// apiClient holds what the HTTP mail APIs have in common.
type apiClient struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
}

func newAPIClient(name, apiKey, baseURL, defaultURL string, client *http.Client) apiClient {
	if baseURL == "" {
		baseURL = defaultURL
	}
	if client == nil {
		client = defaultClient
	}
	return apiClient{name: name, apiKey: apiKey, baseURL: baseURL, client: client}
}

func (a apiClient) Name() string {
	return a.name
}

// do sends body as JSON (nil for none) and returns the response once its
// status is 2xx. The caller closes the body.
func (a apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if a.apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set(headerAuthorization, bearerPrefix+a.apiKey)
	if body != nil {
		req.Header.Set(headerContentType, mimeJSON)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf(errAPIStatusFmt, a.name, resp.StatusCode, bytes.TrimSpace(detail))
	}
	return resp, nil
}

func (a apiClient) verify(ctx context.Context, path string) error {
	resp, err := a.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
