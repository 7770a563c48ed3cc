package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL is the public content platform API root.
const DefaultBaseURL = "https://api.box.com/2.0"

const (
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 4096
)

// APIError represents a non-2xx response from the content platform.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cloud api: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx) and rate limiting (429).
// Other client errors (4xx) are considered permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsUnauthorized returns true when the token was rejected.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsRetryable reports whether err is a retryable API error or a network error.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// HTTPClient is a real cloud client bound to one access token.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger

	files       *HTTPFileService
	invocations *HTTPInvocationService
}

func NewHTTPClient(baseURL, token string, httpClient *http.Client, logger *slog.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}
	c.files = &HTTPFileService{client: c}
	c.invocations = &HTTPInvocationService{client: c}
	return c
}

// HTTPFactory returns a Factory of HTTP clients sharing one transport.
func HTTPFactory(baseURL string, httpClient *http.Client, logger *slog.Logger) Factory {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return func(token string) Client {
		return NewHTTPClient(baseURL, token, httpClient, logger)
	}
}

func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

func (c *HTTPClient) Files() FileService {
	return c.files
}

func (c *HTTPClient) Invocations() InvocationService {
	return c.invocations
}

func (c *HTTPClient) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Request-Id", uuid.NewString())
	return req, nil
}

// do sends req and returns the response for 2xx statuses. Any other status
// is drained into an *APIError.
func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
}
