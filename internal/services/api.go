package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/ytmirror/internal/shared"
	"golang.org/x/oauth2"
)

const defaultRequestTimeout = 15 * time.Second

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

// APIError describes a non-2xx response.
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("status %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return shared.ErrAPIRequest }

// errorBody covers both the Google ({"error":{"errors":[{"reason"}]}}) and Spotify
// ({"error":{"status","message"}}) error envelopes.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// apiClient performs JSON GET requests against one base URL.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(baseURL string, client *http.Client, timeout time.Duration) *apiClient {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	client.Timeout = timeout

	return &apiClient{baseURL: baseURL, httpClient: client}
}

// bearerClient returns an [http.Client] that sends token on every request, or nil when token is empty.
func bearerClient(ctx context.Context, token string) *http.Client {
	if token == "" {
		return nil
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
}

// get decodes the JSON body of GET baseURL+path?query into result.
func (a *apiClient) get(ctx context.Context, path string, query url.Values, result any) error {
	fullURL := a.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return fmt.Errorf("%w: token exchange failed: %v", shared.ErrAuthExpired, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return a.statusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrParse, err)
	}
	return nil
}

func (a *apiClient) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		if eb.Error.Message != "" {
			apiErr.Message = eb.Error.Message
		}
		if len(eb.Error.Errors) > 0 {
			apiErr.Reason = eb.Error.Errors[0].Reason
		}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %v", shared.ErrAuthExpired, apiErr)
	}
	return apiErr
}
