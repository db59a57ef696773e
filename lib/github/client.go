// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bureau-foundation/taskflow/lib/clock"
)

// githubAPIVersion pins the REST API version header.
const githubAPIVersion = "2022-11-28"

// DefaultBaseURL is the base URL for the public GitHub API.
const DefaultBaseURL = "https://api.github.com"

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 16 << 20

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the root URL for API requests. Defaults to
	// DefaultBaseURL. Must use HTTPS.
	BaseURL string

	// Token is a personal access token or fine-grained token. Required.
	Token string

	// HTTPClient is used for all HTTP requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock is used to evaluate rate limit reset times. Defaults to
	// clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a typed GitHub REST API client with token authentication,
// rate limit tracking, pagination, ETag caching, and structured errors.
//
// The client never retries. A request made while the tracked rate limit
// is exhausted fails immediately with a *RateLimitError so the caller
// decides whether to wait.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authHeader string
	rateLimit  *rateLimitTracker
	etagCache  *etagCache
	logger     *slog.Logger
}

// NewClient creates a GitHub API client. Returns an error for a missing
// token or a non-HTTPS base URL.
func NewClient(config Config) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("github: API client requires HTTPS (got %q)", baseURL)
	}
	if config.Token == "" {
		return nil, fmt.Errorf("github: no authentication configured (Token is empty)")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		authHeader: "Bearer " + config.Token,
		rateLimit:  newRateLimitTracker(clk),
		etagCache:  newETagCache(),
		logger:     logger,
	}, nil
}

// do executes an authenticated request against a path relative to the
// base URL and returns the response body. GET requests use the ETag
// cache. Non-2xx responses return an *APIError.
func (client *Client) do(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	url := client.baseURL + path
	response, err := client.doRaw(ctx, method, url, requestBody)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotModified {
		if cached := client.etagCache.body(url); cached != nil {
			client.logger.Debug("github response served from etag cache", "path", path)
			return cached, nil
		}
	}

	body, err := readResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("github: reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, parseAPIErrorFromBody(response.StatusCode, body)
	}

	if method == http.MethodGet {
		if etag := response.Header.Get("ETag"); etag != "" {
			client.etagCache.put(url, etag, body)
		}
	}

	return body, nil
}

// doRaw executes an HTTP request with authentication and the rate limit
// check, returning the raw *http.Response. The caller closes the body.
// PageIterator uses this directly because it needs the Link header.
func (client *Client) doRaw(ctx context.Context, method, url string, requestBody any) (*http.Response, error) {
	if err := client.rateLimit.check(); err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("github: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("github: creating request: %w", err)
	}

	request.Header.Set("Authorization", client.authHeader)
	request.Header.Set("Accept", "application/vnd.github+json")
	request.Header.Set("X-GitHub-Api-Version", githubAPIVersion)
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	if method == http.MethodGet {
		if etag := client.etagCache.get(url); etag != "" {
			request.Header.Set("If-None-Match", etag)
		}
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("github: %s %s: %w", method, url, err)
	}

	client.rateLimit.update(response.Header)
	return response, nil
}

// get decodes the JSON response of a GET into result.
func (client *Client) get(ctx context.Context, path string, result any) error {
	body, err := client.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, result)
}

// post sends requestBody as JSON and decodes the response into result
// when result is non-nil.
func (client *Client) post(ctx context.Context, path string, requestBody any, result any) error {
	body, err := client.do(ctx, http.MethodPost, path, requestBody)
	if err != nil {
		return err
	}
	if result != nil {
		return json.Unmarshal(body, result)
	}
	return nil
}

// patch sends requestBody as JSON and decodes the response into result
// when result is non-nil.
func (client *Client) patch(ctx context.Context, path string, requestBody any, result any) error {
	body, err := client.do(ctx, http.MethodPatch, path, requestBody)
	if err != nil {
		return err
	}
	if result != nil {
		return json.Unmarshal(body, result)
	}
	return nil
}

// listOptions is implemented by option structs for paginated list
// endpoints.
type listOptions interface {
	queryParams() string
}

// list creates a PageIterator for a paginated GET endpoint.
func list[T any](client *Client, path string) *PageIterator[T] {
	return &PageIterator[T]{
		client:  client,
		nextURL: client.baseURL + path,
	}
}

// buildListPath appends the encoded options to basePath, if any.
func buildListPath(basePath string, options listOptions) string {
	query := options.queryParams()
	if query == "" {
		return basePath
	}
	return basePath + "?" + query
}

func readResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, maxResponseSize))
}

// parseAPIError reads a GitHub API error from an HTTP response.
func parseAPIError(response *http.Response) *APIError {
	body, _ := readResponse(response.Body)
	return parseAPIErrorFromBody(response.StatusCode, body)
}

// parseAPIErrorFromBody parses GitHub's JSON error body, falling back to
// the raw text when the body is not JSON.
func parseAPIErrorFromBody(statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode}

	var wireError struct {
		Message          string            `json:"message"`
		DocumentationURL string            `json:"documentation_url"`
		Errors           []ValidationError `json:"errors"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Message != "" {
		apiError.Message = wireError.Message
		apiError.DocumentationURL = wireError.DocumentationURL
		apiError.Errors = wireError.Errors
	} else {
		apiError.Message = string(body)
	}

	return apiError
}
