package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when the content service has no document at the path.
	ErrNotFound = errors.New("content not found")
	// ErrUnavailable covers transport failures and unexpected responses.
	ErrUnavailable = errors.New("content service unavailable")
)

const maxBodyBytes = 4 << 20

// Client talks to the LaTeX content service.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

// NewClient builds a client for baseURL. A non-empty secret is sent as a
// bearer token on every request.
func NewClient(baseURL, secret string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type statementResponse struct {
	Content string `json:"content"`
}

// Statement returns the problem statement text stored at contentPath.
func (c *Client) Statement(ctx context.Context, contentPath string) (string, error) {
	body, err := c.get(ctx, c.texURL(contentPath)+"/problem")
	if err != nil {
		return "", err
	}
	var resp statementResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decoding statement for %s: %v", ErrUnavailable, contentPath, err)
	}
	return resp.Content, nil
}

// Full returns the complete content document (metadata and bodies,
// solution included) exactly as the content service serves it.
func (c *Client) Full(ctx context.Context, contentPath string) (json.RawMessage, error) {
	body, err := c.get(ctx, c.texURL(contentPath))
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: invalid JSON document for %s", ErrUnavailable, contentPath)
	}
	return json.RawMessage(body), nil
}

func (c *Client) texURL(contentPath string) string {
	segments := strings.Split(strings.Trim(contentPath, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.baseURL + "/api/tex/" + strings.Join(segments, "/")
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: GET %s", ErrNotFound, endpoint)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: GET %s returned status %d", ErrUnavailable, endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body of %s: %v", ErrUnavailable, endpoint, err)
	}
	return body, nil
}
