package threatintel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

const (
	// DefaultPulsediveBaseURL is the public Pulsedive API root
	DefaultPulsediveBaseURL = "https://pulsedive.com/api"

	// PulsediveNotFound is the error text Pulsedive returns for unknown indicators
	PulsediveNotFound = "Indicator not found."

	maxBodyBytes = 4 << 20
)

// PulsediveClient handles communication with the Pulsedive info endpoint
type PulsediveClient struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// PulsediveConfig holds Pulsedive client configuration
type PulsediveConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	RateLimit  int // requests per minute, 0 disables client-side limiting
}

// NewPulsediveClient creates a new Pulsedive client around an already
// configured HTTP client (TLS material and proxy are resolved at startup).
func NewPulsediveClient(cfg PulsediveConfig) *PulsediveClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultPulsediveBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &PulsediveClient{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
	if cfg.RateLimit > 0 {
		c.rateLimiter = rate.NewLimiter(rate.Limit(float64(cfg.RateLimit)/60.0), 5)
	}
	return c
}

// PulsediveInfo is the subset of the info.php response the lookup engine reads.
// The complete body is kept verbatim in InfoResponse.Body for display.
type PulsediveInfo struct {
	Risk            string `json:"risk"`
	RiskRecommended string `json:"risk_recommended"`
	// Error is present whenever Pulsedive reports a failure, including misses
	Error json.RawMessage `json:"error,omitempty"`
}

// HasError reports whether the body carried an error field at all
func (i *PulsediveInfo) HasError() bool {
	return i != nil && len(i.Error) > 0
}

// ErrorText returns the error field as text; non-string payloads are returned raw
func (i *PulsediveInfo) ErrorText() string {
	if !i.HasError() {
		return ""
	}
	var s string
	if err := json.Unmarshal(i.Error, &s); err == nil {
		return s
	}
	return string(i.Error)
}

// IsMiss reports whether Pulsedive does not know the indicator
func (i *PulsediveInfo) IsMiss() bool {
	if !i.HasError() {
		return false
	}
	var s string
	if err := json.Unmarshal(i.Error, &s); err != nil {
		return false
	}
	return s == PulsediveNotFound
}

// InfoResponse is a completed info.php exchange. Info is nil when the body
// was not a JSON object.
type InfoResponse struct {
	StatusCode int
	Body       []byte
	Info       *PulsediveInfo
	DecodeErr  error
}

// Info queries Pulsedive for a single indicator. A non-nil error means the
// exchange itself failed; HTTP and provider errors are left to the caller.
func (c *PulsediveClient) Info(ctx context.Context, indicator, apiKey string) (*InfoResponse, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	params := url.Values{}
	params.Set("indicator", indicator)
	params.Set("pretty", "1")
	params.Set("key", apiKey)
	reqURL := c.baseURL + "/info.php?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return NewInfoResponse(resp.StatusCode, body), nil
}

// NewInfoResponse decodes a raw info.php body
func NewInfoResponse(statusCode int, body []byte) *InfoResponse {
	out := &InfoResponse{
		StatusCode: statusCode,
		Body:       body,
	}

	var info PulsediveInfo
	if err := json.Unmarshal(body, &info); err != nil {
		out.DecodeErr = fmt.Errorf("decode response: %w", err)
	} else {
		out.Info = &info
	}
	return out
}
