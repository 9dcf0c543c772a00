package backend

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-image-1"
	openAIDefaultSize  = "1024x1024"
)

// OpenAIConfig holds configuration for the OpenAI image client.
type OpenAIConfig struct {
	APIKey     string
	Model      string        // "gpt-image-1" (default)
	Size       string        // API render size, "1024x1024" (default)
	Quality    string        // "low", "medium", "high" (provider default when empty)
	RateLimit  int           // Requests per minute
	Timeout    time.Duration // HTTP timeout per generation call
	BaseURL    string        // Optional (tests)
	HTTPClient *http.Client  // Optional (tests)
}

// OpenAIClient implements Backend using the official OpenAI SDK.
// The SDK's own transport retries are disabled; retries belong to
// RetryPolicy where backoff is kind-aware.
type OpenAIClient struct {
	model   string
	size    string
	quality string
	limiter *RateLimiter
	client  openai.Client
}

// NewOpenAIClient creates a new OpenAI image backend.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.Size == "" {
		cfg.Size = openAIDefaultSize
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 180 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		model:   cfg.Model,
		size:    cfg.Size,
		quality: cfg.Quality,
		limiter: NewRateLimiter(cfg.RateLimit),
		client:  openai.NewClient(opts...),
	}
}

// Name returns the backend identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// LimiterStatus exposes rate limiter state for /status.
func (c *OpenAIClient) LimiterStatus() RateLimiterStatus {
	return c.limiter.Status()
}

// Generate produces one page image via the Images API.
func (c *OpenAIClient) Generate(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || req.Prompt == "" {
		return nil, Fatal("prompt is required", nil)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, Transient("rate limiter wait interrupted", err)
	}

	params := openai.ImageGenerateParams{
		Prompt: req.Prompt,
		Model:  openai.ImageModel(c.model),
		Size:   openai.ImageGenerateParamsSize(c.size),
		N:      openai.Int(1),
	}
	if c.quality != "" {
		params.Quality = openai.ImageGenerateParamsQuality(c.quality)
	}

	resp, err := c.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, c.classify(err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, Fatal("images response contained no data", nil)
	}

	b64 := resp.Data[0].B64JSON
	if b64 == "" {
		return nil, Fatal("images response contained no payload", nil)
	}
	img, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, Fatal("images response payload was not base64", err)
	}
	if len(img) == 0 {
		return nil, Fatal("images response payload was empty", nil)
	}

	return &Result{Image: img}, nil
}

// classify maps SDK and transport failures onto the error taxonomy.
func (c *OpenAIClient) classify(err error) *Error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			c.limiter.Record429(retryAfter)
			e := RateLimited(fmt.Sprintf("openai rate limited: %s", apiErr.Message), retryAfter)
			e.StatusCode = apiErr.StatusCode
			return e
		case apiErr.StatusCode >= 500:
			e := Transient(fmt.Sprintf("openai server error: %s", apiErr.Message), err)
			e.StatusCode = apiErr.StatusCode
			return e
		default:
			// 400s: bad key, content policy, malformed request.
			e := Fatal(fmt.Sprintf("openai rejected request (status %d): %s", apiErr.StatusCode, apiErr.Message), err)
			e.StatusCode = apiErr.StatusCode
			return e
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Transient("openai call timed out", err)
	}
	return Transient("openai call failed", err)
}

// parseRetryAfter handles the delay-seconds form of the header.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

var _ Backend = (*OpenAIClient)(nil)
