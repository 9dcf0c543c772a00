// Package vision turns the uploaded reference photo into a short
// appearance description used for character consistency across pages.
package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/fablepress/fable/internal/imaging"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 30 * time.Second

	// maxDescriptionTokens keeps the hint short enough to embed in
	// every page prompt.
	maxDescriptionTokens = 150

	describePrompt = "Describe this child's appearance for a storybook illustrator " +
		"in one short sentence: hair color and style, eye color, skin tone, and any " +
		"distinctive features such as glasses or freckles. Do not guess a name or age."
)

// Describer produces an appearance hint from a photo. Implementations
// are best-effort: the pipeline treats any failure as an empty hint.
type Describer interface {
	Describe(ctx context.Context, photo []byte) (string, error)
}

// Config holds configuration for the OpenAI describer.
type Config struct {
	APIKey     string
	Model      string        // "gpt-4o-mini" (default)
	Timeout    time.Duration // Per-call deadline
	BaseURL    string        // Optional (tests)
	HTTPClient *http.Client  // Optional (tests)
}

// OpenAIDescriber implements Describer with one vision chat call.
type OpenAIDescriber struct {
	model   string
	timeout time.Duration
	client  openai.Client
}

// NewOpenAIDescriber creates a describer backed by the OpenAI API.
func NewOpenAIDescriber(cfg Config) *OpenAIDescriber {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
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

	return &OpenAIDescriber{
		model:   cfg.Model,
		timeout: cfg.Timeout,
		client:  openai.NewClient(opts...),
	}
}

// Describe uploads a downscaled copy of the photo and returns the
// model's one-sentence description.
func (d *OpenAIDescriber) Describe(ctx context.Context, photo []byte) (string, error) {
	if len(photo) == 0 {
		return "", fmt.Errorf("photo is required")
	}

	small, err := imaging.ForAnalysis(photo)
	if err != nil {
		return "", fmt.Errorf("failed to prepare photo for analysis: %w", err)
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(small)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resp, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(d.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(describePrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
		MaxTokens: openai.Int(maxDescriptionTokens),
	})
	if err != nil {
		return "", fmt.Errorf("vision call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision response contained no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var _ Describer = (*OpenAIDescriber)(nil)
