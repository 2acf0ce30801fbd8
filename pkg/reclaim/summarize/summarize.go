// Package summarize describes files that need review using a hosted
// text-generation model.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jamesainslie/reclaim/pkg/reclaim/config"
	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

const (
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv = "ANTHROPIC_API_KEY"

	maxTokens      = 1024
	requestTimeout = 60 * time.Second

	// NoReviewMessage is returned without a request when nothing needs review.
	NoReviewMessage = "No files need review."

	// NoSummaryMessage is returned when the response carries no text.
	NoSummaryMessage = "No summary generated."

	promptTemplate = "You are analyzing files in a folder that need review before deletion.\n" +
		"Here are the file paths:\n\n%s\n\n" +
		"Provide a concise summary:\n" +
		"1. What types of files are present?\n" +
		"2. Are there any files that seem important?\n" +
		"3. Overall safety assessment for deletion\n\n" +
		"Keep response under 200 words."
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New(APIKeyEnv + " environment variable not set")

// Options configures a Client.
type Options struct {
	// APIKey defaults to $ANTHROPIC_API_KEY.
	APIKey  string
	Model   string
	BaseURL string

	// MaxRetries overrides the SDK's retry count for transient failures
	// when non-negative. Nil keeps the SDK default.
	MaxRetries *int

	HTTPClient *http.Client
}

// Client calls the messages API.
type Client struct {
	apiKey string
	model  string
	api    anthropic.Client
}

// New returns a Client. A missing API key is reported on first use so the
// rest of the tool works without one.
func New(opts Options) *Client {
	c := &Client{apiKey: opts.APIKey, model: opts.Model}
	if c.apiKey == "" {
		c.apiKey = os.Getenv(APIKeyEnv)
	}
	if c.model == "" {
		c.model = config.DefaultSummarizeModel
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultSummarizeBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(c.apiKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(requestTimeout),
	}
	if opts.MaxRetries != nil {
		reqOpts = append(reqOpts, option.WithMaxRetries(*opts.MaxRetries))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	c.api = anthropic.NewClient(reqOpts...)
	return c
}

// FromConfig returns a Client for the summarize section of cfg.
func FromConfig(cfg config.SummarizeConfig) *Client {
	return New(Options{Model: cfg.Model, BaseURL: cfg.BaseURL})
}

// Summarize describes the NeedsReview bucket of result.
func (c *Client) Summarize(ctx context.Context, result *types.TriageResult) (string, error) {
	paths := make([]string, 0, len(result.NeedsReview))
	for _, item := range result.NeedsReview {
		paths = append(paths, item.Path)
	}
	return c.SummarizePaths(ctx, paths)
}

// SummarizePaths describes the given file paths.
func (c *Client) SummarizePaths(ctx context.Context, paths []string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}
	if len(paths) == 0 {
		return NoReviewMessage, nil
	}

	logging.Get("summarize").Debug("requesting summary", "files", len(paths), "model", c.model)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(Prompt(paths))),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("API error %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("API request failed: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return NoSummaryMessage, nil
}

// Prompt builds the request prompt for paths.
func Prompt(paths []string) string {
	return fmt.Sprintf(promptTemplate, strings.Join(paths, "\n"))
}
