package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"jobprep-backend/internal/ai"
	"jobprep-backend/internal/shared/telemetry"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultMaxRetries = 2
	baseBackoff       = 500 * time.Millisecond
)

// pause blocks for d or until ctx ends. Swapped out in tests.
var pause = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// modelsAPI is the subset of *genai.Models the client calls.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements ai.Gateway on the Gemini API.
type Client struct {
	models     modelsAPI
	model      string
	maxRetries int
}

// NewClient creates a Client configured for the Gemini API backend.
func NewClient(ctx context.Context, apiKey, model string, maxRetries int) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newClient(client.Models, model, maxRetries), nil
}

func newClient(models modelsAPI, model string, maxRetries int) *Client {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Client{models: models, model: model, maxRetries: maxRetries}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

func (c *Client) GenerateText(ctx context.Context, req ai.Request) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}
	return c.generate(ctx, genai.Text(prompt), req.SystemInstruction)
}

func (c *Client) GenerateFromDocument(ctx context.Context, doc ai.Document, req ai.Request) (string, error) {
	if len(doc.Data) == 0 {
		return "", errors.New("document must not be empty")
	}
	mimeType := strings.TrimSpace(doc.MimeType)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = "Extract and parse all information from this document."
	}
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(doc.Data, mimeType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	return c.generate(ctx, contents, req.SystemInstruction)
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content, system string) (string, error) {
	var cfg *genai.GenerateContentConfig
	if system = strings.TrimSpace(system); system != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
		if err == nil {
			return collectText(resp)
		}
		lastErr = err
		if attempt == c.maxRetries || !isTemporary(err) || ctx.Err() != nil {
			break
		}
		wait := baseBackoff * time.Duration(attempt)
		telemetry.Warn("gemini.retry", map[string]any{
			"attempt": attempt,
			"wait_ms": wait.Milliseconds(),
			"model":   c.model,
			"error":   err,
		})
		if err := pause(ctx, wait); err != nil {
			return "", fmt.Errorf("generate content: %w", err)
		}
	}
	return "", fmt.Errorf("generate content: %w", lastErr)
}

func collectText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned no response")
	}
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}
	return output, nil
}

// isTemporary reports rate limiting and server-side failures.
func isTemporary(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Code >= http.StatusInternalServerError
	}
	return false
}

var _ ai.Gateway = (*Client)(nil)
