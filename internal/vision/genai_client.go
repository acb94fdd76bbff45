package vision

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// SDKClient calls the model through the official Gen AI SDK. A client is
// created per call because the API key belongs to the active profile.
type SDKClient struct {
	model       string
	httpOptions genai.HTTPOptions
	logger      *zap.Logger
}

var _ Analyzer = (*SDKClient)(nil)

// SDKOption configures an SDKClient.
type SDKOption func(*SDKClient)

// WithHTTPOptions overrides the SDK's HTTP options, e.g. its base URL.
func WithHTTPOptions(opts genai.HTTPOptions) SDKOption {
	return func(c *SDKClient) { c.httpOptions = opts }
}

// NewSDKClient creates an SDK backed analyzer for model.
func NewSDKClient(model string, logger *zap.Logger, opts ...SDKOption) *SDKClient {
	if model == "" {
		model = DefaultModel
	}
	c := &SDKClient{model: model, logger: logger.Named("vision-sdk")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *SDKClient) newClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: c.httpOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	return client, nil
}

// Analyze sends the chart and prompt and parses the model's answer.
func (c *SDKClient) Analyze(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	client, err := c.newClient(ctx, req.APIKey)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(req.prompt()),
			genai.NewPartFromBytes(req.Image, req.MIMEType),
		}, genai.RoleUser),
	}
	c.logger.Info("Analyzing chart", zap.String("model", c.model), zap.Int("image_bytes", len(req.Image)))
	resp, err := client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to analyze chart: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}
	return ParseResult(text)
}

// CheckKey sends a one-line prompt with apiKey.
func (c *SDKClient) CheckKey(ctx context.Context, apiKey string) (string, error) {
	client, err := c.newClient(ctx, apiKey)
	if err != nil {
		return "", err
	}
	resp, err := client.Models.GenerateContent(ctx, c.model, genai.Text(keyCheckPrompt), nil)
	if err != nil {
		return "", fmt.Errorf("API key test failed: %w", err)
	}
	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}
