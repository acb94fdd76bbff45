package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"trading-journal-go/internal/config"

	"github.com/PaesslerAG/jsonpath"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const textPath = "$.candidates[0].content.parts[0].text"

// RestClient calls the Gemini generateContent endpoint over plain HTTP.
type RestClient struct {
	client     *resty.Client
	model      string
	maxRetries int
	logger     *zap.Logger
	limiter    *rate.Limiter
}

// ensure RestClient implements the interface
var _ Analyzer = (*RestClient)(nil)

// NewRestClient creates a REST vision client.
func NewRestClient(cfg config.Vision, logger *zap.Logger) *RestClient {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}

	return &RestClient{
		client:     resty.New().SetBaseURL(cfg.BaseURL),
		model:      model,
		maxRetries: retries,
		logger:     logger.Named("vision"),
		// rate.Limit is requests per second.
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents []struct {
		Parts []part `json:"parts"`
	} `json:"contents"`
	GenerationConfig map[string]any `json:"generationConfig,omitempty"`
}

func newGenerateRequest(parts []part, jsonOutput bool) generateRequest {
	var body generateRequest
	body.Contents = append(body.Contents, struct {
		Parts []part `json:"parts"`
	}{Parts: parts})
	if jsonOutput {
		body.GenerationConfig = map[string]any{"responseMimeType": "application/json"}
	}
	return body
}

// Analyze sends the chart and prompt and parses the model's answer.
func (c *RestClient) Analyze(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	body := newGenerateRequest([]part{
		{Text: req.prompt()},
		{InlineData: &inlineData{MIMEType: req.MIMEType, Data: base64.StdEncoding.EncodeToString(req.Image)}},
	}, true)

	c.logger.Info("Analyzing chart", zap.String("model", c.model), zap.Int("image_bytes", len(req.Image)))
	text, err := c.generate(ctx, req.APIKey, body)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze chart: %w", err)
	}

	res, err := ParseResult(text)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Chart analyzed", zap.String("confidence", string(res.Confidence)))
	return res, nil
}

// CheckKey sends a one-line prompt with apiKey.
func (c *RestClient) CheckKey(ctx context.Context, apiKey string) (string, error) {
	text, err := c.generate(ctx, apiKey, newGenerateRequest([]part{{Text: keyCheckPrompt}}, false))
	if err != nil {
		return "", fmt.Errorf("API key test failed: %w", err)
	}
	return text, nil
}

// generate posts body and returns the text of the first candidate.
func (c *RestClient) generate(ctx context.Context, apiKey string, body generateRequest) (string, error) {
	req := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", apiKey).
		SetBody(body)

	resp, err := c.doRequest(ctx, http.MethodPost, "/models/"+c.model+":generateContent", req)
	if err != nil {
		return "", err
	}

	var doc any
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	v, err := jsonpath.Get(textPath, doc)
	if err != nil {
		return "", ErrEmptyResponse
	}
	// jsonpath may wrap a single match in a list
	if list, ok := v.([]any); ok && len(list) > 0 {
		v = list[0]
	}
	text, ok := v.(string)
	if !ok || text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	for i := 0; i < c.maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, err := strconv.Atoi(resp.Header().Get("Retry-After")); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
		} else if ctx.Err() == nil {
			shouldRetry = true
		}

		if !shouldRetry {
			if err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}
		if i == c.maxRetries-1 {
			break
		}

		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err == nil && resp != nil {
		err = fmt.Errorf("status %s", resp.Status())
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, err)
}
