// Package vision asks a vision-language model to read trade levels off a
// chart screenshot.
//
// The model is instructed to answer with a JSON object; the free text it may
// add around that object is kept as Result.Raw but never interpreted.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"trading-journal-go/internal/config"
	"trading-journal-go/internal/models"

	"go.uber.org/zap"
)

// DefaultModel is the model used when the configuration does not name one.
const DefaultModel = "gemini-flash-latest"

// DefaultPrompt asks for the trade levels as a JSON object.
const DefaultPrompt = `Analyze this TradingView chart screenshot and extract the trade it shows:

1. Entry price (the level where the trade is entered)
2. Stop loss price
3. Take profit / target price
4. Position type (LONG or SHORT)
5. Trading pair, if visible

Look for annotations, lines, text labels or arrows that mark these levels.
Answer with a single JSON object and nothing else:
{"entry_price": number|null, "stop_loss": number|null, "take_profit": number|null,
 "position": "LONG"|"SHORT"|null, "pair": string|null}`

// keyCheckPrompt is sent by CheckKey.
const keyCheckPrompt = "Test connection. Reply with 'OK'"

// Confidence grades how complete an analysis is.
type Confidence string

const (
	High       Confidence = "High"
	MediumHigh Confidence = "Medium-High"
	Medium     Confidence = "Medium"
	Low        Confidence = "Low"
)

// Request is one chart to analyze.
type Request struct {
	APIKey   string
	Image    []byte
	MIMEType string
	Prompt   string
}

// Result is the structured reading of a chart. Levels the model could not
// find are nil; Side is empty when the position type is unknown.
type Result struct {
	Raw        string      `json:"raw_response"`
	EntryPrice *float64    `json:"entry_price,omitempty"`
	StopLoss   *float64    `json:"stop_loss,omitempty"`
	TakeProfit *float64    `json:"take_profit,omitempty"`
	Side       models.Side `json:"position_side,omitempty"`
	Pair       string      `json:"pair,omitempty"`
	Confidence Confidence  `json:"confidence"`
	Detected   []string    `json:"detected_values"`
}

// Analyzer is a vision backend.
type Analyzer interface {
	// Analyze sends the chart to the model and returns its reading.
	Analyze(ctx context.Context, req Request) (*Result, error)
	// CheckKey makes a minimal call with apiKey and returns the model's reply.
	CheckKey(ctx context.Context, apiKey string) (string, error)
}

// New returns the analyzer selected by cfg.Backend.
func New(cfg config.Vision, logger *zap.Logger) (Analyzer, error) {
	switch cfg.Backend {
	case "", "rest":
		return NewRestClient(cfg, logger), nil
	case "sdk":
		return NewSDKClient(cfg.Model, logger), nil
	}
	return nil, fmt.Errorf("unknown vision backend %q", cfg.Backend)
}

// ErrEmptyResponse is returned when the model answered without any text.
var ErrEmptyResponse = errors.New("empty response from model")

// LoadImage reads a screenshot from disk into a Request.
func LoadImage(path string) (Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Request{}, fmt.Errorf("failed to read image: %w", err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return Request{}, fmt.Errorf("unsupported image type %q", mime)
	}
	return Request{Image: data, MIMEType: mime, Prompt: DefaultPrompt}, nil
}

func (r Request) validate() error {
	if strings.TrimSpace(r.APIKey) == "" {
		return errors.New("api key is required")
	}
	if len(r.Image) == 0 {
		return errors.New("image is required")
	}
	return nil
}

func (r Request) prompt() string {
	if strings.TrimSpace(r.Prompt) == "" {
		return DefaultPrompt
	}
	return r.Prompt
}

// levels is the JSON object the model is asked to return.
type levels struct {
	EntryPrice *float64 `json:"entry_price"`
	StopLoss   *float64 `json:"stop_loss"`
	TakeProfit *float64 `json:"take_profit"`
	Position   *string  `json:"position"`
	Pair       *string  `json:"pair"`
}

// ParseResult extracts the JSON object from the model's answer. Prices that
// are not positive are treated as missing.
func ParseResult(raw string) (*Result, error) {
	res := &Result{Raw: raw, Detected: []string{}}

	body := raw
	start, end := strings.Index(body, "{"), strings.LastIndex(body, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in model response")
	}
	body = body[start : end+1]

	var lv levels
	if err := json.Unmarshal([]byte(body), &lv); err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}

	price := func(name string, v *float64) *float64 {
		if v == nil || *v <= 0 {
			return nil
		}
		res.Detected = append(res.Detected, fmt.Sprintf("%s: %.2f", name, *v))
		return v
	}
	res.EntryPrice = price("Entry Price", lv.EntryPrice)
	res.StopLoss = price("Stop Loss", lv.StopLoss)
	res.TakeProfit = price("Take Profit", lv.TakeProfit)
	if lv.Position != nil {
		if side, err := models.ParseSide(*lv.Position); err == nil {
			res.Side = side
			res.Detected = append(res.Detected, "Position: "+strings.ToUpper(string(side)))
		}
	}
	if lv.Pair != nil {
		res.Pair = strings.ToUpper(strings.TrimSpace(*lv.Pair))
	}
	res.Confidence = ConfidenceOf(res)
	return res, nil
}

// ConfidenceOf grades a result: all three levels and a side is High, all
// three levels is Medium-High, two levels is Medium, anything else Low.
func ConfidenceOf(r *Result) Confidence {
	n := 0
	for _, v := range []*float64{r.EntryPrice, r.StopLoss, r.TakeProfit} {
		if v != nil {
			n++
		}
	}
	switch {
	case n == 3 && r.Side != "":
		return High
	case n == 3:
		return MediumHigh
	case n == 2:
		return Medium
	}
	return Low
}
