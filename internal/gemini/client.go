// Package gemini is a minimal client for the Gemini generateContent API.
//
// It backs two features: turning free-text activity descriptions into
// structured records, and rewriting rule-based recommendation text. Both are
// best-effort; callers degrade to their non-LLM behavior on any error.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"example.com/ecotrack/internal/domain"
	"example.com/ecotrack/internal/observability"
	"example.com/ecotrack/internal/retry"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// DefaultModels is the model fallback chain, tried in order. Models the API
// key cannot access are skipped.
var DefaultModels = []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro"}

// ErrNoModelAvailable means every model in the chain was rejected.
var ErrNoModelAvailable = errors.New("gemini: no model in the chain is available")

// ParsedActivity is the structured form extracted from a free-text activity
// description.
type ParsedActivity struct {
	Category    string  `json:"category"`
	Subtype     string  `json:"subtype"`
	Amount      float64 `json:"amount"`
	Unit        string  `json:"unit"`
	Description string  `json:"description"`
}

// Client calls the Gemini REST API.
type Client struct {
	baseURL    string
	apiKey     string
	models     []string
	httpClient *http.Client
	retryCfg   retry.Config
	logger     zerolog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API host, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithModels overrides the model fallback chain.
func WithModels(models []string) Option {
	return func(c *Client) {
		if len(models) > 0 {
			c.models = models
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRetryConfig overrides the backoff schedule.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) {
		c.retryCfg = cfg
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs a client with sane defaults.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		models:  DefaultModels,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryCfg: retry.DefaultConfig(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParseActivity extracts a structured activity from free text.
func (c *Client) ParseActivity(ctx context.Context, text string) (*ParsedActivity, error) {
	parsed, err := c.parseActivity(ctx, text)
	observability.RecordGeminiCall("parse_activity", err == nil)
	return parsed, err
}

func (c *Client) parseActivity(ctx context.Context, text string) (*ParsedActivity, error) {
	raw, err := c.generate(ctx, parsePrompt(text))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Category    string   `json:"category"`
		Subtype     string   `json:"subtype"`
		Amount      *float64 `json:"amount"`
		Unit        string   `json:"unit"`
		Description string   `json:"description"`
	}
	cleaned := stripFences(raw)
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("gemini: parse activity response is not valid JSON: %w", err)
	}

	parsed := &ParsedActivity{
		Category:    "other",
		Subtype:     "unknown",
		Amount:      1.0,
		Unit:        "unit",
		Description: text,
	}
	if category, err := domain.ParseCategory(payload.Category); err == nil {
		parsed.Category = string(category)
	}
	if subtype := strings.ToLower(strings.TrimSpace(payload.Subtype)); subtype != "" {
		parsed.Subtype = subtype
	}
	if payload.Amount != nil {
		parsed.Amount = *payload.Amount
	}
	if unit := strings.ToLower(strings.TrimSpace(payload.Unit)); unit != "" {
		parsed.Unit = unit
	}
	if description := strings.TrimSpace(payload.Description); description != "" {
		parsed.Description = description
	}
	return parsed, nil
}

// EnhanceRecommendation rewrites a rule-based recommendation into friendlier
// text. Callers keep the original text when this fails.
func (c *Client) EnhanceRecommendation(ctx context.Context, title, description, archetype string) (string, error) {
	rewritten, err := c.generate(ctx, enhancePrompt(title, description, archetype))
	observability.RecordGeminiCall("enhance_recommendation", err == nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(rewritten), nil
}

func parsePrompt(text string) string {
	return fmt.Sprintf(`Parse the following activity description into structured JSON format.
Extract: category, subtype, amount, unit, and a brief description.

Activity description: %q

Return ONLY valid JSON in this exact format:
{
    "category": "transportation|food|energy|waste|other",
    "subtype": "specific activity type (e.g., car, beef, electricity)",
    "amount": <number>,
    "unit": "miles|kg|kwh|therms|etc",
    "description": "brief description"
}

If the amount cannot be determined, use 1.0 as default.
If the unit cannot be determined, infer from context or use "unit".`, text)
}

func enhancePrompt(title, description, archetype string) string {
	return fmt.Sprintf(`Rewrite this carbon reduction recommendation in a friendly, encouraging, and engaging way.
Keep the key information (numbers, actions) but make it more conversational and motivating.

Recommendation title: %q
User archetype: %q
Original recommendation: %q

Return only the rewritten recommendation text, nothing else.`, title, archetype, description)
}

// stripFences removes a surrounding markdown code block, which the model adds
// despite the prompt asking for bare JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	}
	if strings.HasPrefix(s, "```") {
		s = s[3:]
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-3]
	}
	return strings.TrimSpace(s)
}

type generateRequest struct {
	Contents []requestContent `json:"contents"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// statusError carries an HTTP failure so the model chain and retry policy can
// tell missing models and transient trouble apart.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gemini: status %d: %s", e.code, e.body)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

func modelUnavailable(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

// generate walks the model chain until one produces text.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	for _, model := range c.models {
		var text string
		err := retry.Do(ctx, c.retryCfg, retryable, func() error {
			out, err := c.generateOnce(ctx, model, prompt)
			if err != nil {
				return err
			}
			text = out
			return nil
		})
		if err == nil {
			return text, nil
		}
		if modelUnavailable(err) {
			c.logger.Debug().Str("model", model).Msg("gemini model unavailable, trying next")
			continue
		}
		return "", err
	}
	return "", ErrNoModelAvailable
}

func (c *Client) generateOnce(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []requestContent{{Parts: []requestPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(data))}
	}

	var payload generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if len(payload.Candidates) == 0 || len(payload.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: response has no candidates")
	}
	return payload.Candidates[0].Content.Parts[0].Text, nil
}
