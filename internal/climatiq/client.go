// Package climatiq is a minimal client for the Climatiq estimate API.
package climatiq

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

	"example.com/ecotrack/internal/retry"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://api.climatiq.io"

// dataVersion pins the emission factor dataset the activity ids below were
// checked against.
const dataVersion = "^21"

// MapActivity resolves the Climatiq activity id for a local activity triple.
// Only a handful of triples have a vetted activity id; everything else should
// use the local factor catalog instead of a network call.
func MapActivity(category, subtype, unit string) (string, bool) {
	switch strings.ToLower(category + "/" + subtype + "/" + unit) {
	case "transportation/car/miles", "transportation/car/km":
		return "passenger_vehicle-vehicle_type_car-fuel_source_na-distance_na-engine_size_na", true
	case "food/beef/kg", "food/beef/lbs":
		return "food-beef", true
	case "energy/electricity/kwh", "energy/electricity/kilowatt-hour":
		return "electricity-energy_source_grid_mix", true
	default:
		return "", false
	}
}

// Client calls the Climatiq REST API.
type Client struct {
	baseURL    string
	apiKey     string
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
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retryCfg: retry.DefaultConfig(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type estimateRequest struct {
	EmissionFactor emissionFactor `json:"emission_factor"`
	Parameters     parameters     `json:"parameters"`
}

type emissionFactor struct {
	ActivityID  string `json:"activity_id"`
	DataVersion string `json:"data_version"`
}

type parameters struct {
	Distance     *float64 `json:"distance,omitempty"`
	DistanceUnit string   `json:"distance_unit,omitempty"`
	Energy       *float64 `json:"energy,omitempty"`
	EnergyUnit   string   `json:"energy_unit,omitempty"`
	Weight       *float64 `json:"weight,omitempty"`
	WeightUnit   string   `json:"weight_unit,omitempty"`
}

type estimateResponse struct {
	CO2e     float64 `json:"co2e"`
	CO2eUnit string  `json:"co2e_unit"`
}

// buildParameters picks the Climatiq parameter family for the unit and
// converts imperial amounts to the metric units the API expects.
func buildParameters(amount float64, unit string) (parameters, error) {
	switch strings.ToLower(unit) {
	case "miles":
		km := amount * 1.60934
		return parameters{Distance: &km, DistanceUnit: "km"}, nil
	case "km", "kilometers":
		return parameters{Distance: &amount, DistanceUnit: "km"}, nil
	case "kwh", "kilowatt-hour", "kilowatt-hours":
		return parameters{Energy: &amount, EnergyUnit: "kWh"}, nil
	case "lbs", "pounds":
		kg := amount * 0.453592
		return parameters{Weight: &kg, WeightUnit: "kg"}, nil
	case "kg", "kilograms":
		return parameters{Weight: &amount, WeightUnit: "kg"}, nil
	default:
		return parameters{}, fmt.Errorf("no climatiq parameter for unit %q", unit)
	}
}

// statusError carries an HTTP failure so the retry policy can tell transient
// server trouble from permanent request errors.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("climatiq: status %d: %s", e.code, e.body)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	// Network-level failure.
	return true
}

// Estimate submits one estimate request and returns CO2e in kilograms.
func (c *Client) Estimate(ctx context.Context, activityID string, amount float64, unit string) (float64, error) {
	params, err := buildParameters(amount, unit)
	if err != nil {
		return 0, err
	}

	body, err := json.Marshal(estimateRequest{
		EmissionFactor: emissionFactor{ActivityID: activityID, DataVersion: dataVersion},
		Parameters:     params,
	})
	if err != nil {
		return 0, err
	}

	var co2eKg float64
	err = retry.Do(ctx, c.retryCfg, retryable, func() error {
		kg, err := c.estimateOnce(ctx, body)
		if err != nil {
			c.logger.Debug().Err(err).Str("activity_id", activityID).Msg("climatiq estimate attempt failed")
			return err
		}
		co2eKg = kg
		return nil
	})
	if err != nil {
		return 0, err
	}
	return co2eKg, nil
}

func (c *Client) estimateOnce(ctx context.Context, body []byte) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/data/v1/estimate", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(data))}
	}

	var payload estimateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode estimate response: %w", err)
	}
	switch {
	case strings.EqualFold(payload.CO2eUnit, "g"):
		return payload.CO2e / 1000, nil
	case strings.EqualFold(payload.CO2eUnit, "t"):
		return payload.CO2e * 1000, nil
	default:
		return payload.CO2e, nil
	}
}
