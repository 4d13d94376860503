package climatiq

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/ecotrack/internal/retry"
)

func fastRetry() retry.Config {
	return retry.Config{
		MaxRetries:      2,
		BaseDelay:       time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffMultiple: 2.0,
	}
}

func TestMapActivity(t *testing.T) {
	cases := []struct {
		category string
		subtype  string
		unit     string
		wantID   string
		wantOK   bool
	}{
		{"transportation", "car", "miles", "passenger_vehicle-vehicle_type_car-fuel_source_na-distance_na-engine_size_na", true},
		{"transportation", "car", "km", "passenger_vehicle-vehicle_type_car-fuel_source_na-distance_na-engine_size_na", true},
		{"food", "beef", "kg", "food-beef", true},
		{"food", "beef", "lbs", "food-beef", true},
		{"energy", "electricity", "kwh", "electricity-energy_source_grid_mix", true},
		{"energy", "electricity", "kilowatt-hour", "electricity-energy_source_grid_mix", true},
		{"Transportation", "Car", "Miles", "passenger_vehicle-vehicle_type_car-fuel_source_na-distance_na-engine_size_na", true},
		{"transportation", "bicycle", "miles", "", false},
		{"food", "chicken", "kg", "", false},
	}
	for _, tc := range cases {
		id, ok := MapActivity(tc.category, tc.subtype, tc.unit)
		if ok != tc.wantOK || id != tc.wantID {
			t.Errorf("MapActivity(%q, %q, %q) = (%q, %v), want (%q, %v)",
				tc.category, tc.subtype, tc.unit, id, ok, tc.wantID, tc.wantOK)
		}
	}
}

func TestEstimateBuildsDistanceRequest(t *testing.T) {
	var captured estimateRequest
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/v1/estimate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(estimateResponse{CO2e: 12.5, CO2eUnit: "kg"})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	kg, err := client.Estimate(context.Background(), "passenger_vehicle-vehicle_type_car-fuel_source_na-distance_na-engine_size_na", 10, "miles")
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if kg != 12.5 {
		t.Errorf("co2e = %v, want 12.5", kg)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization header = %q", gotAuth)
	}
	if captured.EmissionFactor.ActivityID != "passenger_vehicle-vehicle_type_car-fuel_source_na-distance_na-engine_size_na" {
		t.Errorf("activity id = %q", captured.EmissionFactor.ActivityID)
	}
	if captured.EmissionFactor.DataVersion != "^21" {
		t.Errorf("data version = %q", captured.EmissionFactor.DataVersion)
	}
	if captured.Parameters.Distance == nil {
		t.Fatal("distance parameter missing")
	}
	if math.Abs(*captured.Parameters.Distance-16.0934) > 1e-9 {
		t.Errorf("distance = %v, want 16.0934", *captured.Parameters.Distance)
	}
	if captured.Parameters.DistanceUnit != "km" {
		t.Errorf("distance unit = %q", captured.Parameters.DistanceUnit)
	}
	if captured.Parameters.Energy != nil || captured.Parameters.Weight != nil {
		t.Error("unexpected extra parameter families in request")
	}
}

func TestEstimateBuildsWeightRequestFromPounds(t *testing.T) {
	var captured estimateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(estimateResponse{CO2e: 5.4, CO2eUnit: "kg"})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	if _, err := client.Estimate(context.Background(), "food-beef", 2, "lbs"); err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if captured.Parameters.Weight == nil {
		t.Fatal("weight parameter missing")
	}
	if math.Abs(*captured.Parameters.Weight-0.907184) > 1e-9 {
		t.Errorf("weight = %v, want 0.907184", *captured.Parameters.Weight)
	}
	if captured.Parameters.WeightUnit != "kg" {
		t.Errorf("weight unit = %q", captured.Parameters.WeightUnit)
	}
}

func TestEstimateBuildsEnergyRequest(t *testing.T) {
	var captured estimateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(estimateResponse{CO2e: 7.5, CO2eUnit: "kg"})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	if _, err := client.Estimate(context.Background(), "electricity-energy_source_grid_mix", 15, "kwh"); err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if captured.Parameters.Energy == nil {
		t.Fatal("energy parameter missing")
	}
	if *captured.Parameters.Energy != 15 {
		t.Errorf("energy = %v, want 15", *captured.Parameters.Energy)
	}
	if captured.Parameters.EnergyUnit != "kWh" {
		t.Errorf("energy unit = %q", captured.Parameters.EnergyUnit)
	}
}

func TestEstimateConvertsGramsToKilograms(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(estimateResponse{CO2e: 2500, CO2eUnit: "g"})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	kg, err := client.Estimate(context.Background(), "food-beef", 1, "kg")
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if kg != 2.5 {
		t.Errorf("co2e = %v, want 2.5", kg)
	}
}

func TestEstimateRejectsUnknownUnit(t *testing.T) {
	client := NewClient("test-key", WithRetryConfig(fastRetry()))
	if _, err := client.Estimate(context.Background(), "food-beef", 1, "bushels"); err == nil {
		t.Fatal("expected error for unsupported unit")
	}
}

func TestEstimateRetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(estimateResponse{CO2e: 1.1, CO2eUnit: "kg"})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	kg, err := client.Estimate(context.Background(), "food-beef", 1, "kg")
	if err != nil {
		t.Fatalf("Estimate failed after retries: %v", err)
	}
	if kg != 1.1 {
		t.Errorf("co2e = %v, want 1.1", kg)
	}
	if calls != 3 {
		t.Errorf("server saw %d calls, want 3", calls)
	}
}

func TestEstimateDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":"bad_request"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	if _, err := client.Estimate(context.Background(), "food-beef", 1, "kg"); err == nil {
		t.Fatal("expected error for 400 response")
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want 1", calls)
	}
}
