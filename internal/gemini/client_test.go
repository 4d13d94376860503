package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"example.com/ecotrack/internal/retry"
)

func fastRetry() retry.Config {
	return retry.Config{
		MaxRetries:      1,
		BaseDelay:       time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffMultiple: 2.0,
	}
}

func candidateJSON(t *testing.T, text string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
	if err != nil {
		t.Fatalf("marshal candidate: %v", err)
	}
	return body
}

func TestParseActivityStructured(t *testing.T) {
	var gotPath, gotKey, gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) == 1 && len(req.Contents[0].Parts) == 1 {
			gotPrompt = req.Contents[0].Parts[0].Text
		}
		w.Write(candidateJSON(t, `{"category":"transportation","subtype":"car","amount":10,"unit":"miles","description":"Drove to work"}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	parsed, err := client.ParseActivity(context.Background(), "I drove 10 miles to work today")
	if err != nil {
		t.Fatalf("ParseActivity failed: %v", err)
	}

	if gotPath != "/models/gemini-2.0-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if !strings.Contains(gotPrompt, "I drove 10 miles to work today") {
		t.Errorf("prompt does not carry the activity text: %q", gotPrompt)
	}

	if parsed.Category != "transportation" || parsed.Subtype != "car" {
		t.Errorf("parsed triple = (%q, %q)", parsed.Category, parsed.Subtype)
	}
	if parsed.Amount != 10 || parsed.Unit != "miles" {
		t.Errorf("parsed amount = (%v, %q)", parsed.Amount, parsed.Unit)
	}
	if parsed.Description != "Drove to work" {
		t.Errorf("parsed description = %q", parsed.Description)
	}
}

func TestParseActivityAppliesDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(candidateJSON(t, `{"category":"spaceflight"}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	parsed, err := client.ParseActivity(context.Background(), "launched a rocket")
	if err != nil {
		t.Fatalf("ParseActivity failed: %v", err)
	}
	if parsed.Category != "other" {
		t.Errorf("unknown category mapped to %q, want other", parsed.Category)
	}
	if parsed.Subtype != "unknown" {
		t.Errorf("subtype = %q, want unknown", parsed.Subtype)
	}
	if parsed.Amount != 1.0 {
		t.Errorf("amount = %v, want 1.0", parsed.Amount)
	}
	if parsed.Unit != "unit" {
		t.Errorf("unit = %q, want unit", parsed.Unit)
	}
	if parsed.Description != "launched a rocket" {
		t.Errorf("description = %q, want original text", parsed.Description)
	}
}

func TestParseActivityNormalizesCase(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(candidateJSON(t, `{"category":"Transportation","subtype":"Car","amount":5,"unit":"Miles","description":"School run"}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	parsed, err := client.ParseActivity(context.Background(), "drove the kids to school, 5 miles")
	if err != nil {
		t.Fatalf("ParseActivity failed: %v", err)
	}
	if parsed.Category != "transportation" || parsed.Subtype != "car" || parsed.Unit != "miles" {
		t.Errorf("normalized triple = (%q, %q, %q)", parsed.Category, parsed.Subtype, parsed.Unit)
	}
}

func TestParseActivityStripsCodeFences(t *testing.T) {
	fenced := "```json\n{\"category\":\"food\",\"subtype\":\"beef\",\"amount\":0.5,\"unit\":\"kg\",\"description\":\"Burger\"}\n```"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(candidateJSON(t, fenced))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	parsed, err := client.ParseActivity(context.Background(), "ate a burger")
	if err != nil {
		t.Fatalf("ParseActivity failed: %v", err)
	}
	if parsed.Category != "food" || parsed.Amount != 0.5 {
		t.Errorf("parsed = (%q, %v)", parsed.Category, parsed.Amount)
	}
}

func TestParseActivityRejectsMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(candidateJSON(t, "sorry, I cannot help with that"))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	if _, err := client.ParseActivity(context.Background(), "did a thing"); err == nil {
		t.Fatal("expected error for non-JSON model output")
	}
}

func TestGenerateFallsBackThroughModelChain(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.Contains(r.URL.Path, "gemini-2.0-flash") {
			http.Error(w, "model not found", http.StatusNotFound)
			return
		}
		w.Write(candidateJSON(t, `{"category":"energy","subtype":"electricity","amount":12,"unit":"kwh","description":"Monthly bill"}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	parsed, err := client.ParseActivity(context.Background(), "used 12 kwh")
	if err != nil {
		t.Fatalf("ParseActivity failed: %v", err)
	}
	if parsed.Category != "energy" {
		t.Errorf("category = %q", parsed.Category)
	}
	if len(paths) != 2 {
		t.Fatalf("server saw %d calls, want 2: %v", len(paths), paths)
	}
	if !strings.Contains(paths[1], "gemini-1.5-flash") {
		t.Errorf("second call hit %q, want the next chain model", paths[1])
	}
}

func TestGenerateFailsWhenNoModelAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	_, err := client.ParseActivity(context.Background(), "did a thing")
	if !errors.Is(err, ErrNoModelAvailable) {
		t.Fatalf("err = %v, want ErrNoModelAvailable", err)
	}
}

func TestEnhanceRecommendation(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotPrompt = req.Contents[0].Parts[0].Text
		w.Write(candidateJSON(t, "  Cutting 25 miles a week is a great start!  "))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	text, err := client.EnhanceRecommendation(context.Background(), "Reduce Daily Driving", "Reduce driving by 25.0 miles/week", "High Transportation")
	if err != nil {
		t.Fatalf("EnhanceRecommendation failed: %v", err)
	}
	if text != "Cutting 25 miles a week is a great start!" {
		t.Errorf("text = %q, want trimmed rewrite", text)
	}
	if !strings.Contains(gotPrompt, "Reduce driving by 25.0 miles/week") {
		t.Errorf("prompt does not carry the original recommendation: %q", gotPrompt)
	}
	if !strings.Contains(gotPrompt, "High Transportation") {
		t.Errorf("prompt does not carry the archetype: %q", gotPrompt)
	}
}

func TestEnhanceRecommendationPropagatesFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRetryConfig(fastRetry()))
	if _, err := client.EnhanceRecommendation(context.Background(), "t", "d", "a"); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestStripFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  {\"a\":1}  ", "{\"a\":1}"},
	}
	for _, tc := range cases {
		if got := stripFences(tc.in); got != tc.want {
			t.Errorf("stripFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
