// Package api exposes HTTP handlers for the ecotrack service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/ecotrack/internal/domain"
	"example.com/ecotrack/internal/emissions"
	"example.com/ecotrack/internal/forecast"
	"example.com/ecotrack/internal/gemini"
	"example.com/ecotrack/internal/observability"
	"example.com/ecotrack/internal/persistence"
	"example.com/ecotrack/internal/recommend"
)

// ActivityParser turns free-text descriptions into structured activities.
type ActivityParser interface {
	ParseActivity(ctx context.Context, text string) (*gemini.ParsedActivity, error)
}

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	service     *domain.Service
	recommender *recommend.Service
	catalog     *emissions.Catalog
	parser      ActivityParser
	defaultUser string
}

// Option configures optional Handler collaborators.
type Option func(*Handler)

// WithParser wires a language-model activity parser. Without one, free-text
// logging returns 503 and structured logging still works.
func WithParser(parser ActivityParser) Option {
	return func(h *Handler) {
		h.parser = parser
	}
}

// WithDefaultUser sets the user applied when requests omit user_id.
func WithDefaultUser(userID string) Option {
	return func(h *Handler) {
		h.defaultUser = userID
	}
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, recommender *recommend.Service, catalog *emissions.Catalog, opts ...Option) *Handler {
	h := &Handler{
		service:     service,
		recommender: recommender,
		catalog:     catalog,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, observability.InstrumentHandler(pattern, fn))
	}
	route("/v1/activity/log", h.logActivity)
	route("/v1/activity/history", h.history)
	route("/v1/emissions/daily", h.daily)
	route("/v1/emissions/weekly", h.weekly)
	route("/v1/emissions/summary", h.summary)
	route("/v1/emissions/predict", h.predict)
	route("/v1/recommendations", h.recommendations)
	route("/v1/factors", h.factors)
	route("/v1/factors/", h.factorsByCategory)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) logActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req LogActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = h.defaultUser
	}
	if userID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "user_id is required")
		return
	}

	input := domain.LogActivityInput{
		UserID:   userID,
		Category: domain.Category(strings.ToLower(strings.TrimSpace(req.Category))),
		Subtype:  req.Subtype,
		Amount:   req.Amount,
		Unit:     req.Unit,
	}
	if req.OccurredAt != nil {
		input.OccurredAt = *req.OccurredAt
	}

	parsedFromText := false
	if text := strings.TrimSpace(req.Text); text != "" {
		if h.parser == nil {
			writeError(w, http.StatusServiceUnavailable, "parser_unavailable", "free-text logging requires a configured language model")
			return
		}
		parsed, err := h.parser.ParseActivity(r.Context(), text)
		if err != nil {
			writeError(w, http.StatusBadGateway, "parse_failed", err.Error())
			return
		}
		input.Category = domain.Category(parsed.Category)
		input.Subtype = parsed.Subtype
		input.Amount = parsed.Amount
		input.Unit = parsed.Unit
		parsedFromText = true
	}

	record, method, err := h.service.LogActivity(r.Context(), input)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidActivity) || errors.Is(err, domain.ErrInvalidCategory) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, LogActivityResponse{
		Activity:       toActivityView(*record),
		Method:         method,
		ParsedFromText: parsedFromText,
	})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 100 {
				parsed = 100
			}
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	records, next, total, err := h.service.History(r.Context(), userID, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]ActivityView, 0, len(records))
	for _, record := range records {
		items = append(items, toActivityView(record))
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
		Total:      total,
	})
}

func (h *Handler) daily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	result, err := h.service.Daily(r.Context(), userID, day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, DailyEmissionsResponse{
		UserID:        userID,
		Date:          result.Day.Format("2006-01-02"),
		TotalKg:       result.TotalKg,
		ByCategory:    result.ByCategory,
		ActivityCount: result.ActivityCount,
	})
}

func (h *Handler) weekly(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	weekStart := time.Now().UTC().Add(-6 * 24 * time.Hour)
	if raw := r.URL.Query().Get("week_start"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "week_start must be YYYY-MM-DD")
			return
		}
		weekStart = parsed
	}

	result, err := h.service.Weekly(r.Context(), userID, weekStart)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	daily := make([]DailyTotalView, 0, len(result.Daily))
	for _, d := range result.Daily {
		daily = append(daily, DailyTotalView{Date: d.Day.Format("2006-01-02"), TotalKg: d.TotalKg})
	}

	writeJSON(w, http.StatusOK, WeeklyEmissionsResponse{
		UserID:        userID,
		WeekStart:     result.WeekStart.Format("2006-01-02"),
		WeekEnd:       result.WeekEnd.Format("2006-01-02"),
		TotalKg:       result.TotalKg,
		Daily:         daily,
		ByCategory:    result.ByCategory,
		ActivityCount: result.ActivityCount,
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	result, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SummaryResponse{
		UserID:        userID,
		TotalKg:       result.TotalKg,
		ByCategory:    result.ByCategory,
		ActivityCount: result.ActivityCount,
		FirstLoggedAt: result.FirstLoggedAt,
		LastLoggedAt:  result.LastLoggedAt,
	})
}

func (h *Handler) predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	daysAhead := 7
	if raw := r.URL.Query().Get("days_ahead"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 30 {
				parsed = 30
			}
			daysAhead = parsed
		}
	}

	series, err := h.service.DailySeries(r.Context(), userID, 90)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	result, err := forecast.Forecast(series, daysAhead)
	if err != nil {
		if errors.Is(err, forecast.ErrInsufficientHistory) {
			writeError(w, http.StatusBadRequest, "insufficient_history", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ForecastResponse{
		UserID:          userID,
		Predictions:     result.Predictions,
		NextTotalKg:     result.NextTotalKg,
		Trend:           result.Trend,
		RecentAverageKg: result.RecentAverageKg,
	})
}

func (h *Handler) recommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	response, err := h.recommender.Recommendations(r.Context(), userID, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) factors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	factors := h.catalog.Factors()
	writeJSON(w, http.StatusOK, FactorsResponse{Factors: factors, Count: len(factors)})
}

func (h *Handler) factorsByCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/v1/factors/")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing category")
		return
	}

	category, err := domain.ParseCategory(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	factors := h.catalog.FactorsByCategory(string(category))
	writeJSON(w, http.StatusOK, FactorsResponse{Factors: factors, Count: len(factors)})
}

// userID resolves the target user from the query string, falling back to the
// configured default. Writes a 400 and returns false when neither is set.
func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		userID = h.defaultUser
	}
	if userID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return "", false
	}
	return userID, true
}

// LogActivityRequest is the payload for POST /v1/activity/log. Either text or
// the structured fields must be provided.
type LogActivityRequest struct {
	UserID     string     `json:"user_id,omitempty"`
	Text       string     `json:"text,omitempty"`
	Category   string     `json:"category,omitempty"`
	Subtype    string     `json:"subtype,omitempty"`
	Amount     float64    `json:"amount,omitempty"`
	Unit       string     `json:"unit,omitempty"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// Validate ensures request correctness.
func (r LogActivityRequest) Validate() error {
	if strings.TrimSpace(r.Text) != "" {
		return nil
	}
	if strings.TrimSpace(r.Category) == "" {
		return errors.New("either text or category is required")
	}
	if strings.TrimSpace(r.Subtype) == "" {
		return errors.New("subtype is required")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be > 0")
	}
	return nil
}

// LogActivityResponse describes the response body for activity logging.
type LogActivityResponse struct {
	Activity       ActivityView `json:"activity"`
	Method         string       `json:"estimation_method"`
	ParsedFromText bool         `json:"parsed_from_text,omitempty"`
}

// ActivityView exposes full details about a logged activity.
type ActivityView struct {
	ActivityID string    `json:"activity_id"`
	UserID     string    `json:"user_id"`
	Category   string    `json:"category"`
	Subtype    string    `json:"subtype"`
	Amount     float64   `json:"amount"`
	Unit       string    `json:"unit"`
	CO2eKg     float64   `json:"co2e_kg"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryResponse packages list results.
type HistoryResponse struct {
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
	Total      int            `json:"total"`
}

// DailyEmissionsResponse breaks one day down by category.
type DailyEmissionsResponse struct {
	UserID        string                      `json:"user_id"`
	Date          string                      `json:"date"`
	TotalKg       float64                     `json:"total_kg"`
	ByCategory    map[domain.Category]float64 `json:"by_category"`
	ActivityCount int                         `json:"activity_count"`
}

// DailyTotalView is one day of the weekly series.
type DailyTotalView struct {
	Date    string  `json:"date"`
	TotalKg float64 `json:"total_kg"`
}

// WeeklyEmissionsResponse aggregates a seven day window.
type WeeklyEmissionsResponse struct {
	UserID        string                      `json:"user_id"`
	WeekStart     string                      `json:"week_start"`
	WeekEnd       string                      `json:"week_end"`
	TotalKg       float64                     `json:"total_kg"`
	Daily         []DailyTotalView            `json:"daily"`
	ByCategory    map[domain.Category]float64 `json:"by_category"`
	ActivityCount int                         `json:"activity_count"`
}

// SummaryResponse is the all-time aggregate for a user.
type SummaryResponse struct {
	UserID        string                      `json:"user_id"`
	TotalKg       float64                     `json:"total_kg"`
	ByCategory    map[domain.Category]float64 `json:"by_category"`
	ActivityCount int                         `json:"activity_count"`
	FirstLoggedAt *time.Time                  `json:"first_logged_at,omitempty"`
	LastLoggedAt  *time.Time                  `json:"last_logged_at,omitempty"`
}

// ForecastResponse carries the emission projection for the coming days.
type ForecastResponse struct {
	UserID          string           `json:"user_id"`
	Predictions     []forecast.Point `json:"predictions"`
	NextTotalKg     float64          `json:"next_days_total_kg"`
	Trend           string           `json:"trend"`
	RecentAverageKg float64          `json:"recent_average_kg"`
}

// FactorsResponse lists local emission factors.
type FactorsResponse struct {
	Factors []emissions.Factor `json:"factors"`
	Count   int                `json:"count"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toActivityView(record domain.ActivityRecord) ActivityView {
	return ActivityView{
		ActivityID: record.ID,
		UserID:     record.UserID,
		Category:   string(record.Category),
		Subtype:    record.Subtype,
		Amount:     record.Amount,
		Unit:       record.Unit,
		CO2eKg:     record.CO2eKg,
		OccurredAt: record.OccurredAt,
		CreatedAt:  record.CreatedAt,
	}
}
