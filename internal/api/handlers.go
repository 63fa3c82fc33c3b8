// Package api exposes HTTP handlers for the insights service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ithrive360/insights-service/internal/auth"
	"github.com/ithrive360/insights-service/internal/domain"
)

// Handler coordinates HTTP requests with the domain loader.
type Handler struct {
	loader *domain.Loader
}

// NewHandler builds a Handler.
func NewHandler(loader *domain.Loader) *Handler {
	return &Handler{loader: loader}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/insights", h.insights)
	mux.HandleFunc("/v1/dashboard", h.dashboard)
	mux.HandleFunc("/v1/recommendations/selection", h.selection)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) insights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := readClaims(w, r)
	if !ok {
		return
	}

	view, err := h.loader.LoadAreaInsights(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toAreaInsightsResponse(view))
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := readClaims(w, r)
	if !ok {
		return
	}

	view, err := h.loader.LoadDashboard(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toDashboardResponse(view))
}

func (h *Handler) selection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeInsightsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope insights:write required")
		return
	}

	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	if err := h.loader.ToggleRecommendation(r.Context(), claims.Subject, req.Category, req.Text, req.Selected); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SelectionResponse{
		Category: req.Category,
		Text:     req.Text,
		Selected: req.Selected,
	})
}

func readClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !claims.HasScope(auth.ScopeInsightsRead) && !claims.HasScope(auth.ScopeInsightsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope insights:read required")
		return nil, false
	}
	return claims, true
}

// SelectionRequest is the payload for PUT /v1/recommendations/selection.
type SelectionRequest struct {
	Category string `json:"category"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
}

// Validate ensures request correctness.
func (r SelectionRequest) Validate() error {
	if strings.TrimSpace(r.Category) == "" {
		return errors.New("category is required")
	}
	if strings.TrimSpace(r.Text) == "" {
		return errors.New("text is required")
	}
	return nil
}

// SelectionResponse echoes the stored toggle state.
type SelectionResponse struct {
	Category string `json:"category"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
}

// AreaInsightView exposes one health area's insight to clients.
type AreaInsightView struct {
	HealthAreaID    string                             `json:"health_area_id"`
	HealthAreaName  string                             `json:"health_area_name"`
	Summary         string                             `json:"summary"`
	Score           *int                               `json:"score"`
	BloodMarkers    []domain.Finding                   `json:"blood_markers"`
	DNATraits       []domain.Finding                   `json:"dna_traits"`
	Recommendations map[string][]domain.Recommendation `json:"recommendations"`
}

// AreaInsightsResponse packages the full per-area view.
type AreaInsightsResponse struct {
	HealthAreas []domain.HealthArea        `json:"health_areas"`
	Insights    map[string]AreaInsightView `json:"insights"`
}

// DashboardResponse packages the aggregated home screen view.
type DashboardResponse struct {
	Overall         domain.OverallScores                     `json:"overall"`
	Recommendations map[string][]domain.RankedRecommendation `json:"recommendations"`
	Selections      map[string]bool                          `json:"selections"`
}

func toAreaInsightsResponse(view *domain.AreaInsights) AreaInsightsResponse {
	resp := AreaInsightsResponse{
		HealthAreas: view.HealthAreas,
		Insights:    make(map[string]AreaInsightView, len(view.Insights)),
	}
	for id, insight := range view.Insights {
		resp.Insights[id] = AreaInsightView{
			HealthAreaID:    insight.HealthAreaID,
			HealthAreaName:  insight.HealthAreaName,
			Summary:         insight.Summary,
			Score:           insight.Score,
			BloodMarkers:    insight.BloodMarkers,
			DNATraits:       insight.DNATraits,
			Recommendations: insight.Recommendations,
		}
	}
	return resp
}

func toDashboardResponse(view *domain.Dashboard) DashboardResponse {
	return DashboardResponse{
		Overall:         view.Overall,
		Recommendations: view.Recommendations,
		Selections:      view.Selections,
	}
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
