package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/XavierBriggs/fortuna/services/arb-scorer/internal/analyzer"
	"github.com/XavierBriggs/fortuna/services/arb-scorer/internal/broadcaster"
	"github.com/XavierBriggs/fortuna/services/arb-scorer/internal/engine"
	"github.com/XavierBriggs/fortuna/services/arb-scorer/pkg/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	engine *engine.Engine
	hub    *broadcaster.Hub
	ctx    context.Context // service lifetime, outlives individual requests
}

// NewHandler creates a new handler. hub may be nil when the websocket
// surface is disabled.
func NewHandler(e *engine.Engine, hub *broadcaster.Hub, ctx context.Context) *Handler {
	return &Handler{
		engine: e,
		hub:    hub,
		ctx:    ctx,
	}
}

// HealthCheck returns service health and pipeline counters
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	scored, dropped, failed := h.engine.GetMetrics()

	health := map[string]interface{}{
		"status":  "healthy",
		"service": "arb-scorer",
		"scored":  scored,
		"dropped": dropped,
		"failed":  failed,
	}
	if h.hub != nil {
		health["ws_clients"] = h.hub.GetClientCount()
	}

	respondJSON(w, http.StatusOK, health)
}

// GetOpportunities fetches the latest prediction, runs it through the scoring
// pipeline, and returns every qualifying opportunity
func (h *Handler) GetOpportunities(w http.ResponseWriter, r *http.Request) {
	opportunities, err := h.engine.Opportunities(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("scoring failed: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, opportunities)
}

// GetAnalysis fetches the latest prediction and returns the full portfolio
// analysis over the accepted set
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.Analysis(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("analysis failed: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// ScoreResponse pairs the accepted opportunities with their portfolio summary
type ScoreResponse struct {
	Opportunities []models.ScoredOpportunity `json:"opportunities"`
	Summary       models.PortfolioSummary    `json:"summary"`
}

// ScorePayload scores a caller-supplied prediction payload directly
func (h *Handler) ScorePayload(w http.ResponseWriter, r *http.Request) {
	var prediction models.Prediction
	if err := json.NewDecoder(r.Body).Decode(&prediction); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	opportunities, err := h.engine.ScorePrediction(r.Context(), prediction)
	if err != nil {
		// Structural contract violations in the payload map to 400
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, ScoreResponse{
		Opportunities: opportunities,
		Summary:       analyzer.Analyze(opportunities),
	})
}

// Execute runs the full pipeline over every tracked game and returns the
// unfiltered node set
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.engine.Execute(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("execute failed: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, nodes)
}

// HandleWebSocket upgrades the connection and registers the client with the hub
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "websocket broadcast disabled")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		fmt.Printf("⚠️  websocket upgrade error: %v\n", err)
		return
	}

	clientID := uuid.New().String()
	c := broadcaster.NewClient(clientID, conn, h.hub)

	h.hub.Register(c)

	// Use the service context, not the request context: the request context
	// ends with this handler while the pumps run for the connection lifetime
	go c.WritePump(h.ctx)
	go c.ReadPump(h.ctx)

	fmt.Printf("✓ websocket connection established: %s\n", clientID)
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
