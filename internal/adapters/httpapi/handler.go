// Package httpapi serves the HTTP surface: the inbound webhook for chat
// messages, record export and sync, health and metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/fleetbot/internal/app"
	"github.com/example/fleetbot/internal/ports/primary"
	"github.com/example/fleetbot/internal/ports/secondary"
)

var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetbot_http_requests_total",
		Help: "HTTP requests, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleetbot_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

// maxBody bounds request bodies. Sync uploads carry whole stores.
const maxBody = 16 << 20

// Dispatcher handles one inbound message and returns its reply.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg primary.InboundMessage) (primary.Reply, error)
}

// Handler serves the API.
type Handler struct {
	dispatcher Dispatcher
	records    primary.RecordService
	logger     *slog.Logger
}

// NewHandler creates a handler.
func NewHandler(dispatcher Dispatcher, records primary.RecordService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{dispatcher: dispatcher, records: records, logger: logger}
}

// Router builds the route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.Health).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/messages", h.PostMessage).Methods("POST")
	apiV1.HandleFunc("/records/{store}", h.GetRecords).Methods("GET")
	apiV1.HandleFunc("/sync/{store}", h.SyncRecords).Methods("POST")
	return r
}

// NewServer wraps the router in an http.Server with the usual timeouts.
func NewServer(addr string, h *Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Health reports that the process is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

// messageRequest is the inbound webhook payload.
type messageRequest struct {
	ID       string `json:"id"`
	SenderID string `json:"sender_id"`
	Text     string `json:"text"`
	FromSelf bool   `json:"from_self"`
}

type messageResponse struct {
	Replies []string `json:"replies"`
}

// PostMessage handles one chat message and answers with the bot replies.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/v1/messages"
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "POST", endpoint)
		return
	}
	if req.SenderID == "" {
		h.respondError(w, http.StatusUnprocessableEntity, "sender_id is required", "POST", endpoint)
		return
	}

	reply, err := h.dispatcher.Dispatch(r.Context(), primary.InboundMessage{
		ID:         req.ID,
		SenderID:   req.SenderID,
		Text:       req.Text,
		IsFromSelf: req.FromSelf,
		ReceivedAt: time.Now(),
	})
	switch {
	case errors.Is(err, app.ErrDropped):
		h.respondJSON(w, http.StatusAccepted, messageResponse{Replies: []string{}}, "POST", endpoint)
		return
	case errors.Is(err, app.ErrQueueFull):
		h.respondError(w, http.StatusTooManyRequests, "Too many pending messages", "POST", endpoint)
		return
	case err != nil:
		h.logger.Error("dispatch failed", "sender", req.SenderID, "error", err)
		h.respondError(w, http.StatusServiceUnavailable, "Message not handled", "POST", endpoint)
		return
	}

	texts := reply.Texts
	if texts == nil {
		texts = []string{}
	}
	h.respondJSON(w, http.StatusOK, messageResponse{Replies: texts}, "POST", endpoint)
}

// GetRecords exports the raw content of one store.
func (h *Handler) GetRecords(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/v1/records/{store}"
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	store := mux.Vars(r)["store"]
	if _, err := secondary.ParseStoreID(store); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error(), "GET", endpoint)
		return
	}

	records, err := h.records.Export(r.Context(), store)
	if err != nil {
		h.logger.Error("export failed", "store", store, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Export failed", "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, records, "GET", endpoint)
}

// SyncRecords merges an uploaded set of records into one store.
func (h *Handler) SyncRecords(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/v1/sync/{store}"
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	store := mux.Vars(r)["store"]
	if _, err := secondary.ParseStoreID(store); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error(), "POST", endpoint)
		return
	}

	var incoming map[string]json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&incoming); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "POST", endpoint)
		return
	}

	res, err := h.records.Import(r.Context(), store, incoming)
	if err != nil {
		h.logger.Error("import failed", "store", store, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Import failed", "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, res, "POST", endpoint)
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload any, method, endpoint string) {
	httpReqTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn("failed to write response", "endpoint", endpoint, "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, code int, msg, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": msg}, method, endpoint)
}
