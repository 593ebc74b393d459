package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// RemoteStatus reports the remote sink connection state.
type RemoteStatus interface {
	Status() string
}

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	remote RemoteStatus
	feed   *EventFeed
	logger *slog.Logger
}

// NewHealthHandler creates a new HealthHandler. feed may be nil.
func NewHealthHandler(remote RemoteStatus, feed *EventFeed, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{remote: remote, feed: feed, logger: logger}
}

type healthResponse struct {
	Status      string `json:"status"`
	Remote      string `json:"remote"`
	FeedClients int    `json:"feed_clients"`
}

// HealthCheck always answers 200; a disconnected remote is a degraded but
// healthy state.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Remote: h.remote.Status()}
	if h.feed != nil {
		resp.FeedClients = h.feed.ClientCount()
	}
	h.respondWithJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
