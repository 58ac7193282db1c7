package main

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/Financial-Times/go-logger"
)

type httpHandler struct {
	tracker      *errorStateTracker
	orchestrator *scrapeOrchestrator
	// gtgWindow is how stale the last cycle may be before the service
	// stops reporting good-to-go.
	gtgWindow time.Duration
}

type targetStatusResponse struct {
	Address             string `json:"address"`
	ConsecutiveFailures int    `json:"consecutiveFailures"`
	LastSuccess         string `json:"lastSuccess,omitempty"`
	LastErrorKind       string `json:"lastErrorKind,omitempty"`
	LastErrorMessage    string `json:"lastErrorMessage,omitempty"`
}

// handleTargets serves a read-only JSON view of the tracker state.
func (h *httpHandler) handleTargets(w http.ResponseWriter, r *http.Request) {
	entries := h.tracker.snapshot()

	statuses := make([]targetStatusResponse, 0, len(entries))
	for address, entry := range entries {
		status := targetStatusResponse{
			Address:             address,
			ConsecutiveFailures: entry.consecutiveFailures,
			LastErrorKind:       string(entry.lastErrorKind),
			LastErrorMessage:    entry.lastErrorMessage,
		}
		if !entry.lastSuccess.IsZero() {
			status.LastSuccess = entry.lastSuccess.Format(time.RFC3339)
		}
		statuses = append(statuses, status)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statuses); err != nil {
		log.WithError(err).Errorf("Cannot encode target statuses.")
	}
}

// handleGoodToGo reports 200 while cycles keep completing inside the
// configured window, 503 once they stop (or before the first one).
func (h *httpHandler) handleGoodToGo(w http.ResponseWriter, r *http.Request) {
	lastCycle := h.orchestrator.lastCycle()
	if lastCycle.IsZero() || time.Since(lastCycle) > h.gtgWindow {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("No scrape cycle has completed recently."))
		return
	}

	w.Write([]byte("OK"))
}
