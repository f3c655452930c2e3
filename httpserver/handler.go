package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/teekernel/tee-partition-manager/partition"
)

// StatusSource supplies diagnostics snapshots of the live partition
// contexts. *partition.Registry implements it.
type StatusSource interface {
	Snapshot() []partition.ContextStatus
}

// Handler serves the diagnostics API over a status source.
type Handler struct {
	status StatusSource
	log    *slog.Logger
}

// NewHandler creates a diagnostics handler.
func NewHandler(status StatusSource, log *slog.Logger) *Handler {
	return &Handler{status: status, log: log}
}

// HandlePartitions returns the snapshot of every live partition context.
func (h *Handler) HandlePartitions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.status.Snapshot())
}

// HandlePartition returns one context by identity, with its mappings.
func (h *Handler) HandlePartition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid partition id", http.StatusBadRequest)
		return
	}

	for _, st := range h.status.Snapshot() {
		if st.ID == id {
			h.writeJSON(w, st)
			return
		}
	}

	http.Error(w, "no such partition", http.StatusNotFound)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("encoding diagnostics response", "err", err)
	}
}
