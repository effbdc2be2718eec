// Package api exposes the inbound HTTP trigger endpoints for sync runs.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/finadex/accsync/pkg/db"
	"github.com/finadex/accsync/pkg/sync"
	"github.com/go-playground/validator/v10"
)

// defaultSyncDeadline bounds a triggered sync run; a partial run is
// reported as success and the trigger fires again later.
const defaultSyncDeadline = 5 * time.Minute

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	service    *sync.Service
	normalizer *sync.Normalizer
	conn       *db.Connection
	cronSecret string
	validate   *validator.Validate
}

// NewHandlers creates the handler set.
func NewHandlers(service *sync.Service, normalizer *sync.Normalizer, conn *db.Connection, cronSecret string) *Handlers {
	return &Handlers{
		service:    service,
		normalizer: normalizer,
		conn:       conn,
		cronSecret: cronSecret,
		validate:   validator.New(),
	}
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// SyncResponse represents the response of a sync trigger.
type SyncResponse struct {
	Success bool       `json:"success"`
	Stats   sync.Stats `json:"stats"`
}

// HandleSync handles POST /sync: a full sync run.
func (h *Handlers) HandleSync(w http.ResponseWriter, r *http.Request) {
	h.runSync(w)
}

// HandleCronSync handles GET /cron-sync: a full sync run gated by the
// configured bearer secret.
func (h *Handlers) HandleCronSync(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	if h.cronSecret == "" ||
		subtle.ConstantTimeCompare([]byte(parts[1]), []byte(h.cronSecret)) != 1 {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	h.runSync(w)
}

func (h *Handlers) runSync(w http.ResponseWriter) {
	stats, err := h.service.SyncAll(time.Now().Add(defaultSyncDeadline))
	if err != nil {
		slog.Error("sync run failed", "run_id", stats.RunID, "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(SyncResponse{Success: false, Stats: stats})
		return
	}

	writeJSON(w, http.StatusOK, SyncResponse{Success: true, Stats: stats})
}

// SyncCurrencyRequest is the body of POST /sync-currency.
type SyncCurrencyRequest struct {
	DocID int64 `json:"docId" validate:"required,gt=0"`
}

// HandleSyncCurrency handles POST /sync-currency: currency normalization
// of a single document.
func (h *Handlers) HandleSyncCurrency(w http.ResponseWriter, r *http.Request) {
	var req SyncCurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		details := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[fe.Field()] = "must be a positive integer"
			}
		}
		writeJSONError(w, http.StatusBadRequest, "validation failed", details)
		return
	}

	if err := h.normalizer.SyncDocumentCurrency(req.DocID); err != nil {
		slog.Error("currency sync failed", "document_id", req.DocID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "currency sync failed", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleStats handles GET /stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := db.GetStats(h.conn)
	if err != nil {
		slog.Error("failed to load stats", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load stats", nil)
		return
	}

	resp := map[string]interface{}{
		"documents":        stats.TotalDocuments,
		"linked_documents": stats.LinkedDocuments,
		"journal_entries":  stats.TotalJournalLines,
		"contacts":         stats.TotalContacts,
	}
	if stats.LastJournalCursor.Valid {
		resp["last_journal_sync"] = stats.LastJournalCursor.Time.Format("2006-01-02")
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Details: details,
	})
}
