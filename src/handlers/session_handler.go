// backend/src/handlers/session_handler.go
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/username/secid/backend/src/logger"
	"github.com/username/secid/backend/src/models"
	"github.com/username/secid/backend/src/reports"
	"github.com/username/secid/backend/src/security/validation"
	"github.com/username/secid/backend/src/services"
	"github.com/username/secid/backend/src/utils"
)

type SessionHandler struct {
	sessionService services.SessionService
	now            func() time.Time
}

func NewSessionHandler(service services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: service, now: time.Now}
}

type saveSessionRequest struct {
	Name     string              `json:"name"`
	Filename string              `json:"filename"`
	Result   *models.BatchResult `json:"result"`
}

type saveSessionResponse struct {
	SessionID int64  `json:"session_id"`
	Warning   string `json:"warning,omitempty"`
}

// HandleSaveSession persists a processed batch under a user-chosen name.
func (h *SessionHandler) HandleSaveSession(w http.ResponseWriter, r *http.Request) {
	var req saveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Result == nil {
		utils.SendJSONError(w, "result is required", http.StatusBadRequest)
		return
	}

	name := validation.CleanSessionName(req.Name)
	id, err := h.sessionService.Save(r.Context(), name, validation.StripUnprintable(req.Filename), req.Result)
	warning, err := durabilityWarning(err)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	if warning != "" {
		logger.FromContext(r.Context()).Warn("Session saved but not flushed", "sessionID", id, "error", warning)
	}
	utils.SendJSON(w, http.StatusOK, saveSessionResponse{SessionID: id, Warning: warning})
}

// HandleListSessions returns session metadata, newest first.
func (h *SessionHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessionService.ListSessions(r.Context())
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, sessions)
}

type sessionResponse struct {
	Session *models.Session     `json:"session"`
	Result  *models.BatchResult `json:"result"`
}

// HandleGetSession reconstructs a saved session. Responses carry an ETag and
// honour If-None-Match.
func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	session, err := h.sessionService.GetSession(r.Context(), id)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	result, err := h.sessionService.Load(r.Context(), id)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	resp := sessionResponse{Session: session, Result: result}
	etag, err := utils.GenerateETag(resp)
	if err != nil {
		logger.FromContext(r.Context()).Error("Error generating ETag for session", "sessionID", id, "error", err)
		utils.SendJSON(w, http.StatusOK, resp)
		return
	}
	quotedETag := `"` + etag + `"`
	w.Header().Set("ETag", quotedETag)
	w.Header().Set("Cache-Control", "private, no-cache")
	if utils.ETagMatches(r.Header.Get("If-None-Match"), quotedETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	utils.SendJSON(w, http.StatusOK, resp)
}

// HandleDeleteSession removes a session with its identifiers and errors.
func (h *SessionHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	warning, err := durabilityWarning(h.sessionService.Delete(r.Context(), id))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	resp := map[string]any{"deleted": id}
	if warning != "" {
		resp["warning"] = warning
	}
	utils.SendJSON(w, http.StatusOK, resp)
}

// HandleListRecords returns a session's records filtered by the search, filter
// and sort query parameters.
func (h *SessionHandler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter, err := models.NewRecordFilter(q.Get("search"), q.Get("filter"), q.Get("sort"))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	result, err := h.sessionService.Load(r.Context(), id)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, result.FilterRecords(filter))
}

// HandleSessionErrorLog downloads the error log of a saved session as CSV or XLSX
// depending on the format query parameter.
func (h *SessionHandler) HandleSessionErrorLog(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	format := errorLogFormat(r)
	stored, err := h.sessionService.ErrorLog(r.Context(), id)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	filename := reports.SessionFilename(id, reports.ErrorLogFilename(h.now(), format))
	h.writeErrorLog(w, r, reports.StoredErrorLogRows(stored), format, filename)
}

// HandleErrorLog renders the error log of an unsaved batch result posted as JSON.
func (h *SessionHandler) HandleErrorLog(w http.ResponseWriter, r *http.Request) {
	var result models.BatchResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	format := errorLogFormat(r)
	h.writeErrorLog(w, r, reports.ErrorLogRows(&result), format, reports.ErrorLogFilename(h.now(), format))
}

func (h *SessionHandler) writeErrorLog(w http.ResponseWriter, r *http.Request, rows []reports.ErrorLogRow, format, filename string) {
	var (
		buf         bytes.Buffer
		err         error
		contentType string
	)
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
		err = reports.WriteErrorLogCSV(&buf, rows)
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = reports.WriteErrorLogXLSX(&buf, rows)
	default:
		utils.SendJSONError(w, fmt.Sprintf("unsupported error log format '%s'", format), http.StatusBadRequest)
		return
	}
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.FromContext(r.Context()).Error("Error writing error log", "error", err)
	}
}

// HandleStats returns row counts for sessions, identifiers and errors.
func (h *SessionHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sessionService.Stats(r.Context())
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, stats)
}

// HandleAuditLog returns the newest audit entries; limit defaults to 100.
func (h *SessionHandler) HandleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.SendJSONError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := h.sessionService.AuditLog(r.Context(), limit)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, entries)
}

func sessionIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		utils.SendJSONError(w, "Invalid session ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func errorLogFormat(r *http.Request) string {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		return "csv"
	}
	return format
}
