// backend/src/handlers/admin_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/username/secid/backend/src/logger"
	"github.com/username/secid/backend/src/reports"
	"github.com/username/secid/backend/src/security"
	"github.com/username/secid/backend/src/services"
	"github.com/username/secid/backend/src/utils"
)

// AdminHandler serves token issuing and the gated query and export endpoints.
type AdminHandler struct {
	authService    *security.AuthService
	sessionService services.SessionService
	now            func() time.Time
}

func NewAdminHandler(authService *security.AuthService, service services.SessionService) *AdminHandler {
	return &AdminHandler{authService: authService, sessionService: service, now: time.Now}
}

type tokenRequest struct {
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (h *AdminHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, expiresAt, err := h.authService.Login(req.Password)
	switch {
	case errors.Is(err, security.ErrAuthDisabled):
		utils.SendJSONError(w, "this endpoint is disabled: no admin password configured", http.StatusForbidden)
		return
	case errors.Is(err, security.ErrInvalidCredentials):
		logger.FromContext(r.Context()).Warn("Rejected admin login", "remoteAddr", r.RemoteAddr)
		utils.SendJSONError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	case err != nil:
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt})
}

type queryRequest struct {
	SQL string `json:"sql"`
}

// HandleQuery runs one ad-hoc SQL statement. Backend errors are returned verbatim.
func (h *AdminHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		utils.SendJSONError(w, "sql is required", http.StatusBadRequest)
		return
	}

	subject, _ := GetSubjectFromContext(r.Context())
	result, err := h.sessionService.RunQuery(r.Context(), req.SQL)
	warning, err := durabilityWarning(err)
	if err != nil {
		logger.FromContext(r.Context()).Info("Ad-hoc query failed", "subject", subject, "error", err)
		sendServiceError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("Ad-hoc query executed", "subject", subject, "tables", len(result.Tables), "rowsAffected", result.RowsAffected)

	resp := map[string]any{"tables": result.Tables, "rows_affected": result.RowsAffected}
	if warning != "" {
		resp["warning"] = warning
	}
	utils.SendJSON(w, http.StatusOK, resp)
}

// HandleExport downloads a snapshot of the whole database file.
func (h *AdminHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	data, err := h.sessionService.Export(r.Context())
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, reports.DatabaseExportFilename(h.now())))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.FromContext(r.Context()).Error("Error writing database export", "error", err)
	}
}
