package handlers

import (
	"errors"
	"mime"
	"net/http"

	"github.com/username/secid/backend/src/logger"
	"github.com/username/secid/backend/src/models"
	"github.com/username/secid/backend/src/utils"
)

// sendServiceError maps the error taxonomy onto HTTP statuses.
func sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var storeErr *models.StoreError
	switch {
	case errors.Is(err, models.ErrInput), errors.Is(err, models.ErrValidation):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrNotFound):
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &storeErr) && storeErr.Op == "query":
		utils.SendJSONError(w, storeErr.Err.Error(), http.StatusBadRequest)
	default:
		logger.FromContext(r.Context()).Error("Internal error", "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "An internal error occurred. Please try again later.", http.StatusInternalServerError)
	}
}

// durabilityWarning splits a durability failure off err. It returns the warning
// text (empty if none) and whatever error remains.
func durabilityWarning(err error) (string, error) {
	if err != nil && errors.Is(err, models.ErrDurability) {
		return err.Error(), nil
	}
	return "", err
}

func isJSONRequest(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/json"
}
