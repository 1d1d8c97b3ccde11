// backend/src/handlers/batch_handler.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/username/secid/backend/src/logger"
	"github.com/username/secid/backend/src/security/validation"
	"github.com/username/secid/backend/src/services"
	"github.com/username/secid/backend/src/utils"
)

type BatchHandler struct {
	batchService  services.BatchService
	maxUploadSize int64
}

func NewBatchHandler(service services.BatchService, maxUploadSize int64) *BatchHandler {
	return &BatchHandler{
		batchService:  service,
		maxUploadSize: maxUploadSize,
	}
}

type processTextRequest struct {
	Text string `json:"text"`
}

// HandleProcess validates an uploaded identifier file, or a JSON body
// {"text": "..."} holding pasted delimited text, and returns the batch result.
func (h *BatchHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if isJSONRequest(r) {
		var req processTextRequest
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		result, err := h.batchService.ProcessText(req.Text)
		if err != nil {
			sendServiceError(w, r, err)
			return
		}
		log.Info("Processed pasted text", "records", result.Total, "errors", result.ErrorCount)
		utils.SendJSON(w, http.StatusOK, result)
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		log.Warn("Failed to parse multipart form or request too large", "error", err, "limit", h.maxUploadSize)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", h.maxUploadSize/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		log.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > h.maxUploadSize {
		log.Warn("Uploaded file header reports size too large", "fileSize", fileHeader.Size, "limit", h.maxUploadSize)
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB (header check)", h.maxUploadSize/(1024*1024)), http.StatusBadRequest)
		return
	}

	if err := validation.ValidateUploadFilename(fileHeader.Filename); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		log.Warn("Invalid client-declared file type", "contentType", clientContentType, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	detectedContentType, err := validation.ValidateFileContentByMagicBytes(file, fileHeader.Filename)
	if err != nil {
		log.Warn("Server-side file content validation failed", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Debug("File content validated by magic bytes", "filename", fileHeader.Filename, "clientType", clientContentType, "detectedType", detectedContentType)

	result, err := h.batchService.Process(file, fileHeader.Filename)
	if err != nil {
		log.Warn("Batch processing failed", "filename", fileHeader.Filename, "error", err)
		sendServiceError(w, r, err)
		return
	}

	log.Info("Batch processed", "filename", fileHeader.Filename, "records", result.Total, "errors", result.ErrorCount, "warnings", result.WarningCount)
	utils.SendJSON(w, http.StatusOK, result)
}
