package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/api/shared"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/service"
)

// ReferenceFileHandler holds dependencies for reference document endpoints.
type ReferenceFileHandler struct {
	fileService service.ReferenceFileService
	logger      *slog.Logger
}

// NewReferenceFileHandler creates a new ReferenceFileHandler.
func NewReferenceFileHandler(fileService service.ReferenceFileService, logger *slog.Logger) *ReferenceFileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceFileHandler{
		fileService: fileService,
		logger:      logger.With(slog.String("component", "reference_file_handler")),
	}
}

// Upload handles POST /reference-files. The multipart form carries the
// document in "file" and an optional "project_id" field; without one the
// file is global.
func (h *ReferenceFileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	filename, data, err := readUploadedFile(r, "file")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Upload must carry a file field")
		return
	}

	var projectID *uuid.UUID
	if raw := r.FormValue("project_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project_id")
			return
		}
		projectID = &id
	}

	file, err := h.fileService.UploadReferenceFile(r.Context(), projectID, filename, data)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, file)
}

// List handles GET /reference-files. With ?project_id= it lists that
// project's files; without, the global ones.
func (h *ReferenceFileHandler) List(w http.ResponseWriter, r *http.Request) {
	var projectID *uuid.UUID
	if raw := r.URL.Query().Get("project_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project_id")
			return
		}
		projectID = &id
	}

	files, err := h.fileService.ListReferenceFiles(r.Context(), projectID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	if files == nil {
		files = []*domain.ReferenceFile{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, files)
}

// Get handles GET /reference-files/{fileID}. Clients poll it to follow the
// parse status.
func (h *ReferenceFileHandler) Get(w http.ResponseWriter, r *http.Request) {
	fileID, err := parseUUIDParam(r, "fileID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid file ID")
		return
	}

	file, err := h.fileService.GetReferenceFile(r.Context(), fileID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, file)
}

// Reparse handles POST /reference-files/{fileID}/reparse.
func (h *ReferenceFileHandler) Reparse(w http.ResponseWriter, r *http.Request) {
	fileID, err := parseUUIDParam(r, "fileID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid file ID")
		return
	}

	file, err := h.fileService.ReparseReferenceFile(r.Context(), fileID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, file)
}

// Delete handles DELETE /reference-files/{fileID}.
func (h *ReferenceFileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	fileID, err := parseUUIDParam(r, "fileID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid file ID")
		return
	}

	if err := h.fileService.DeleteReferenceFile(r.Context(), fileID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
