package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/api/shared"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/service"
)

// PageHandler holds dependencies for page endpoints, including the
// asynchronous image generation and edit entry points.
type PageHandler struct {
	pageService service.PageService
	logger      *slog.Logger
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(pageService service.PageService, logger *slog.Logger) *PageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageHandler{
		pageService: pageService,
		logger:      logger.With(slog.String("component", "page_handler")),
	}
}

// pageParams extracts the project and page IDs shared by most endpoints.
func pageParams(r *http.Request) (projectID, pageID uuid.UUID, ok bool) {
	projectID, err := parseUUIDParam(r, "projectID")
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	pageID, err = parseUUIDParam(r, "pageID")
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return projectID, pageID, true
}

// CreatePage handles POST /projects/{projectID}/pages.
func (h *PageHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseUUIDParam(r, "projectID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project ID")
		return
	}

	var req CreatePageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation failed: order_index must be >= 0")
		return
	}

	page, err := h.pageService.CreatePage(r.Context(), projectID, req.OrderIndex, req.Part)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, page)
}

// ListPages handles GET /projects/{projectID}/pages.
func (h *PageHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseUUIDParam(r, "projectID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project ID")
		return
	}

	pages, err := h.pageService.ListPages(r.Context(), projectID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	if pages == nil {
		pages = []*domain.Page{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, pages)
}

// GetPage handles GET /projects/{projectID}/pages/{pageID}.
func (h *PageHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	projectID, pageID, ok := pageParams(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project or page ID")
		return
	}

	page, err := h.pageService.GetPage(r.Context(), projectID, pageID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, page)
}

// UpdateOutline handles PUT /projects/{projectID}/pages/{pageID}/outline.
func (h *PageHandler) UpdateOutline(w http.ResponseWriter, r *http.Request) {
	projectID, pageID, ok := pageParams(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project or page ID")
		return
	}

	var req UpdateOutlineRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation failed: title is required")
		return
	}

	page, err := h.pageService.UpdateOutline(r.Context(), projectID, pageID, req.Part,
		&domain.PageOutline{Title: req.Title, Points: req.Points})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, page)
}

// UpdateDescription handles PUT /projects/{projectID}/pages/{pageID}/description.
func (h *PageHandler) UpdateDescription(w http.ResponseWriter, r *http.Request) {
	projectID, pageID, ok := pageParams(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project or page ID")
		return
	}

	var req UpdateDescriptionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation failed: text is required")
		return
	}

	page, err := h.pageService.UpdateDescription(r.Context(), projectID, pageID, req.Text)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, page)
}

// DeletePage handles DELETE /projects/{projectID}/pages/{pageID}.
func (h *PageHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	projectID, pageID, ok := pageParams(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project or page ID")
		return
	}

	if err := h.pageService.DeletePage(r.Context(), projectID, pageID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GenerateImage handles POST /projects/{projectID}/pages/{pageID}/image.
// A valid request creates a pending task and returns 202 with its ID; the
// client polls GET /tasks/{id}.
func (h *PageHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	projectID, pageID, ok := pageParams(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project or page ID")
		return
	}

	var req GenerateImageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	record, err := h.pageService.GeneratePageImage(r.Context(), projectID, pageID, service.GenerateImageOptions{
		UseTemplate: req.UseTemplate,
		Language:    req.Language,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskAcceptedResponse{TaskID: record.ID})
}

// EditImage handles POST /projects/{projectID}/pages/{pageID}/image/edits.
func (h *PageHandler) EditImage(w http.ResponseWriter, r *http.Request) {
	projectID, pageID, ok := pageParams(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project or page ID")
		return
	}

	var req EditImageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation failed: instruction is required")
		return
	}

	record, err := h.pageService.EditPageImage(r.Context(), projectID, pageID, service.EditImageRequest{
		Instruction:   req.Instruction,
		UseTemplate:   req.UseTemplate,
		ReferenceURLs: req.ReferenceURLs,
		UploadedPaths: req.UploadedPaths,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskAcceptedResponse{TaskID: record.ID})
}

// ListVersions handles GET /projects/{projectID}/pages/{pageID}/versions.
func (h *PageHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	projectID, pageID, ok := pageParams(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project or page ID")
		return
	}

	versions, err := h.pageService.ListImageVersions(r.Context(), projectID, pageID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	if versions == nil {
		versions = []*domain.PageImageVersion{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, versions)
}

// SetCurrentVersion handles POST /projects/{projectID}/pages/{pageID}/versions/{versionID}/current.
func (h *PageHandler) SetCurrentVersion(w http.ResponseWriter, r *http.Request) {
	projectID, pageID, ok := pageParams(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project or page ID")
		return
	}
	versionID, err := parseUUIDParam(r, "versionID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid version ID")
		return
	}

	version, err := h.pageService.SetCurrentVersion(r.Context(), projectID, pageID, versionID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, version)
}
