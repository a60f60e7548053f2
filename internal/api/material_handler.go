package api

import (
	"log/slog"
	"net/http"

	"github.com/slidesmith/slidesmith-api/internal/api/shared"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/service"
)

// MaterialHandler holds dependencies for material endpoints.
type MaterialHandler struct {
	materialService service.MaterialService
	logger          *slog.Logger
}

// NewMaterialHandler creates a new MaterialHandler.
func NewMaterialHandler(materialService service.MaterialService, logger *slog.Logger) *MaterialHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MaterialHandler{
		materialService: materialService,
		logger:          logger.With(slog.String("component", "material_handler")),
	}
}

// CreateMaterial handles POST /projects/{projectID}/materials.
func (h *MaterialHandler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseUUIDParam(r, "projectID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project ID")
		return
	}

	var req CreateMaterialRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation failed: name and prompt are required")
		return
	}

	material, err := h.materialService.CreateMaterial(r.Context(), projectID, req.Name, req.Prompt)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, material)
}

// ListMaterials handles GET /projects/{projectID}/materials.
func (h *MaterialHandler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseUUIDParam(r, "projectID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project ID")
		return
	}

	materials, err := h.materialService.ListMaterials(r.Context(), projectID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	if materials == nil {
		materials = []*domain.Material{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, materials)
}

// GenerateMaterial handles POST /projects/{projectID}/materials/{materialID}/image.
func (h *MaterialHandler) GenerateMaterial(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseUUIDParam(r, "projectID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project ID")
		return
	}
	materialID, err := parseUUIDParam(r, "materialID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid material ID")
		return
	}

	record, err := h.materialService.GenerateMaterial(r.Context(), projectID, materialID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskAcceptedResponse{TaskID: record.ID})
}

// DeleteMaterial handles DELETE /projects/{projectID}/materials/{materialID}.
func (h *MaterialHandler) DeleteMaterial(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseUUIDParam(r, "projectID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project ID")
		return
	}
	materialID, err := parseUUIDParam(r, "materialID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid material ID")
		return
	}

	if err := h.materialService.DeleteMaterial(r.Context(), projectID, materialID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
