package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/generation"
)

// GenerateMaterialInput identifies the work of one material generation task.
type GenerateMaterialInput struct {
	TaskID     uuid.UUID
	ProjectID  uuid.UUID
	MaterialID uuid.UUID
}

// GenerateMaterial renders a material illustration from its prompt and
// attaches the stored image to the material row. On generation failure the
// material is marked failed but kept, so the user can retry or adjust the
// prompt.
func (d *Deps) GenerateMaterial(ctx context.Context, in GenerateMaterialInput) error {
	log := d.logger().With(
		slog.String("task_id", in.TaskID.String()),
		slog.String("material_id", in.MaterialID.String()),
	)

	material, err := d.Materials.GetByID(ctx, in.MaterialID)
	if err != nil {
		return d.failUnit(ctx, in.TaskID, fmt.Errorf("failed to load material: %w", err))
	}
	project, err := d.Projects.GetByID(ctx, in.ProjectID)
	if err != nil {
		return d.failUnit(ctx, in.TaskID, fmt.Errorf("failed to load project: %w", err))
	}

	prompt := buildMaterialPrompt(
		material.Name,
		material.Prompt,
		project.CombinedRequirements(),
		d.Provider.AspectRatio,
		d.Provider.Resolution,
	)

	image, err := d.Generator.GenerateImage(ctx, generation.ImageRequest{Prompt: prompt})
	if err != nil {
		material.Status = domain.MaterialStatusFailed
		if updateErr := d.Materials.Update(ctx, material); updateErr != nil {
			log.Error("failed to mark material failed",
				slog.String("error", updateErr.Error()))
		}
		return d.failUnit(ctx, in.TaskID, fmt.Errorf("material generation failed: %w", err))
	}

	filename := fmt.Sprintf("material_%s_%d%s", material.ID, time.Now().UnixNano(), imageExtension(image.MIMEType))
	path, err := d.Artifacts.Save(ctx, project.ID.String(), categoryMaterials, filename, image.Data)
	if err != nil {
		return d.failUnit(ctx, in.TaskID, fmt.Errorf("failed to store material image: %w", err))
	}

	material.ImagePath = path
	material.Status = domain.MaterialStatusGenerated
	if err := d.Materials.Update(ctx, material); err != nil {
		return d.failUnit(ctx, in.TaskID, fmt.Errorf("failed to update material: %w", err))
	}

	log.Info("material generated", slog.String("path", path))

	return d.completeUnit(ctx, in.TaskID)
}
