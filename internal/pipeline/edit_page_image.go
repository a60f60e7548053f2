package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/generation"
)

// EditPageImageInput identifies the work of one image edit task.
type EditPageImageInput struct {
	TaskID    uuid.UUID
	ProjectID uuid.UUID
	PageID    uuid.UUID

	// Instruction is the user's edit request.
	Instruction string

	// UseTemplate attaches the project's template image as additional
	// context for the edit.
	UseTemplate bool

	// ReferenceURLs are extra context images by URL (typically material
	// images from the description the user wants the edit to respect).
	ReferenceURLs []string

	// UploadedPaths are stored paths of images the user attached to the
	// edit request.
	UploadedPaths []string
}

// EditPageImage applies an instruction-driven edit to the page's current
// image and appends the result to the version ledger as the new current
// image. The previous versions stay in the ledger untouched.
func (d *Deps) EditPageImage(ctx context.Context, in EditPageImageInput) error {
	log := d.logger().With(
		slog.String("task_id", in.TaskID.String()),
		slog.String("page_id", in.PageID.String()),
	)

	page, err := d.Pages.GetByID(ctx, in.PageID)
	if err != nil {
		return d.failUnit(ctx, in.TaskID, fmt.Errorf("failed to load page: %w", err))
	}
	project, err := d.Projects.GetByID(ctx, in.ProjectID)
	if err != nil {
		return d.failUnit(ctx, in.TaskID, fmt.Errorf("failed to load project: %w", err))
	}
	if !page.HasGeneratedImage() {
		return d.failUnit(ctx, in.TaskID, fmt.Errorf("page has no generated image to edit"))
	}

	baseImage, err := d.Artifacts.Read(ctx, page.GeneratedImagePath)
	if err != nil {
		return d.failUnit(ctx, in.TaskID, fmt.Errorf("failed to read current image: %w", err))
	}

	var refs [][]byte
	if in.UseTemplate && project.TemplateImagePath != "" {
		data, err := d.Artifacts.Read(ctx, project.TemplateImagePath)
		if err != nil {
			return d.failUnit(ctx, in.TaskID, fmt.Errorf("failed to read template image: %w", err))
		}
		refs = append(refs, data)
	}
	for _, url := range in.ReferenceURLs {
		data, err := d.fetchImage(ctx, url)
		if err != nil {
			log.Warn("skipping unreachable reference image",
				slog.String("url", url),
				slog.String("error", err.Error()))
			continue
		}
		refs = append(refs, data)
	}
	for _, path := range in.UploadedPaths {
		data, err := d.Artifacts.Read(ctx, path)
		if err != nil {
			return d.failUnit(ctx, in.TaskID, fmt.Errorf("failed to read uploaded image: %w", err))
		}
		refs = append(refs, data)
	}

	var description string
	if page.HasDescription() {
		description = page.Description.Text
	}

	prompt := buildEditPrompt(editPromptInput{
		Instruction: in.Instruction,
		Description: description,
		AspectRatio: d.Provider.AspectRatio,
		Resolution:  d.Provider.Resolution,
	})

	image, err := d.Generator.EditImage(ctx, generation.EditRequest{
		Instruction:     prompt,
		BaseImage:       baseImage,
		ReferenceImages: refs,
	})
	if err != nil {
		return d.failUnit(ctx, in.TaskID, fmt.Errorf("image edit failed: %w", err))
	}

	filename := fmt.Sprintf("page_%s_%d%s", page.ID, time.Now().UnixNano(), imageExtension(image.MIMEType))
	path, err := d.Artifacts.Save(ctx, project.ID.String(), categoryPages, filename, image.Data)
	if err != nil {
		return d.failUnit(ctx, in.TaskID, fmt.Errorf("failed to store edited image: %w", err))
	}

	version, err := d.Versions.CreateVersion(ctx, page.ID, path)
	if err != nil {
		return d.failUnit(ctx, in.TaskID, fmt.Errorf("failed to record image version: %w", err))
	}

	log.Info("page image edited",
		slog.String("path", path),
		slog.Int("version", version.VersionNumber))

	return d.completeUnit(ctx, in.TaskID)
}
