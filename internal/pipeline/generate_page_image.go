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

// GeneratePageImageInput identifies the work of one page render task.
type GeneratePageImageInput struct {
	TaskID    uuid.UUID
	ProjectID uuid.UUID
	PageID    uuid.UUID

	// UseTemplate attaches the project's template image as a style
	// reference.
	UseTemplate bool

	// Language overrides the configured output language when non-empty.
	Language string
}

// GeneratePageImage renders one page into an image: it assembles the prompt
// from the page description, the reconstructed deck outline and the project
// requirements, attaches template and material reference images, calls the
// image model, stores the result, and appends it to the page's version ledger
// as the new current image.
func (d *Deps) GeneratePageImage(ctx context.Context, in GeneratePageImageInput) error {
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
	if !page.HasDescription() {
		return d.failUnit(ctx, in.TaskID, fmt.Errorf("page has no description content"))
	}

	allPages, err := d.Pages.ListByProject(ctx, in.ProjectID)
	if err != nil {
		return d.failUnit(ctx, in.TaskID, fmt.Errorf("failed to list project pages: %w", err))
	}
	outline := domain.BuildOutline(allPages)

	var refs [][]byte
	hasTemplate := false
	if in.UseTemplate && project.TemplateImagePath != "" {
		data, err := d.Artifacts.Read(ctx, project.TemplateImagePath)
		if err != nil {
			return d.failUnit(ctx, in.TaskID, fmt.Errorf("failed to read template image: %w", err))
		}
		refs = append(refs, data)
		hasTemplate = true
	}

	materialURLs := extractImageURLs(page.Description.Text)
	for _, url := range materialURLs {
		data, err := d.fetchImage(ctx, url)
		if err != nil {
			// A missing material should not sink the whole render; the
			// model still has the description text.
			log.Warn("skipping unreachable material image",
				slog.String("url", url),
				slog.String("error", err.Error()))
			continue
		}
		refs = append(refs, data)
	}

	language := in.Language
	if language == "" {
		language = d.Provider.OutputLanguage
	}

	prompt := buildSlidePrompt(slidePromptInput{
		Outline:           outline,
		Page:              page.Outline,
		Part:              page.Part,
		Description:       page.Description.Text,
		Requirements:      project.CombinedRequirements(),
		HasTemplate:       hasTemplate,
		HasMaterialImages: len(materialURLs) > 0,
		AspectRatio:       d.Provider.AspectRatio,
		Resolution:        d.Provider.Resolution,
		Language:          language,
	})

	image, err := d.Generator.GenerateImage(ctx, generation.ImageRequest{
		Prompt:          prompt,
		ReferenceImages: refs,
	})
	if err != nil {
		return d.failUnit(ctx, in.TaskID, fmt.Errorf("image generation failed: %w", err))
	}

	filename := fmt.Sprintf("page_%s_%d%s", page.ID, time.Now().UnixNano(), imageExtension(image.MIMEType))
	path, err := d.Artifacts.Save(ctx, project.ID.String(), categoryPages, filename, image.Data)
	if err != nil {
		return d.failUnit(ctx, in.TaskID, fmt.Errorf("failed to store generated image: %w", err))
	}

	version, err := d.Versions.CreateVersion(ctx, page.ID, path)
	if err != nil {
		return d.failUnit(ctx, in.TaskID, fmt.Errorf("failed to record image version: %w", err))
	}

	log.Info("page image generated",
		slog.String("path", path),
		slog.Int("version", version.VersionNumber))

	return d.completeUnit(ctx, in.TaskID)
}

// completeUnit reports the single sub-unit of a one-step pipeline as done.
func (d *Deps) completeUnit(ctx context.Context, taskID uuid.UUID) error {
	if err := d.Tasks.IncrementProgress(ctx, taskID, 1, 0); err != nil {
		d.logger().Warn("failed to increment task progress",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
	}
	return nil
}

// failUnit records the failed sub-unit before surfacing the error that fails
// the task.
func (d *Deps) failUnit(ctx context.Context, taskID uuid.UUID, cause error) error {
	if err := d.Tasks.IncrementProgress(ctx, taskID, 0, 1); err != nil {
		d.logger().Warn("failed to increment task progress",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
	}
	return cause
}
