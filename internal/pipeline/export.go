package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/generation"
	"golang.org/x/sync/semaphore"
)

// ErrNoGeneratedImages is returned when an export finds no pages with a
// generated image.
var ErrNoGeneratedImages = fmt.Errorf("project has no generated page images")

// ExportPDF assembles the current page images into a PDF, stores it, and
// returns the stored path. Runs synchronously; image-to-PDF assembly is
// local work.
func (d *Deps) ExportPDF(ctx context.Context, projectID uuid.UUID, filename string) (string, error) {
	images, _, err := d.collectCurrentImages(ctx, projectID)
	if err != nil {
		return "", err
	}

	pdfData, err := buildPDF(images)
	if err != nil {
		return "", fmt.Errorf("failed to build PDF: %w", err)
	}

	path, err := d.Artifacts.Save(ctx, projectID.String(), categoryExports, filename, pdfData)
	if err != nil {
		return "", fmt.Errorf("failed to store export: %w", err)
	}
	return path, nil
}

// ExportPPTX assembles the current page images into a flat image-per-slide
// presentation, stores it, and returns the stored path. Runs synchronously.
func (d *Deps) ExportPPTX(ctx context.Context, projectID uuid.UUID, filename string) (string, error) {
	images, _, err := d.collectCurrentImages(ctx, projectID)
	if err != nil {
		return "", err
	}

	slides := make([]pptxSlide, len(images))
	for i, image := range images {
		slides[i] = pptxSlide{Image: image}
	}

	pptxData, err := buildPPTX(slides)
	if err != nil {
		return "", fmt.Errorf("failed to build PPTX: %w", err)
	}

	path, err := d.Artifacts.Save(ctx, projectID.String(), categoryExports, filename, pptxData)
	if err != nil {
		return "", fmt.Errorf("failed to store export: %w", err)
	}
	return path, nil
}

// ExportEditableDeckInput identifies the work of one editable export task.
type ExportEditableDeckInput struct {
	TaskID    uuid.UUID
	ProjectID uuid.UUID

	// Filename is the name of the resulting .pptx artifact.
	Filename string
}

// ExportEditableDeck rebuilds the deck as an editable presentation:
//
//  1. collect the current image of every page, in page order
//  2. strip text from each image in a bounded parallel fan-out, producing
//     clean backgrounds (failures fall back to the original image)
//  3. assemble the original images into a PDF
//  4. send the PDF to the document parser to recover the deck's text
//  5. rebuild a PPTX with the clean backgrounds and the parsed text as
//     editable text boxes
//
// Stage 2 failures only degrade individual slides; failures in the other
// stages fail the task.
func (d *Deps) ExportEditableDeck(ctx context.Context, in ExportEditableDeckInput) error {
	log := d.logger().With(
		slog.String("task_id", in.TaskID.String()),
		slog.String("project_id", in.ProjectID.String()),
	)

	images, _, err := d.collectCurrentImages(ctx, in.ProjectID)
	if err != nil {
		return err
	}

	if err := d.Tasks.SetProgressTotal(ctx, in.TaskID, len(images)); err != nil {
		log.Warn("failed to set task progress total", slog.String("error", err.Error()))
	}

	backgrounds := d.cleanBackgrounds(ctx, in.TaskID, images, log)

	pdfData, err := buildPDF(images)
	if err != nil {
		return fmt.Errorf("failed to build intermediate PDF: %w", err)
	}

	parsed, err := d.Parser.ParseDocument(ctx, in.Filename+".pdf", pdfData)
	if err != nil {
		return fmt.Errorf("document parse failed: %w", err)
	}

	texts := segmentMarkdown(parsed.Markdown, len(images))
	slides := make([]pptxSlide, len(images))
	for i := range images {
		slides[i] = pptxSlide{Image: backgrounds[i]}
		if texts[i] != "" {
			slides[i].Texts = strings.Split(texts[i], "\n\n")
		}
	}

	pptxData, err := buildPPTX(slides)
	if err != nil {
		return fmt.Errorf("failed to build PPTX: %w", err)
	}

	path, err := d.Artifacts.Save(ctx, in.ProjectID.String(), categoryExports, in.Filename, pptxData)
	if err != nil {
		return fmt.Errorf("failed to store export: %w", err)
	}

	log.Info("editable deck exported", slog.String("path", path))
	return nil
}

// cleanBackgrounds runs the clean-background edit over all images with
// bounded parallelism, reporting per-item progress. A failed item keeps its
// original image so the deck stays complete.
func (d *Deps) cleanBackgrounds(ctx context.Context, taskID uuid.UUID, images [][]byte, log *slog.Logger) [][]byte {
	workers := int64(d.ExportWorkers)
	if workers <= 0 {
		workers = 1
	}

	sem := semaphore.NewWeighted(workers)
	backgrounds := make([][]byte, len(images))
	var wg sync.WaitGroup

	prompt := buildCleanBackgroundPrompt()
	for i, image := range images {
		backgrounds[i] = image

		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled; remaining items keep their originals.
			if incErr := d.Tasks.IncrementProgress(ctx, taskID, 0, 1); incErr != nil {
				log.Warn("failed to increment task progress", slog.String("error", incErr.Error()))
			}
			continue
		}

		wg.Add(1)
		go func(i int, image []byte) {
			defer wg.Done()
			defer sem.Release(1)

			edited, err := d.Generator.EditImage(ctx, generation.EditRequest{
				Instruction: prompt,
				BaseImage:   image,
			})
			if err != nil {
				log.Warn("clean-background edit failed, keeping original",
					slog.Int("slide", i+1),
					slog.String("error", err.Error()))
				if incErr := d.Tasks.IncrementProgress(ctx, taskID, 0, 1); incErr != nil {
					log.Warn("failed to increment task progress", slog.String("error", incErr.Error()))
				}
				return
			}

			backgrounds[i] = edited.Data
			if incErr := d.Tasks.IncrementProgress(ctx, taskID, 1, 0); incErr != nil {
				log.Warn("failed to increment task progress", slog.String("error", incErr.Error()))
			}
		}(i, image)
	}

	wg.Wait()
	return backgrounds
}

// collectCurrentImages loads the current image of every page that has one,
// in page order. Returns ErrNoGeneratedImages when no page has an image.
func (d *Deps) collectCurrentImages(ctx context.Context, projectID uuid.UUID) ([][]byte, []*domain.Page, error) {
	pages, err := d.Pages.ListByProject(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list project pages: %w", err)
	}

	var images [][]byte
	var withImages []*domain.Page
	for _, page := range pages {
		if !page.HasGeneratedImage() {
			continue
		}
		data, err := d.Artifacts.Read(ctx, page.GeneratedImagePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read image for page %s: %w", page.ID, err)
		}
		images = append(images, data)
		withImages = append(withImages, page)
	}

	if len(images) == 0 {
		return nil, nil, ErrNoGeneratedImages
	}
	return images, withImages, nil
}

// segmentMarkdown splits parsed deck markdown into n per-slide segments.
// Top-level headings start a new segment, matching how slide titles come back
// from the parser. When the heading count does not line up with the slide
// count, segments are assigned in order and the remainder is merged into the
// last slide, so no text is lost.
func segmentMarkdown(markdown string, n int) []string {
	segments := make([]string, n)
	if n == 0 || strings.TrimSpace(markdown) == "" {
		return segments
	}

	var parts []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			parts = append(parts, strings.TrimSpace(strings.Join(current, "\n")))
			current = nil
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "# ") {
			flush()
		}
		current = append(current, line)
	}
	flush()

	for i, part := range parts {
		if i < n {
			segments[i] = part
		} else {
			segments[n-1] = segments[n-1] + "\n\n" + part
		}
	}
	return segments
}
