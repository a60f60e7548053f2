package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/slidesmith/slidesmith-api/internal/domain"
)

// slidePromptInput carries everything that shapes a single slide render
// prompt.
type slidePromptInput struct {
	// Outline is the reconstructed deck outline, giving the model the
	// position of this slide within the whole presentation.
	Outline []domain.OutlineNode

	// Page is the outline entry of the slide being rendered.
	Page *domain.PageOutline

	// Part is the section the slide belongs to, if any.
	Part string

	// Description is the visual description the render must follow.
	Description string

	// Requirements is the project's combined extra requirements and style
	// description, already merged by domain.Project.CombinedRequirements.
	Requirements string

	// HasTemplate indicates a template image accompanies the prompt as a
	// style reference.
	HasTemplate bool

	// HasMaterialImages indicates material images from the description
	// accompany the prompt and must be reproduced on the slide.
	HasMaterialImages bool

	AspectRatio string
	Resolution  string
	Language    string
}

// buildSlidePrompt renders the prompt for a single page image generation.
func buildSlidePrompt(in slidePromptInput) string {
	var b strings.Builder

	b.WriteString("Create a presentation slide image.\n\n")

	if in.Page != nil {
		fmt.Fprintf(&b, "Slide title: %s\n", in.Page.Title)
		if in.Part != "" {
			fmt.Fprintf(&b, "Slide section: %s\n", in.Part)
		}
		if len(in.Page.Points) > 0 {
			b.WriteString("Key points:\n")
			for _, point := range in.Page.Points {
				fmt.Fprintf(&b, "- %s\n", point)
			}
		}
		b.WriteString("\n")
	}

	if len(in.Outline) > 0 {
		if outlineJSON, err := json.MarshalIndent(in.Outline, "", "  "); err == nil {
			b.WriteString("Full presentation outline, for context on where this slide sits:\n")
			b.Write(outlineJSON)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("Slide content description, follow it closely:\n")
	b.WriteString(in.Description)
	b.WriteString("\n\n")

	if in.HasTemplate {
		b.WriteString("Use the attached template image as the style reference: match its layout, color palette, fonts and decoration.\n")
	}
	if in.HasMaterialImages {
		b.WriteString("The remaining attached images are materials referenced by the description; reproduce them on the slide where the description places them.\n")
	}

	writeRenderConstraints(&b, in.AspectRatio, in.Resolution, in.Language)

	if in.Requirements != "" {
		b.WriteString("\nAdditional requirements:\n")
		b.WriteString(in.Requirements)
		b.WriteString("\n")
	}

	return b.String()
}

// editPromptInput carries the parameters of an image edit prompt.
type editPromptInput struct {
	Instruction string

	// Description is the original slide description, included so the edit
	// keeps the slide's intent intact.
	Description string

	AspectRatio string
	Resolution  string
}

// buildEditPrompt renders the prompt for an instruction-driven image edit.
func buildEditPrompt(in editPromptInput) string {
	var b strings.Builder

	b.WriteString("Edit the attached slide image. Apply only the requested change and keep everything else identical.\n\n")
	b.WriteString("Requested change:\n")
	b.WriteString(in.Instruction)
	b.WriteString("\n")

	if in.Description != "" {
		b.WriteString("\nFor context, the slide was generated from this description:\n")
		b.WriteString(in.Description)
		b.WriteString("\n")
	}

	writeRenderConstraints(&b, in.AspectRatio, in.Resolution, "")

	return b.String()
}

// buildMaterialPrompt renders the prompt for a standalone material
// illustration (chart, diagram, decorative image).
func buildMaterialPrompt(name, prompt, requirements, aspectRatio, resolution string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create an illustration asset named %q for use inside a presentation slide.\n\n", name)
	b.WriteString("Asset description:\n")
	b.WriteString(prompt)
	b.WriteString("\n")

	b.WriteString("\nRender the asset on a clean background so it composes well onto a slide.\n")
	writeRenderConstraints(&b, aspectRatio, resolution, "")

	if requirements != "" {
		b.WriteString("\nAdditional requirements:\n")
		b.WriteString(requirements)
		b.WriteString("\n")
	}

	return b.String()
}

// buildCleanBackgroundPrompt renders the edit prompt that strips all text and
// foreground graphics from a slide, leaving only the background. The export
// pipeline layers parsed text back on top of these backgrounds.
func buildCleanBackgroundPrompt() string {
	return "Remove all text, charts, icons and foreground graphics from the attached slide image. " +
		"Keep only the background: its colors, gradients, textures and decorative frame. " +
		"Do not add anything new and do not change the image dimensions."
}

// writeRenderConstraints appends the shared output constraints to a prompt.
func writeRenderConstraints(b *strings.Builder, aspectRatio, resolution, language string) {
	b.WriteString("\nOutput constraints:\n")
	if aspectRatio != "" {
		fmt.Fprintf(b, "- Aspect ratio: %s\n", aspectRatio)
	}
	if resolution != "" {
		fmt.Fprintf(b, "- Resolution: %s\n", resolution)
	}
	if language != "" {
		fmt.Fprintf(b, "- All text on the slide must be written in: %s\n", language)
	}
}
