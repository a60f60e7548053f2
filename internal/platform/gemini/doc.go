// Package gemini implements the generation.ImageGenerator interface on top
// of Google's Gemini image model. It owns prompt construction for slide
// rendering and editing, per-call timeouts, and retry with exponential
// backoff for transient API failures.
package gemini
