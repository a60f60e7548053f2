// Package generation defines the boundaries between the application core and
// external AI services. It abstracts image generation/editing (Gemini) and
// document parsing (MinerU) behind small interfaces so pipelines stay
// decoupled from specific providers.
package generation
