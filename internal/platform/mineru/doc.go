// Package mineru implements the generation.DocumentParser interface against
// a MinerU-compatible document parsing service. Parsing is asynchronous on
// the service side: the client uploads the document, then polls the task
// endpoint until the parse finishes or the configured poll window elapses.
package mineru
