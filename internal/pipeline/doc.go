// Package pipeline contains the generation pipelines executed as background
// tasks: page image rendering, image editing, material illustration, and the
// multi-stage editable deck export. Pipelines receive everything they touch
// through an explicit Deps value; they never reach for globals.
//
// Validation belongs to the services: by the time a pipeline runs, its task
// record exists and its inputs were checked. Pipelines report progress
// through the task store and return an error only for failures that should
// fail the whole task.
package pipeline
