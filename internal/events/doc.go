// Package events decouples the services that accept generation requests from
// the pipeline code that executes them. A service persists a task record,
// emits a TaskRequestEvent carrying the record's ID and a typed payload, and
// a handler on the other side builds the pipeline task and submits it to the
// runner. Services never import pipeline construction this way, avoiding
// circular dependencies.
package events
