// Package task manages background job queuing, processing, and lifecycle.
// It provides asynchronous execution of long-running generation work so HTTP
// handlers can return immediately with a task ID, and guarantees that every
// accepted task reaches exactly one terminal state even when its pipeline
// panics.
package task
