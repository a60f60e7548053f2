package store

import "errors"

// Sentinel errors returned by store implementations. Services map these to
// their own error vocabulary; handlers map those to HTTP statuses.
var (
	ErrProjectNotFound       = errors.New("project not found")
	ErrPageNotFound          = errors.New("page not found")
	ErrVersionNotFound       = errors.New("image version not found")
	ErrMaterialNotFound      = errors.New("material not found")
	ErrReferenceFileNotFound = errors.New("reference file not found")
	ErrTaskNotFound          = errors.New("task not found")

	// ErrInvalidEntity indicates the entity references missing related data
	// (e.g. a foreign key violation).
	ErrInvalidEntity = errors.New("invalid entity")
)
