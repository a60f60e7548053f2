package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ParseStatus represents the parse state of a reference file. It is a state
// machine independent of TaskRecord: pending -> parsing -> {completed, failed},
// with an explicit reparse resetting terminal states back to pending.
type ParseStatus string

// Possible parse status values
const (
	ParseStatusPending   ParseStatus = "pending"
	ParseStatusParsing   ParseStatus = "parsing"
	ParseStatusCompleted ParseStatus = "completed"
	ParseStatusFailed    ParseStatus = "failed"
)

// Common validation errors for ReferenceFile
var (
	ErrEmptyReferenceFileID   = errors.New("reference file ID cannot be empty")
	ErrEmptyReferenceFilename = errors.New("reference file name cannot be empty")
	ErrInvalidParseStatus     = errors.New("invalid parse status")
	ErrParseInProgress        = errors.New("a parse is already in progress for this file")
)

// ReferenceFile is an uploaded document whose parsed markdown content is fed
// into generation prompts as project background material. ProjectID is nil
// for global files available to every project.
type ReferenceFile struct {
	ID              uuid.UUID   `json:"id"`
	ProjectID       *uuid.UUID  `json:"project_id,omitempty"`
	Filename        string      `json:"filename"`
	StoredPath      string      `json:"stored_path"`
	ParseStatus     ParseStatus `json:"parse_status"`
	MarkdownContent string      `json:"markdown_content,omitempty"`
	ErrorMessage    string      `json:"error_message,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// NewReferenceFile creates a pending ReferenceFile. projectID may be nil for
// global files.
func NewReferenceFile(projectID *uuid.UUID, filename, storedPath string) (*ReferenceFile, error) {
	file := &ReferenceFile{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Filename:    filename,
		StoredPath:  storedPath,
		ParseStatus: ParseStatusPending,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := file.Validate(); err != nil {
		return nil, err
	}

	return file, nil
}

// Validate checks if the ReferenceFile has valid data.
func (f *ReferenceFile) Validate() error {
	if f.ID == uuid.Nil {
		return ErrEmptyReferenceFileID
	}
	if f.Filename == "" {
		return ErrEmptyReferenceFilename
	}
	if !isValidParseStatus(f.ParseStatus) {
		return ErrInvalidParseStatus
	}
	return nil
}

// ResetForReparse returns a terminal (or pending) file to pending state and
// clears prior results. Returns ErrParseInProgress while a parse is active.
func (f *ReferenceFile) ResetForReparse() error {
	if f.ParseStatus == ParseStatusParsing {
		return ErrParseInProgress
	}
	f.ParseStatus = ParseStatusPending
	f.MarkdownContent = ""
	f.ErrorMessage = ""
	f.UpdatedAt = time.Now().UTC()
	return nil
}

func isValidParseStatus(status ParseStatus) bool {
	switch status {
	case ParseStatusPending, ParseStatusParsing, ParseStatusCompleted, ParseStatusFailed:
		return true
	default:
		return false
	}
}
