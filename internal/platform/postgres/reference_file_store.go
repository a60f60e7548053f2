package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/platform/logger"
	"github.com/slidesmith/slidesmith-api/internal/store"
)

// PostgresReferenceFileStore implements the store.ReferenceFileStore
// interface using PostgreSQL. project_id is nullable: NULL marks a global
// file visible to every project.
type PostgresReferenceFileStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReferenceFileStore creates a new PostgresReferenceFileStore.
func NewPostgresReferenceFileStore(db store.DBTX, logger *slog.Logger) *PostgresReferenceFileStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReferenceFileStore{
		db:     db,
		logger: logger.With(slog.String("component", "reference_file_store")),
	}
}

// Ensure PostgresReferenceFileStore implements store.ReferenceFileStore
var _ store.ReferenceFileStore = (*PostgresReferenceFileStore)(nil)

// Create saves a new reference file.
func (s *PostgresReferenceFileStore) Create(ctx context.Context, file *domain.ReferenceFile) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := file.Validate(); err != nil {
		log.Warn("reference file validation failed during create",
			slog.String("error", err.Error()),
			slog.String("file_id", file.ID.String()))
		return err
	}

	query := `
		INSERT INTO reference_files (id, project_id, filename, stored_path,
			parse_status, markdown_content, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		file.ID,
		file.ProjectID,
		file.Filename,
		file.StoredPath,
		file.ParseStatus,
		file.MarkdownContent,
		file.ErrorMessage,
		file.CreatedAt,
		file.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			log.Warn("reference file references missing project",
				slog.String("file_id", file.ID.String()))
			return store.ErrInvalidEntity
		}
		log.Error("failed to save reference file",
			slog.String("file_id", file.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to save reference file: %w", err)
	}

	return nil
}

// GetByID retrieves a reference file by its ID.
func (s *PostgresReferenceFileStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReferenceFile, error) {
	query := `
		SELECT id, project_id, filename, stored_path, parse_status,
			markdown_content, error_message, created_at, updated_at
		FROM reference_files
		WHERE id = $1
	`

	file, err := scanReferenceFile(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrReferenceFileNotFound
		}
		return nil, fmt.Errorf("failed to get reference file: %w", err)
	}

	return file, nil
}

// ListByProject returns the files attached to a project, newest first. A nil
// projectID lists global files.
func (s *PostgresReferenceFileStore) ListByProject(ctx context.Context, projectID *uuid.UUID) ([]*domain.ReferenceFile, error) {
	query := `
		SELECT id, project_id, filename, stored_path, parse_status,
			markdown_content, error_message, created_at, updated_at
		FROM reference_files
		WHERE project_id IS NOT DISTINCT FROM $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reference files: %w", err)
	}
	return collectReferenceFiles(rows)
}

// List returns all reference files, newest first.
func (s *PostgresReferenceFileStore) List(ctx context.Context) ([]*domain.ReferenceFile, error) {
	query := `
		SELECT id, project_id, filename, stored_path, parse_status,
			markdown_content, error_message, created_at, updated_at
		FROM reference_files
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reference files: %w", err)
	}
	return collectReferenceFiles(rows)
}

// Update saves changes to an existing reference file.
func (s *PostgresReferenceFileStore) Update(ctx context.Context, file *domain.ReferenceFile) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := file.Validate(); err != nil {
		log.Warn("reference file validation failed during update",
			slog.String("error", err.Error()),
			slog.String("file_id", file.ID.String()))
		return err
	}

	file.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE reference_files
		SET parse_status = $1, markdown_content = $2, error_message = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := s.db.ExecContext(ctx, query,
		file.ParseStatus,
		file.MarkdownContent,
		file.ErrorMessage,
		file.UpdatedAt,
		file.ID,
	)
	if err != nil {
		log.Error("failed to update reference file",
			slog.String("file_id", file.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to update reference file: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrReferenceFileNotFound
	}

	return nil
}

// Delete removes a reference file.
func (s *PostgresReferenceFileStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reference_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reference file: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrReferenceFileNotFound
	}

	return nil
}

// WithTx returns a ReferenceFileStore bound to the provided transaction.
func (s *PostgresReferenceFileStore) WithTx(tx *sql.Tx) store.ReferenceFileStore {
	return &PostgresReferenceFileStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanReferenceFile(row rowScanner) (*domain.ReferenceFile, error) {
	var file domain.ReferenceFile
	var projectID uuid.NullUUID

	err := row.Scan(
		&file.ID,
		&projectID,
		&file.Filename,
		&file.StoredPath,
		&file.ParseStatus,
		&file.MarkdownContent,
		&file.ErrorMessage,
		&file.CreatedAt,
		&file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if projectID.Valid {
		id := projectID.UUID
		file.ProjectID = &id
	}

	return &file, nil
}

func collectReferenceFiles(rows *sql.Rows) ([]*domain.ReferenceFile, error) {
	defer func() { _ = rows.Close() }()

	var files []*domain.ReferenceFile
	for rows.Next() {
		file, err := scanReferenceFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reference file: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reference files: %w", err)
	}

	return files, nil
}
