package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/platform/logger"
	"github.com/slidesmith/slidesmith-api/internal/store"
)

// PostgresPageStore implements the store.PageStore interface using PostgreSQL.
// Outline and description are stored as JSONB so their shape can evolve
// without migrations.
type PostgresPageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPageStore creates a new PostgresPageStore.
func NewPostgresPageStore(db store.DBTX, logger *slog.Logger) *PostgresPageStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPageStore{
		db:     db,
		logger: logger.With(slog.String("component", "page_store")),
	}
}

// Ensure PostgresPageStore implements store.PageStore
var _ store.PageStore = (*PostgresPageStore)(nil)

// Create saves a new page.
func (s *PostgresPageStore) Create(ctx context.Context, page *domain.Page) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := page.Validate(); err != nil {
		log.Warn("page validation failed during create",
			slog.String("error", err.Error()),
			slog.String("page_id", page.ID.String()))
		return err
	}

	outlineJSON, descriptionJSON, err := marshalPageContent(page)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pages (id, project_id, order_index, part, outline,
			description, generated_image_path, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(ctx, query,
		page.ID,
		page.ProjectID,
		page.OrderIndex,
		page.Part,
		outlineJSON,
		descriptionJSON,
		page.GeneratedImagePath,
		page.Status,
		page.CreatedAt,
		page.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			log.Warn("page references missing project",
				slog.String("page_id", page.ID.String()),
				slog.String("project_id", page.ProjectID.String()))
			return store.ErrInvalidEntity
		}
		log.Error("failed to save page",
			slog.String("page_id", page.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to save page: %w", err)
	}

	return nil
}

// GetByID retrieves a page by its ID.
func (s *PostgresPageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Page, error) {
	query := `
		SELECT id, project_id, order_index, part, outline, description,
			generated_image_path, status, created_at, updated_at
		FROM pages
		WHERE id = $1
	`

	page, err := scanPage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPageNotFound
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	return page, nil
}

// ListByProject returns the project's pages ordered by position.
func (s *PostgresPageStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Page, error) {
	query := `
		SELECT id, project_id, order_index, part, outline, description,
			generated_image_path, status, created_at, updated_at
		FROM pages
		WHERE project_id = $1
		ORDER BY order_index ASC
	`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pages []*domain.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pages: %w", err)
	}

	return pages, nil
}

// Update saves changes to an existing page.
func (s *PostgresPageStore) Update(ctx context.Context, page *domain.Page) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := page.Validate(); err != nil {
		log.Warn("page validation failed during update",
			slog.String("error", err.Error()),
			slog.String("page_id", page.ID.String()))
		return err
	}

	outlineJSON, descriptionJSON, err := marshalPageContent(page)
	if err != nil {
		return err
	}

	page.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE pages
		SET order_index = $1, part = $2, outline = $3, description = $4,
			generated_image_path = $5, status = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := s.db.ExecContext(ctx, query,
		page.OrderIndex,
		page.Part,
		outlineJSON,
		descriptionJSON,
		page.GeneratedImagePath,
		page.Status,
		page.UpdatedAt,
		page.ID,
	)
	if err != nil {
		log.Error("failed to update page",
			slog.String("page_id", page.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to update page: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrPageNotFound
	}

	return nil
}

// Delete removes a page; its image versions cascade at the schema level.
func (s *PostgresPageStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrPageNotFound
	}

	return nil
}

// ShiftOrderFrom increments the order index of all pages in the project at or
// after the given position.
func (s *PostgresPageStore) ShiftOrderFrom(ctx context.Context, projectID uuid.UUID, orderIndex int) error {
	query := `
		UPDATE pages
		SET order_index = order_index + 1, updated_at = $1
		WHERE project_id = $2 AND order_index >= $3
	`
	_, err := s.db.ExecContext(ctx, query, time.Now().UTC(), projectID, orderIndex)
	if err != nil {
		return fmt.Errorf("failed to shift page order: %w", err)
	}

	return nil
}

// WithTx returns a PageStore bound to the provided transaction.
func (s *PostgresPageStore) WithTx(tx *sql.Tx) store.PageStore {
	return &PostgresPageStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type rowScanner interface {
	Scan(dest ...any) error
}

func marshalPageContent(page *domain.Page) (outline, description []byte, err error) {
	if page.Outline != nil {
		outline, err = json.Marshal(page.Outline)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal page outline: %w", err)
		}
	}
	if page.Description != nil {
		description, err = json.Marshal(page.Description)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal page description: %w", err)
		}
	}
	return outline, description, nil
}

func scanPage(row rowScanner) (*domain.Page, error) {
	var page domain.Page
	var outlineJSON, descriptionJSON []byte

	err := row.Scan(
		&page.ID,
		&page.ProjectID,
		&page.OrderIndex,
		&page.Part,
		&outlineJSON,
		&descriptionJSON,
		&page.GeneratedImagePath,
		&page.Status,
		&page.CreatedAt,
		&page.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(outlineJSON) > 0 {
		var outline domain.PageOutline
		if err := json.Unmarshal(outlineJSON, &outline); err != nil {
			return nil, fmt.Errorf("failed to unmarshal page outline: %w", err)
		}
		page.Outline = &outline
	}
	if len(descriptionJSON) > 0 {
		var description domain.PageDescription
		if err := json.Unmarshal(descriptionJSON, &description); err != nil {
			return nil, fmt.Errorf("failed to unmarshal page description: %w", err)
		}
		page.Description = &description
	}

	return &page, nil
}
