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

// PostgresImageVersionStore implements the store.ImageVersionStore interface
// using PostgreSQL. Unlike the other stores it holds *sql.DB rather than
// store.DBTX: the ledger's clear-then-set transition and the page pointer
// update must commit together, so every mutating call opens its own
// transaction.
type PostgresImageVersionStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresImageVersionStore creates a new PostgresImageVersionStore.
func NewPostgresImageVersionStore(db *sql.DB, logger *slog.Logger) *PostgresImageVersionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresImageVersionStore{
		db:     db,
		logger: logger.With(slog.String("component", "image_version_store")),
	}
}

// Ensure PostgresImageVersionStore implements store.ImageVersionStore
var _ store.ImageVersionStore = (*PostgresImageVersionStore)(nil)

// CreateVersion appends a ledger entry with the page's next version number,
// makes it current and updates the page's image pointer, all in one
// transaction.
func (s *PostgresImageVersionStore) CreateVersion(ctx context.Context, pageID uuid.UUID, imagePath string) (*domain.PageImageVersion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	version, err := domain.NewPageImageVersion(pageID, imagePath)
	if err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the page row first so concurrent appends to the same page
		// serialize and cannot pick the same version number.
		var lockedID uuid.UUID
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM pages WHERE id = $1 FOR UPDATE`, pageID,
		).Scan(&lockedID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrPageNotFound
			}
			return fmt.Errorf("failed to lock page: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE page_image_versions SET is_current = FALSE WHERE page_id = $1 AND is_current`, pageID,
		); err != nil {
			return fmt.Errorf("failed to clear current version: %w", err)
		}

		err = tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(version_number), 0) + 1
			FROM page_image_versions
			WHERE page_id = $1
		`, pageID).Scan(&version.VersionNumber)
		if err != nil {
			return fmt.Errorf("failed to compute next version number: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO page_image_versions (id, page_id, image_path, version_number, is_current, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, version.ID, version.PageID, version.ImagePath, version.VersionNumber, version.IsCurrent, version.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert version: %w", err)
		}

		return updatePageImagePointer(ctx, tx, pageID, imagePath)
	})
	if err != nil {
		log.Error("failed to create image version",
			slog.String("page_id", pageID.String()),
			slog.String("error", err.Error()))
		return nil, err
	}

	return version, nil
}

// GetByID retrieves a single ledger entry.
func (s *PostgresImageVersionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PageImageVersion, error) {
	query := `
		SELECT id, page_id, image_path, version_number, is_current, created_at
		FROM page_image_versions
		WHERE id = $1
	`

	var version domain.PageImageVersion
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&version.ID,
		&version.PageID,
		&version.ImagePath,
		&version.VersionNumber,
		&version.IsCurrent,
		&version.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrVersionNotFound
		}
		return nil, fmt.Errorf("failed to get image version: %w", err)
	}

	return &version, nil
}

// ListByPage returns the page's versions ordered newest first.
func (s *PostgresImageVersionStore) ListByPage(ctx context.Context, pageID uuid.UUID) ([]*domain.PageImageVersion, error) {
	query := `
		SELECT id, page_id, image_path, version_number, is_current, created_at
		FROM page_image_versions
		WHERE page_id = $1
		ORDER BY version_number DESC
	`

	rows, err := s.db.QueryContext(ctx, query, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list image versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []*domain.PageImageVersion
	for rows.Next() {
		var version domain.PageImageVersion
		if err := rows.Scan(
			&version.ID,
			&version.PageID,
			&version.ImagePath,
			&version.VersionNumber,
			&version.IsCurrent,
			&version.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan image version: %w", err)
		}
		versions = append(versions, &version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate image versions: %w", err)
	}

	return versions, nil
}

// SetCurrent promotes an existing version to current, clearing siblings and
// updating the page pointer in one transaction. Promoting the version that is
// already current is a no-op that still succeeds.
func (s *PostgresImageVersionStore) SetCurrent(ctx context.Context, versionID uuid.UUID) (*domain.PageImageVersion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var version domain.PageImageVersion

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			SELECT id, page_id, image_path, version_number, is_current, created_at
			FROM page_image_versions
			WHERE id = $1
			FOR UPDATE
		`, versionID).Scan(
			&version.ID,
			&version.PageID,
			&version.ImagePath,
			&version.VersionNumber,
			&version.IsCurrent,
			&version.CreatedAt,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrVersionNotFound
			}
			return fmt.Errorf("failed to get image version: %w", err)
		}

		if !version.IsCurrent {
			if _, err := tx.ExecContext(ctx,
				`UPDATE page_image_versions SET is_current = FALSE WHERE page_id = $1 AND is_current`,
				version.PageID,
			); err != nil {
				return fmt.Errorf("failed to clear current version: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE page_image_versions SET is_current = TRUE WHERE id = $1`, versionID,
			); err != nil {
				return fmt.Errorf("failed to set current version: %w", err)
			}
			version.IsCurrent = true
		}

		return updatePageImagePointer(ctx, tx, version.PageID, version.ImagePath)
	})
	if err != nil {
		log.Error("failed to set current image version",
			slog.String("version_id", versionID.String()),
			slog.String("error", err.Error()))
		return nil, err
	}

	return &version, nil
}

// updatePageImagePointer keeps the page's denormalized image path in step
// with the current ledger entry.
func updatePageImagePointer(ctx context.Context, tx *sql.Tx, pageID uuid.UUID, imagePath string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE pages
		SET generated_image_path = $1, status = $2, updated_at = $3
		WHERE id = $4
	`, imagePath, domain.PageStatusImageGenerated, time.Now().UTC(), pageID)
	if err != nil {
		return fmt.Errorf("failed to update page image pointer: %w", err)
	}
	return nil
}
