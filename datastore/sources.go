package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/UoMCS/bigscreen/models"
)

// ErrSourceNotFound is returned by lookups and updates of a missing source.
var ErrSourceNotFound = errors.New("slide source not found")

// SourceRepository handles database operations for slide_sources. The same
// queries run against Postgres and SQLite.
type SourceRepository struct {
	db *sql.DB
}

func NewSourceRepository(db *sql.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

const sourceColumns = `id, name, module_name, arguments, enabled, last_checked_at, created_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (models.SlideSource, error) {
	var (
		source      models.SlideSource
		encodedArgs string
		lastChecked sql.NullTime
	)
	if err := row.Scan(&source.ID, &source.Name, &source.ModuleName, &encodedArgs, &source.Enabled, &lastChecked, &source.CreatedAt); err != nil {
		return source, err
	}
	args, err := models.ParseArguments(encodedArgs)
	if err != nil {
		return source, fmt.Errorf("source %d has malformed arguments: %w", source.ID, err)
	}
	source.Arguments = args
	if lastChecked.Valid {
		t := lastChecked.Time
		source.LastCheckedAt = &t
	}
	return source, nil
}

func validateSource(source *models.SlideSource) error {
	if source.ID == 0 {
		return fmt.Errorf("slide source ID cannot be zero")
	}
	if source.Name == "" {
		return fmt.Errorf("slide source name cannot be empty")
	}
	if source.ModuleName == "" {
		return fmt.Errorf("slide source module name cannot be empty")
	}
	return nil
}

func (r *SourceRepository) CreateSource(ctx context.Context, source *models.SlideSource) error {
	if err := validateSource(source); err != nil {
		return err
	}

	query := `
		INSERT INTO slide_sources (id, name, module_name, arguments, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, source.ID, source.Name, source.ModuleName, source.Arguments.Encode(), source.Enabled, source.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert slide source: %w", err)
	}
	return nil
}

func (r *SourceRepository) GetSourceByID(ctx context.Context, sourceID int64) (*models.SlideSource, error) {
	query := `SELECT ` + sourceColumns + ` FROM slide_sources WHERE id = $1`
	source, err := scanSource(r.db.QueryRowContext(ctx, query, sourceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("source %d: %w", sourceID, ErrSourceNotFound)
		}
		return nil, fmt.Errorf("failed to get slide source by ID: %w", err)
	}
	return &source, nil
}

// GetSources lists every source, enabled or not, for the admin API.
func (r *SourceRepository) GetSources(ctx context.Context) ([]models.SlideSource, error) {
	return r.querySources(ctx, `SELECT `+sourceColumns+` FROM slide_sources ORDER BY name ASC, id ASC`)
}

// ListEnabledSources returns the sources an aggregation run should invoke,
// ordered by module name and then id so runs iterate them deterministically.
func (r *SourceRepository) ListEnabledSources(ctx context.Context) ([]models.SlideSource, error) {
	return r.querySources(ctx, `SELECT `+sourceColumns+` FROM slide_sources WHERE enabled = TRUE ORDER BY module_name ASC, id ASC`)
}

func (r *SourceRepository) querySources(ctx context.Context, query string) ([]models.SlideSource, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query slide sources: %w", err)
	}
	defer rows.Close()

	sources := []models.SlideSource{}
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slide source row: %w", err)
		}
		sources = append(sources, source)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating slide source rows: %w", err)
	}
	return sources, nil
}

// UpdateSource overwrites the editable fields of an existing source.
func (r *SourceRepository) UpdateSource(ctx context.Context, source *models.SlideSource) error {
	if err := validateSource(source); err != nil {
		return err
	}

	query := `UPDATE slide_sources SET name = $1, module_name = $2, arguments = $3, enabled = $4 WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query, source.Name, source.ModuleName, source.Arguments.Encode(), source.Enabled, source.ID)
	if err != nil {
		return fmt.Errorf("failed to update slide source: %w", err)
	}
	return expectOneRow(res, source.ID)
}

func (r *SourceRepository) DeleteSource(ctx context.Context, sourceID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM slide_sources WHERE id = $1`, sourceID)
	if err != nil {
		return fmt.Errorf("failed to delete slide source: %w", err)
	}
	return expectOneRow(res, sourceID)
}

// MarkChecked records when a source was last invoked successfully.
func (r *SourceRepository) MarkChecked(ctx context.Context, sourceID int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE slide_sources SET last_checked_at = $1 WHERE id = $2`, at.UTC(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to mark slide source checked: %w", err)
	}
	return expectOneRow(res, sourceID)
}

func expectOneRow(res sql.Result, sourceID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("source %d: %w", sourceID, ErrSourceNotFound)
	}
	return nil
}
