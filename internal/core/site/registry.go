package site

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
)

// Registry provides access to site metadata.
type Registry interface {
	// GetByID retrieves site by id.
	GetByID(ctx context.Context, siteID string) (*Site, error)

	// ListActive returns all active sites ordered by slug.
	ListActive(ctx context.Context) ([]*Site, error)
}

// PostgresRegistry implements Registry on the sites table.
type PostgresRegistry struct {
	db pgxscan.Querier
}

func NewPostgresRegistry(db pgxscan.Querier) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

func (r *PostgresRegistry) GetByID(ctx context.Context, siteID string) (*Site, error) {
	var s Site
	err := pgxscan.Get(ctx, r.db, &s, `
		SELECT id, slug, display_name, status, opening_month, created_at, updated_at
		FROM sites
		WHERE id = $1
	`, siteID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrSiteNotFound
		}
		return nil, fmt.Errorf("get site by id: %w", err)
	}
	return &s, nil
}

func (r *PostgresRegistry) ListActive(ctx context.Context) ([]*Site, error) {
	var sites []*Site
	err := pgxscan.Select(ctx, r.db, &sites, `
		SELECT id, slug, display_name, status, opening_month, created_at, updated_at
		FROM sites
		WHERE status = $1
		ORDER BY slug
	`, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active sites: %w", err)
	}
	return sites, nil
}

// Register inserts s unless a site with the same id exists. It reports whether a row was created.
func (r *PostgresRegistry) Register(ctx context.Context, s *Site) (bool, error) {
	rows, err := r.db.Query(ctx, `
		INSERT INTO sites (id, slug, display_name, status, opening_month)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
		RETURNING id
	`, s.ID, s.Slug, s.DisplayName, s.Status, s.OpeningDate)
	if err != nil {
		return false, fmt.Errorf("register site: %w", err)
	}
	defer rows.Close()

	created := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("register site: %w", err)
	}
	return created, nil
}

var _ Registry = (*PostgresRegistry)(nil)
