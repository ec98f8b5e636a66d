package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"linkmesh/internal/domain"
)

// UpsertTopology inserts or updates a topology source by slug.
func (r *Repository) UpsertTopology(ctx context.Context, source *domain.TopologySource) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO topologies (slug, url, protocol, version, metric) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			url = excluded.url,
			protocol = excluded.protocol,
			version = excluded.version,
			metric = excluded.metric
		RETURNING id
	`, source.Slug, source.URL, source.Protocol, source.Version, source.Metric).Scan(&source.ID)
	if err != nil {
		return fmt.Errorf("upsert topology %q: %w", source.Slug, err)
	}
	return nil
}

// GetTopologyBySlug returns a topology source, or (nil, nil) if unknown.
func (r *Repository) GetTopologyBySlug(ctx context.Context, slug string) (*domain.TopologySource, error) {
	source, err := r.scanTopology(r.db.QueryRowContext(ctx, `
		SELECT id, slug, url, protocol, version, metric FROM topologies WHERE slug = ?
	`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query topology %q: %w", slug, err)
	}
	return source, nil
}

// ListTopologies returns all topology sources.
func (r *Repository) ListTopologies(ctx context.Context) ([]*domain.TopologySource, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, slug, url, protocol, version, metric FROM topologies ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query topologies: %w", err)
	}
	defer rows.Close()

	var sources []*domain.TopologySource
	for rows.Next() {
		source, err := r.scanTopology(rows)
		if err != nil {
			return nil, fmt.Errorf("scan topology: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanTopology(row rowScanner) (*domain.TopologySource, error) {
	var (
		source                    domain.TopologySource
		protocol, version, metric sql.NullString
	)
	if err := row.Scan(&source.ID, &source.Slug, &source.URL, &protocol, &version, &metric); err != nil {
		return nil, err
	}
	source.Protocol = protocol.String
	source.Version = version.String
	source.Metric = metric.String
	return &source, nil
}
