package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricelens/pricelens/internal/domain"
)

// CatalogStore implements domain.CatalogStore using PostgreSQL. Price-history
// derived fields of ProductLatest (previous price, streak window, prior
// extremes) are computed at read time with window aggregates over
// price_points, so they stay consistent with the raw observations no matter
// what the ingestion side denormalizes.
type CatalogStore struct {
	pool *pgxpool.Pool
}

// NewCatalogStore creates a CatalogStore backed by the given connection pool.
func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

// ListSources returns all configured sources.
func (s *CatalogStore) ListSources(ctx context.Context) ([]domain.Source, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT slug, display_name, enabled, source_type,
		       last_successful_run_id, last_successful_at
		FROM sources
		ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sources: %w", err)
	}
	defer rows.Close()

	sources := []domain.Source{}
	for rows.Next() {
		var src domain.Source
		if err := rows.Scan(
			&src.Slug, &src.DisplayName, &src.Enabled, &src.Type,
			&src.LastSuccessfulRunID, &src.LastSuccessfulAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan source: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list sources rows: %w", err)
	}
	return sources, nil
}

// ListRuns returns scrape runs matching the filter, most recent first.
func (s *CatalogStore) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error) {
	query := `
		SELECT id, source_slug, status, started_at, completed_at, products_found, error
		FROM scrape_runs
		WHERE TRUE`
	args := []any{}
	argIdx := 1

	if filter.SourceSlug != "" {
		query += fmt.Sprintf(" AND source_slug = $%d", argIdx)
		args = append(args, filter.SourceSlug)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND started_at >= $%d", argIdx)
		args = append(args, filter.Since)
		argIdx++
	}

	query += " ORDER BY started_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	defer rows.Close()

	runs := []domain.Run{}
	for rows.Next() {
		var r domain.Run
		var status string
		if err := rows.Scan(
			&r.ID, &r.SourceSlug, &status, &r.StartedAt,
			&r.CompletedAt, &r.ProductsFound, &r.Error,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		r.Status = domain.RunStatus(status)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list runs rows: %w", err)
	}
	return runs, nil
}

// productLatestQuery joins the latest product state with history-derived
// fields. rn = 1 is the most recent observation; the streak window holds the
// four most recent prices, newest first.
const productLatestQuery = `
	WITH ranked AS (
		SELECT source_slug, item_id, ts, price,
		       ROW_NUMBER() OVER (
		           PARTITION BY source_slug, item_id ORDER BY ts DESC
		       ) AS rn
		FROM price_points
	),
	history AS (
		SELECT source_slug, item_id,
		       MAX(price) FILTER (WHERE rn = 2) AS prev_price,
		       MAX(ts)    FILTER (WHERE rn = 2) AS prev_price_at,
		       ARRAY_AGG(price ORDER BY rn) FILTER (WHERE rn <= 4) AS streak_prices,
		       MIN(price) AS min_price,
		       MAX(price) AS max_price,
		       MIN(price) FILTER (WHERE rn > 1) AS min_prev_price,
		       MAX(price) FILTER (WHERE rn > 1) AS max_prev_price
		FROM ranked
		GROUP BY source_slug, item_id
	)
	SELECT p.source_slug, p.item_id, p.name, p.url, p.currency,
	       p.last_price, h.prev_price, h.prev_price_at, h.streak_prices,
	       h.min_price, h.max_price, h.min_prev_price, h.max_prev_price,
	       p.first_seen_at, p.last_seen_at, COALESCE(p.last_seen_run_id, 0)
	FROM products_latest p
	LEFT JOIN history h
	  ON h.source_slug = p.source_slug AND h.item_id = p.item_id`

// ListProductsLatest returns the latest state of every item, optionally
// restricted to one source.
func (s *CatalogStore) ListProductsLatest(ctx context.Context, sourceSlug string) ([]domain.ProductLatest, error) {
	query := productLatestQuery
	args := []any{}
	if sourceSlug != "" {
		query += " WHERE p.source_slug = $1"
		args = append(args, sourceSlug)
	}
	query += " ORDER BY p.source_slug, p.item_id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list products: %w", err)
	}
	defer rows.Close()

	products := []domain.ProductLatest{}
	for rows.Next() {
		p, err := scanProductLatest(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list products rows: %w", err)
	}
	return products, nil
}

// scanProductLatest scans one row of productLatestQuery and derives the
// price-change fields from the two most recent observations.
func scanProductLatest(row pgx.Row) (domain.ProductLatest, error) {
	var p domain.ProductLatest
	err := row.Scan(
		&p.SourceSlug, &p.ItemID, &p.Name, &p.URL, &p.Currency,
		&p.LastPrice, &p.PrevPrice, &p.PrevPriceAt, &p.StreakPrices,
		&p.MinPrice, &p.MaxPrice, &p.MinPrevPrice, &p.MaxPrevPrice,
		&p.FirstSeenAt, &p.LastSeenAt, &p.LastSeenRunID,
	)
	if err != nil {
		return domain.ProductLatest{}, err
	}

	if p.LastPrice != nil && p.PrevPrice != nil && *p.PrevPrice > 0 {
		change := *p.LastPrice - *p.PrevPrice
		pct := change / *p.PrevPrice * 100
		p.PriceChange = &change
		p.PriceChangePct = &pct
	}
	return p, nil
}

// ListPricePoints returns up to limit observations for one item, most recent
// first.
func (s *CatalogStore) ListPricePoints(ctx context.Context, sourceSlug, itemID string, limit int) ([]domain.PricePoint, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM products_latest WHERE source_slug = $1 AND item_id = $2
		)`, sourceSlug, itemID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("postgres: check product %s/%s: %w", sourceSlug, itemID, err)
	}
	if !exists {
		return nil, fmt.Errorf("postgres: product %s/%s: %w", sourceSlug, itemID, domain.ErrNotFound)
	}

	query := `
		SELECT source_slug, item_id, ts, price, currency, COALESCE(run_id, 0)
		FROM price_points
		WHERE source_slug = $1 AND item_id = $2
		ORDER BY ts DESC`
	args := []any{sourceSlug, itemID}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list price points %s/%s: %w", sourceSlug, itemID, err)
	}
	defer rows.Close()

	points := []domain.PricePoint{}
	for rows.Next() {
		var pt domain.PricePoint
		if err := rows.Scan(
			&pt.SourceSlug, &pt.ItemID, &pt.Ts, &pt.Price, &pt.Currency, &pt.RunID,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan price point: %w", err)
		}
		points = append(points, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list price points rows: %w", err)
	}
	return points, nil
}

// ListCanonicalsWithLinks returns canonical products with link aggregates,
// optionally filtered by a case-insensitive name substring.
func (s *CatalogStore) ListCanonicalsWithLinks(ctx context.Context, limit int, query string) ([]domain.CanonicalSummary, error) {
	sql := `
		SELECT c.id, c.name, c.description, c.created_at, c.updated_at,
		       COUNT(l.item_id) AS link_count,
		       COALESCE(
		           ARRAY_AGG(DISTINCT l.source_slug) FILTER (WHERE l.source_slug IS NOT NULL),
		           '{}'
		       ) AS sources,
		       MIN(l.created_at) AS first_linked_at,
		       MAX(l.created_at) AS last_linked_at
		FROM canonical_products c
		LEFT JOIN product_links l ON l.canonical_id = c.id`
	args := []any{}
	argIdx := 1

	if query != "" {
		sql += fmt.Sprintf(" WHERE c.name ILIKE $%d", argIdx)
		args = append(args, "%"+query+"%")
		argIdx++
	}

	sql += `
		GROUP BY c.id
		ORDER BY c.id`

	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list canonicals: %w", err)
	}
	defer rows.Close()

	summaries := []domain.CanonicalSummary{}
	for rows.Next() {
		var cs domain.CanonicalSummary
		if err := rows.Scan(
			&cs.Canonical.ID, &cs.Canonical.Name, &cs.Canonical.Description,
			&cs.Canonical.CreatedAt, &cs.Canonical.UpdatedAt,
			&cs.LinkCount, &cs.SourcesPreview,
			&cs.FirstLinkedAt, &cs.LastLinkedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan canonical: %w", err)
		}
		if cs.SourcesPreview == nil {
			cs.SourcesPreview = []string{}
		}
		summaries = append(summaries, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list canonicals rows: %w", err)
	}
	return summaries, nil
}

// GetLinksForCanonical returns the listings linked to one canonical, joined
// with their latest state.
func (s *CatalogStore) GetLinksForCanonical(ctx context.Context, canonicalID int64) ([]domain.LinkedListing, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM canonical_products WHERE id = $1)", canonicalID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("postgres: check canonical %d: %w", canonicalID, err)
	}
	if !exists {
		return nil, fmt.Errorf("postgres: canonical %d: %w", canonicalID, domain.ErrNotFound)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT l.canonical_id, l.source_slug, l.item_id, l.created_at,
		       COALESCE(p.name, ''), COALESCE(p.url, ''), COALESCE(p.currency, ''),
		       p.last_price, p.last_seen_at
		FROM product_links l
		LEFT JOIN products_latest p
		  ON p.source_slug = l.source_slug AND p.item_id = l.item_id
		WHERE l.canonical_id = $1
		ORDER BY l.source_slug, l.item_id`, canonicalID)
	if err != nil {
		return nil, fmt.Errorf("postgres: links for canonical %d: %w", canonicalID, err)
	}
	defer rows.Close()

	listings := []domain.LinkedListing{}
	for rows.Next() {
		var l domain.LinkedListing
		if err := rows.Scan(
			&l.CanonicalID, &l.SourceSlug, &l.ItemID, &l.LinkedAt,
			&l.Name, &l.URL, &l.Currency, &l.Price, &l.LastSeenAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan linked listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: links for canonical %d rows: %w", canonicalID, err)
	}
	return listings, nil
}

// Compile-time interface check.
var _ domain.CatalogStore = (*CatalogStore)(nil)
