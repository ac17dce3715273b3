package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertObservationSQL = `INSERT INTO observations (
        commodity_name,
        product_name,
        source,
        category,
        unit,
        price,
        description,
        kind,
        search_term,
        observed_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    );`

	listByCommoditySQL = `SELECT
        id, commodity_name, product_name, source, category, unit,
        price, description, kind, search_term, observed_at
    FROM observations
    WHERE commodity_name = $1
    ORDER BY observed_at;`

	listByCategorySQL = `SELECT
        id, commodity_name, product_name, source, category, unit,
        price, description, kind, search_term, observed_at
    FROM observations
    WHERE category = $1
      AND kind = 'dashboard'
    ORDER BY observed_at;`

	listBySearchTermSQL = `SELECT
        id, commodity_name, product_name, source, category, unit,
        price, description, kind, search_term, observed_at
    FROM observations
    WHERE search_term = $1
      AND kind = 'live'
    ORDER BY observed_at;`

	latestPerSourceSQL = `SELECT DISTINCT ON (source)
        id, commodity_name, product_name, source, category, unit,
        price, description, kind, search_term, observed_at
    FROM observations
    WHERE commodity_name = $1
    ORDER BY source, observed_at DESC;`

	latestMatchingSQL = `SELECT
        id, commodity_name, product_name, source, category, unit,
        price, description, kind, search_term, observed_at
    FROM observations
    WHERE commodity_name ILIKE '%' || $1 || '%'
    ORDER BY observed_at DESC
    LIMIT 1;`

	listRecentSQL = `SELECT
        id, commodity_name, product_name, source, category, unit,
        price, description, kind, search_term, observed_at
    FROM observations
    ORDER BY observed_at DESC
    LIMIT $1;`

	listCategoriesSQL = `SELECT category, COUNT(DISTINCT commodity_name)
    FROM observations
    WHERE kind = 'dashboard'
    GROUP BY category
    ORDER BY category;`

	upsertAlertSQL = `INSERT INTO alerts (
        owner_ref,
        item_pattern,
        target_price,
        active
    ) VALUES (
        $1,$2,$3,TRUE
    )
    ON CONFLICT (owner_ref, item_pattern) DO UPDATE
    SET target_price = EXCLUDED.target_price,
        active       = TRUE
    RETURNING id, owner_ref, item_pattern, target_price, active, created_at;`

	listActiveAlertsSQL = `SELECT
        id, owner_ref, item_pattern, target_price, active, created_at
    FROM alerts
    WHERE active
      AND ($1 = '' OR owner_ref = $1)
    ORDER BY created_at;`
)

// ObservationStore defines the append-only observation series. There is no
// update or delete path in normal operation.
type ObservationStore interface {
	AppendObservation(ctx context.Context, obs PriceObservation) error
	ListByCommodity(ctx context.Context, commodity string) ([]PriceObservation, error)
	ListByCategory(ctx context.Context, category string) ([]PriceObservation, error)
	ListBySearchTerm(ctx context.Context, term string) ([]PriceObservation, error)
	LatestPerSource(ctx context.Context, commodity string) ([]PriceObservation, error)
	LatestMatching(ctx context.Context, pattern string) (*PriceObservation, error)
	ListRecent(ctx context.Context, limit int) ([]PriceObservation, error)
	ListCategories(ctx context.Context) ([]CategorySummary, error)
}

// AlertStore defines alert persistence.
type AlertStore interface {
	UpsertAlert(ctx context.Context, alert Alert) (Alert, error)
	ListActiveAlerts(ctx context.Context, ownerRef string) ([]Alert, error)
}

// Store aggregates access to observations and alerts.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ ObservationStore = (*Store)(nil)
	_ AlertStore       = (*Store)(nil)
)

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// AppendObservation inserts one observation. The insert is a single
// statement, so a failure leaves no partial write behind.
func (s *Store) AppendObservation(ctx context.Context, obs PriceObservation) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertObservationSQL,
		obs.CommodityName,
		obs.ProductName,
		obs.Source,
		obs.Category,
		obs.Unit,
		obs.Price.String(),
		obs.Description,
		string(obs.Kind),
		obs.SearchTerm,
		obs.ObservedAt,
	)
	if execErr != nil {
		return fmt.Errorf("append observation: %w", execErr)
	}
	return nil
}

// ListByCommodity lists all observations for a commodity ordered by time.
func (s *Store) ListByCommodity(ctx context.Context, commodity string) ([]PriceObservation, error) {
	return s.queryObservations(ctx, listByCommoditySQL, commodity)
}

// ListByCategory lists dashboard observations in a category ordered by time.
func (s *Store) ListByCategory(ctx context.Context, category string) ([]PriceObservation, error) {
	return s.queryObservations(ctx, listByCategorySQL, category)
}

// ListBySearchTerm lists live-search observations for a term ordered by time.
func (s *Store) ListBySearchTerm(ctx context.Context, term string) ([]PriceObservation, error) {
	return s.queryObservations(ctx, listBySearchTermSQL, term)
}

// LatestPerSource returns the most recent observation from each source for a
// commodity.
func (s *Store) LatestPerSource(ctx context.Context, commodity string) ([]PriceObservation, error) {
	return s.queryObservations(ctx, latestPerSourceSQL, commodity)
}

// LatestMatching finds the most recent observation whose commodity name
// contains the pattern, case-insensitively. Returns nil when nothing matches.
func (s *Store) LatestMatching(ctx context.Context, pattern string) (*PriceObservation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, latestMatchingSQL, pattern)
	if queryErr != nil {
		return nil, fmt.Errorf("latest matching observation: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	obs, scanErr := scanObservation(rows)
	if scanErr != nil {
		return nil, scanErr
	}
	return &obs, rows.Err()
}

// ListRecent lists the newest observations across all commodities.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]PriceObservation, error) {
	return s.queryObservations(ctx, listRecentSQL, limit)
}

// ListCategories summarises tracked categories with commodity counts.
func (s *Store) ListCategories(ctx context.Context) ([]CategorySummary, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listCategoriesSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list categories: %w", queryErr)
	}
	defer rows.Close()

	summaries := make([]CategorySummary, 0)
	for rows.Next() {
		var summary CategorySummary
		if err := rows.Scan(&summary.Name, &summary.Commodities); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// UpsertAlert creates or updates the alert keyed by (owner, pattern) and
// reactivates it.
func (s *Store) UpsertAlert(ctx context.Context, alert Alert) (Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return Alert{}, err
	}

	row := pool.QueryRow(ctx, upsertAlertSQL,
		alert.OwnerRef,
		alert.ItemPattern,
		alert.TargetPrice.String(),
	)

	rec, scanErr := scanAlert(row)
	if scanErr != nil {
		return Alert{}, fmt.Errorf("upsert alert: %w", scanErr)
	}
	return rec, nil
}

// ListActiveAlerts lists active alerts, optionally scoped to one owner.
func (s *Store) ListActiveAlerts(ctx context.Context, ownerRef string) ([]Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listActiveAlertsSQL, ownerRef)
	if queryErr != nil {
		return nil, fmt.Errorf("list active alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]Alert, 0)
	for rows.Next() {
		rec, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	return alerts, rows.Err()
}

func (s *Store) queryObservations(ctx context.Context, sql string, args ...any) ([]PriceObservation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, sql, args...)
	if queryErr != nil {
		return nil, fmt.Errorf("query observations: %w", queryErr)
	}
	defer rows.Close()

	observations := make([]PriceObservation, 0)
	for rows.Next() {
		obs, scanErr := scanObservation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}

func scanObservation(row pgx.Row) (PriceObservation, error) {
	var (
		obs      PriceObservation
		priceStr string
		kind     string
		observed time.Time
	)

	if err := row.Scan(
		&obs.ID,
		&obs.CommodityName,
		&obs.ProductName,
		&obs.Source,
		&obs.Category,
		&obs.Unit,
		&priceStr,
		&obs.Description,
		&kind,
		&obs.SearchTerm,
		&observed,
	); err != nil {
		return PriceObservation{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return PriceObservation{}, fmt.Errorf("parse price: %w", err)
	}

	obs.Price = price
	obs.Kind = ObservationKind(kind)
	obs.ObservedAt = observed
	return obs, nil
}

func scanAlert(row pgx.Row) (Alert, error) {
	var (
		rec       Alert
		targetStr string
	)

	if err := row.Scan(
		&rec.ID,
		&rec.OwnerRef,
		&rec.ItemPattern,
		&targetStr,
		&rec.Active,
		&rec.CreatedAt,
	); err != nil {
		return Alert{}, err
	}

	target, err := decimal.NewFromString(targetStr)
	if err != nil {
		return Alert{}, fmt.Errorf("parse target price: %w", err)
	}
	rec.TargetPrice = target
	return rec, nil
}
