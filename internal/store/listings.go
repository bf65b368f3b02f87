// Package store implements the persistence contracts the discovery
// engine consumes: listing queries with a bounding-box prefilter and
// the favorites contract.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "listing-discovery/internal/common/errors"
	"listing-discovery/internal/common/logger"
	"listing-discovery/internal/common/metrics"
	"listing-discovery/internal/geo"
	"listing-discovery/internal/models"
)

// ListingQuery is the filter surface of the listing query contract.
// Center/RadiusKm, when set, add a bounding-box prefilter: the cheap
// lat/lng range runs in SQL, the exact haversine check stays with the
// caller.
type ListingQuery struct {
	District     string
	PropertyType string
	Status       models.ListingStatus
	Limit        int
	Offset       int

	MinDeposit *int64
	MaxDeposit *int64
	MinRent    *int64
	MaxRent    *int64
	MinAreaM2  *float64
	MaxAreaM2  *float64
	Parking    bool

	Center   *geo.Coordinates
	RadiusKm float64
}

// ListingStore reads persisted listings from Postgres. The discovery
// core never writes listings; CRUD belongs to another collaborator.
type ListingStore struct {
	db      *sql.DB
	timeout time.Duration
	logger  logger.Logger
}

func NewListingStore(db *sql.DB, fetchTimeout time.Duration, log logger.Logger) *ListingStore {
	if fetchTimeout == 0 {
		fetchTimeout = 30 * time.Second
	}
	return &ListingStore{
		db:      db,
		timeout: fetchTimeout,
		logger:  log.WithFields(map[string]interface{}{"component": "listing-store"}),
	}
}

const listingColumns = `id, title, district, sub_district, address, property_type, status,
	deposit, monthly_rent, yearly_rent, sale_price, key_money,
	area_m2, parking, lat, lng, is_premium, is_blurred, created_by, created_at, updated_at`

// Query fetches listings matching q. Timeouts surface as the distinct
// LISTING_FETCH_TIMEOUT error so the UI can suggest narrowing the
// search instead of presenting a hard failure.
func (s *ListingStore) Query(ctx context.Context, q ListingQuery) ([]models.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query, args := buildListingQuery(q)

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.mapError(ctx, err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, apperrors.NewListingFetchFailedError(err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapError(ctx, err)
	}

	metrics.ListingFetchDuration.Observe(time.Since(start).Seconds())
	s.logger.Debug("listing query completed", map[string]interface{}{
		"count":    len(listings),
		"district": q.District,
		"radius":   q.RadiusKm,
	})
	return listings, nil
}

func buildListingQuery(q ListingQuery) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	status := q.Status
	if status == "" {
		status = models.ListingStatusApproved
	}
	where = append(where, "status = "+arg(string(status)))

	if q.District != "" {
		where = append(where, "district = "+arg(q.District))
	}
	if q.PropertyType != "" {
		where = append(where, "property_type = "+arg(q.PropertyType))
	}

	if q.MinDeposit != nil {
		where = append(where, "deposit >= "+arg(*q.MinDeposit))
	}
	if q.MaxDeposit != nil {
		where = append(where, "deposit <= "+arg(*q.MaxDeposit))
	}
	if q.MinRent != nil {
		where = append(where, "monthly_rent >= "+arg(*q.MinRent))
	}
	if q.MaxRent != nil {
		where = append(where, "monthly_rent <= "+arg(*q.MaxRent))
	}
	if q.MinAreaM2 != nil {
		where = append(where, "area_m2 >= "+arg(*q.MinAreaM2))
	}
	if q.MaxAreaM2 != nil {
		where = append(where, "area_m2 <= "+arg(*q.MaxAreaM2))
	}
	if q.Parking {
		where = append(where, "parking = TRUE")
	}

	if q.Center != nil && q.RadiusKm > 0 {
		box := geo.BoundingBox(*q.Center, q.RadiusKm)
		where = append(where, "lat BETWEEN "+arg(box.MinLat)+" AND "+arg(box.MaxLat))
		where = append(where, "lng BETWEEN "+arg(box.MinLng)+" AND "+arg(box.MaxLng))
	}

	query := "SELECT " + listingColumns + " FROM listings WHERE " + strings.Join(where, " AND ") +
		" ORDER BY created_at DESC"

	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}
	if q.Offset > 0 {
		query += " OFFSET " + arg(q.Offset)
	}

	return query, args
}

func scanListing(rows *sql.Rows) (models.Listing, error) {
	var (
		l        models.Listing
		lat, lng sql.NullFloat64
	)
	err := rows.Scan(
		&l.ID, &l.Title, &l.District, &l.SubDistrict, &l.Address, &l.PropertyType, &l.Status,
		&l.Deposit, &l.MonthlyRent, &l.YearlyRent, &l.SalePrice, &l.KeyMoney,
		&l.AreaM2, &l.Parking, &lat, &lng, &l.IsPremium, &l.IsBlurred,
		&l.CreatedBy, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return models.Listing{}, err
	}
	if lat.Valid && lng.Valid {
		l.Coordinates = &geo.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	return l, nil
}

func (s *ListingStore) mapError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.logger.Warn("listing fetch timed out", map[string]interface{}{"timeout": s.timeout.String()})
		return apperrors.NewListingFetchTimeoutError()
	}
	s.logger.Error("listing fetch failed", map[string]interface{}{"error": err.Error()})
	return apperrors.NewListingFetchFailedError(err)
}
