package models

import (
	"time"

	"listing-discovery/internal/geo"
)

// ListingStatus is the lifecycle state managed by the CRUD collaborator.
// The discovery core only ever reads approved listings.
type ListingStatus string

const (
	ListingStatusPending  ListingStatus = "pending"
	ListingStatusApproved ListingStatus = "approved"
	ListingStatusArchived ListingStatus = "archived"
)

// Listing is a persisted commercial property as stored by the CRUD
// collaborator. Monetary amounts are in 10,000 KRW units.
type Listing struct {
	ID          string
	Title       string
	District    string
	SubDistrict string
	Address     string

	PropertyType string
	Status       ListingStatus

	Deposit     int64
	MonthlyRent int64
	YearlyRent  int64
	SalePrice   int64
	KeyMoney    int64

	AreaM2  float64
	Parking bool

	// Coordinates is nil for listings registered without a map pin.
	Coordinates *geo.Coordinates

	IsPremium bool
	IsBlurred bool

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasCoordinates reports whether the listing can be placed on the map.
func (l *Listing) HasCoordinates() bool {
	return l.Coordinates != nil && l.Coordinates.Valid()
}
