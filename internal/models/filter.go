package models

import (
	"fmt"

	"listing-discovery/internal/geo"
)

// RadiusSearch narrows results to a great-circle distance around a center.
type RadiusSearch struct {
	Enabled  bool            `json:"enabled"`
	Center   geo.Coordinates `json:"center"`
	RadiusKm float64         `json:"radiusKm"`
}

// SearchFilter enumerates every recognized discovery filter and its
// default. Unknown keys in restored filter documents are rejected by
// schema validation before this struct is ever populated.
type SearchFilter struct {
	PropertyType string `json:"propertyType,omitempty"`
	District     string `json:"district,omitempty"`

	MinDeposit *int64 `json:"minDeposit,omitempty"`
	MaxDeposit *int64 `json:"maxDeposit,omitempty"`

	MinRent *int64 `json:"minRent,omitempty"`
	MaxRent *int64 `json:"maxRent,omitempty"`

	MinAreaM2 *float64 `json:"minAreaM2,omitempty"`
	MaxAreaM2 *float64 `json:"maxAreaM2,omitempty"`

	Parking bool `json:"parking,omitempty"`

	Radius RadiusSearch `json:"radiusSearch"`
}

// Matches reports whether the listing satisfies every non-spatial
// filter field. Radius membership is checked separately because it
// needs the listing's pin.
func (f SearchFilter) Matches(l Listing) bool {
	if f.PropertyType != "" && l.PropertyType != f.PropertyType {
		return false
	}
	if f.District != "" && l.District != f.District {
		return false
	}
	if f.MinDeposit != nil && l.Deposit < *f.MinDeposit {
		return false
	}
	if f.MaxDeposit != nil && l.Deposit > *f.MaxDeposit {
		return false
	}
	if f.MinRent != nil && l.MonthlyRent < *f.MinRent {
		return false
	}
	if f.MaxRent != nil && l.MonthlyRent > *f.MaxRent {
		return false
	}
	if f.MinAreaM2 != nil && l.AreaM2 < *f.MinAreaM2 {
		return false
	}
	if f.MaxAreaM2 != nil && l.AreaM2 > *f.MaxAreaM2 {
		return false
	}
	if f.Parking && !l.Parking {
		return false
	}
	return true
}

// Validate checks the cross-field invariants the filter must hold before
// a search may run.
func (f SearchFilter) Validate() error {
	if f.Radius.Enabled {
		if !f.Radius.Center.Valid() {
			return fmt.Errorf("radius search enabled with invalid center (%f, %f)",
				f.Radius.Center.Lat, f.Radius.Center.Lng)
		}
		if f.Radius.RadiusKm <= 0 {
			return fmt.Errorf("radius search enabled with non-positive radius %f", f.Radius.RadiusKm)
		}
	}
	if f.MinDeposit != nil && f.MaxDeposit != nil && *f.MinDeposit > *f.MaxDeposit {
		return fmt.Errorf("minDeposit %d exceeds maxDeposit %d", *f.MinDeposit, *f.MaxDeposit)
	}
	if f.MinRent != nil && f.MaxRent != nil && *f.MinRent > *f.MaxRent {
		return fmt.Errorf("minRent %d exceeds maxRent %d", *f.MinRent, *f.MaxRent)
	}
	if f.MinAreaM2 != nil && f.MaxAreaM2 != nil && *f.MinAreaM2 > *f.MaxAreaM2 {
		return fmt.Errorf("minAreaM2 %f exceeds maxAreaM2 %f", *f.MinAreaM2, *f.MaxAreaM2)
	}
	return nil
}
