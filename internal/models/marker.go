package models

import "listing-discovery/internal/geo"

// MarkerKind discriminates the origin of a unified marker.
type MarkerKind string

const (
	MarkerListing MarkerKind = "listing"
	MarkerPlace   MarkerKind = "place"
)

// UnifiedMarker is the only shape the map renderer consumes. IDs are
// namespaced ("listing:<id>" / "place:<id>") so the two origins can
// never collide.
type UnifiedMarker struct {
	ID          string          `json:"id"`
	Kind        MarkerKind      `json:"kind"`
	Coordinates geo.Coordinates `json:"coordinates"`
	Label       string          `json:"label"`
}
