package models

import "listing-discovery/internal/geo"

// PlaceSearchResult is a live hit from the external place-search
// provider. Never persisted; its lifetime is one search session.
type PlaceSearchResult struct {
	ID          string
	Name        string
	Address     string
	Category    string
	Coordinates geo.Coordinates
}
