// Package markers fuses persisted listings and live place-search hits
// into the one marker collection the map renderer consumes.
package markers

import (
	"listing-discovery/internal/models"
	"listing-discovery/internal/visibility"
)

// Merge combines redacted listings and place results into unified
// markers. Listings come first (stable priority), then places; both get
// namespaced IDs so the origins can never collide. Listings without
// valid coordinates are skipped. Neither input is mutated and the
// output is deterministic for identical inputs.
func Merge(listings []visibility.RedactedListing, places []models.PlaceSearchResult) []models.UnifiedMarker {
	out := make([]models.UnifiedMarker, 0, len(listings)+len(places))

	for i := range listings {
		l := &listings[i]
		if !l.HasCoordinates() {
			continue
		}
		out = append(out, models.UnifiedMarker{
			ID:          "listing:" + l.ID,
			Kind:        models.MarkerListing,
			Coordinates: *l.Coordinates,
			Label:       l.Title,
		})
	}

	for _, p := range places {
		out = append(out, models.UnifiedMarker{
			ID:          "place:" + p.ID,
			Kind:        models.MarkerPlace,
			Coordinates: p.Coordinates,
			Label:       p.Name,
		})
	}

	return out
}
