// Package discovery orchestrates one map-discovery session: it owns
// the keyword and filter state, sequences geocoding, listing fetch,
// spatial filtering, redaction and merging, and guards against
// overlapping searches.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	apperrors "listing-discovery/internal/common/errors"
	"listing-discovery/internal/common/logger"
	"listing-discovery/internal/common/metrics"
	"listing-discovery/internal/common/observability"
	"listing-discovery/internal/common/validation"
	"listing-discovery/internal/geo"
	"listing-discovery/internal/geocode"
	"listing-discovery/internal/mapstate"
	"listing-discovery/internal/markers"
	"listing-discovery/internal/models"
	"listing-discovery/internal/store"
	"listing-discovery/internal/visibility"
)

// Gateway is the slice of the geocoding gateway the coordinator needs.
type Gateway interface {
	ResolveLocation(ctx context.Context, text string) (geo.Coordinates, error)
	SearchPlaces(ctx context.Context, keyword string, region geocode.Region) ([]models.PlaceSearchResult, error)
}

// ListingSource is the persisted-listing query contract.
type ListingSource interface {
	Query(ctx context.Context, q store.ListingQuery) ([]models.Listing, error)
}

// Config tunes one coordinator instance.
type Config struct {
	ListingLimit int
	PlaceRegion  geocode.Region
}

// Result is what one successful search hands to the renderer.
type Result struct {
	Markers []models.UnifiedMarker
	// Center is where the map should move; nil when nothing resolved.
	Center *geo.Coordinates
	// Warning carries a recoverable geocode failure. Listings still
	// loaded; only location resolution / place search came up empty.
	Warning *apperrors.StandardError
}

// Coordinator runs searches for a single discovery session (one mounted
// map view). The in-flight and liveness guards are instance fields, not
// globals, so each session is testable in isolation.
type Coordinator struct {
	gateway  Gateway
	listings ListingSource
	mapCtrl  *mapstate.Controller
	obs      *observability.Observability
	logger   logger.Logger
	cfg      Config

	mu          sync.Mutex
	searching   bool
	active      bool
	keyword     string
	filter      models.SearchFilter
	viewer      models.Viewer
	lastMarkers []models.UnifiedMarker
}

func NewCoordinator(gateway Gateway, listings ListingSource, mapCtrl *mapstate.Controller, obs *observability.Observability, cfg Config, log logger.Logger) *Coordinator {
	if cfg.ListingLimit == 0 {
		cfg.ListingLimit = 200
	}
	return &Coordinator{
		gateway:  gateway,
		listings: listings,
		mapCtrl:  mapCtrl,
		obs:      obs,
		cfg:      cfg,
		active:   true,
		logger:   log.WithFields(map[string]interface{}{"component": "discovery-coordinator"}),
	}
}

// SetViewer fixes whose visibility rules apply to subsequent searches.
func (c *Coordinator) SetViewer(v models.Viewer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewer = v
}

// SetFilter replaces the current filter after validating it.
func (c *Coordinator) SetFilter(f models.SearchFilter) error {
	if err := f.Validate(); err != nil {
		return apperrors.NewInvalidFilterError(err.Error())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = f
	return nil
}

// Filter returns the current filter.
func (c *Coordinator) Filter() models.SearchFilter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// RestoreFilterState applies a saved/URL-restored filter document.
// The document is schema-validated first so unknown keys are an error
// rather than silently ignored.
func (c *Coordinator) RestoreFilterState(doc []byte) error {
	if err := validation.ValidateFilterDocument(doc); err != nil {
		return apperrors.NewInvalidFilterError(err.Error())
	}
	var f models.SearchFilter
	if err := json.Unmarshal(doc, &f); err != nil {
		return apperrors.NewInvalidFilterError(err.Error())
	}
	return c.SetFilter(f)
}

// Keyword returns the most recent search keyword.
func (c *Coordinator) Keyword() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keyword
}

// Searching reports whether a search is currently in flight, so
// callers can decide to retry after completion.
func (c *Coordinator) Searching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searching
}

// Markers returns the last-known-good marker set. It persists across
// failed refreshes so the map never goes blank on error.
func (c *Coordinator) Markers() []models.UnifiedMarker {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.UnifiedMarker, len(c.lastMarkers))
	copy(out, c.lastMarkers)
	return out
}

// Close marks the session inactive: results of any still-running work
// are discarded instead of being applied to view state.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
}

// Search runs one keyword search end to end:
//
//	resolve location + fetch listings (issued concurrently, combined
//	when both settle) → radius filter → redact → merge → center map.
//
// At most one search runs at a time; a request arriving while one is
// in flight is dropped, not queued.
func (c *Coordinator) Search(ctx context.Context, keyword string) (*Result, error) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return nil, apperrors.NewSessionInactiveError()
	}
	if c.searching {
		c.mu.Unlock()
		metrics.SearchesDropped.Inc()
		c.logger.Debug("search dropped, one already in flight", map[string]interface{}{"keyword": keyword})
		return nil, apperrors.NewSearchInFlightError()
	}
	c.searching = true
	c.keyword = keyword
	filter := c.filter
	viewer := c.viewer
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.searching = false
		c.mu.Unlock()
	}()

	metrics.SearchesStarted.Inc()
	start := time.Now()

	result, err := c.runSearch(ctx, keyword, filter, viewer)

	status := "ok"
	switch {
	case err != nil:
		status = "error"
		var stdErr *apperrors.StandardError
		if errors.As(err, &stdErr) {
			metrics.SearchesFailed.WithLabelValues(string(stdErr.Code)).Inc()
			if stdErr.Code == apperrors.ErrCodeSessionInactive {
				status = "stale"
			}
		}
	case result.Warning != nil:
		status = "warning"
	}
	if c.obs != nil {
		c.obs.RecordSearch(ctx, status)
		c.obs.RecordSearchDuration(ctx, time.Since(start), status)
	}

	return result, err
}

func (c *Coordinator) runSearch(ctx context.Context, keyword string, filter models.SearchFilter, viewer models.Viewer) (*Result, error) {
	type resolveOutcome struct {
		coords geo.Coordinates
		places []models.PlaceSearchResult
		err    error
	}
	type fetchOutcome struct {
		listings []models.Listing
		err      error
	}

	resolveCh := make(chan resolveOutcome, 1)
	fetchCh := make(chan fetchOutcome, 1)

	// The two requests are independent; issue both and combine once
	// both settle.
	go func() {
		coords, err := c.gateway.ResolveLocation(ctx, keyword)
		var places []models.PlaceSearchResult
		if err == nil {
			// Place markers come from the same keyword, biased around
			// the resolved location.
			region := c.cfg.PlaceRegion
			region.Origin = coords
			if p, perr := c.gateway.SearchPlaces(ctx, keyword, region); perr == nil {
				places = p
			}
		}
		resolveCh <- resolveOutcome{coords: coords, places: places, err: err}
	}()

	go func() {
		listings, err := c.listings.Query(ctx, c.buildListingQuery(filter))
		fetchCh <- fetchOutcome{listings: listings, err: err}
	}()

	resolved := <-resolveCh
	fetched := <-fetchCh

	// Suspend point passed: if the view went away meanwhile, discard.
	if !c.isActive() {
		return nil, apperrors.NewSessionInactiveError()
	}

	// A geocode miss is recoverable; listings still render. A listing
	// fetch failure is the fatal one, and the previous marker set is
	// deliberately left untouched.
	if fetched.err != nil {
		c.logger.Error("listing fetch failed", map[string]interface{}{
			"keyword": keyword, "error": fetched.err.Error(),
		})
		return nil, fetched.err
	}

	var warning *apperrors.StandardError
	if resolved.err != nil {
		warning = apperrors.NewResolutionFailedError(keyword)
		c.logger.Warn("location resolution failed", map[string]interface{}{"keyword": keyword})
	}

	// The store prefilters in SQL, but the filter contract is enforced
	// here so any ListingSource yields the same observable results.
	listings := filterByFields(fetched.listings, filter)
	if filter.Radius.Enabled {
		listings = filterByRadius(listings, filter.Radius.Center, filter.Radius.RadiusKm)
	}

	redacted := make([]visibility.RedactedListing, 0, len(listings))
	for _, l := range listings {
		redacted = append(redacted, visibility.Apply(l, viewer))
	}

	unified := markers.Merge(redacted, resolved.places)

	result := &Result{Markers: unified, Warning: warning}
	if resolved.err == nil {
		center := resolved.coords
		result.Center = &center
	} else if len(unified) > 0 {
		center := unified[0].Coordinates
		result.Center = &center
	}

	if c.mapCtrl != nil && result.Center != nil {
		c.mapCtrl.SetCenter(*result.Center)
	}

	c.mu.Lock()
	c.lastMarkers = unified
	c.mu.Unlock()

	c.logger.Info("search completed", map[string]interface{}{
		"keyword":  keyword,
		"listings": len(redacted),
		"places":   len(resolved.places),
		"markers":  len(unified),
	})
	return result, nil
}

// buildListingQuery maps the session filter onto the listing query
// contract. When radius search is on, the bounding box rides along so
// the store can prefilter; the exact haversine cut happens here after
// the rows return.
func (c *Coordinator) buildListingQuery(filter models.SearchFilter) store.ListingQuery {
	q := store.ListingQuery{
		District:     filter.District,
		PropertyType: filter.PropertyType,
		Status:       models.ListingStatusApproved,
		Limit:        c.cfg.ListingLimit,

		MinDeposit: filter.MinDeposit,
		MaxDeposit: filter.MaxDeposit,
		MinRent:    filter.MinRent,
		MaxRent:    filter.MaxRent,
		MinAreaM2:  filter.MinAreaM2,
		MaxAreaM2:  filter.MaxAreaM2,
		Parking:    filter.Parking,
	}
	if filter.Radius.Enabled {
		center := filter.Radius.Center
		q.Center = &center
		q.RadiusKm = filter.Radius.RadiusKm
	}
	return q
}

func filterByFields(listings []models.Listing, f models.SearchFilter) []models.Listing {
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if f.Matches(l) {
			out = append(out, l)
		}
	}
	return out
}

func filterByRadius(listings []models.Listing, center geo.Coordinates, radiusKm float64) []models.Listing {
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if !l.HasCoordinates() {
			continue
		}
		if geo.WithinRadius(*l.Coordinates, center, radiusKm) {
			out = append(out, l)
		}
	}
	return out
}

func (c *Coordinator) isActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}
