// Package geocode wraps the external geocoding/place-search provider.
// The gateway normalizes every provider failure mode (unavailable,
// malformed query, zero results) into ErrNotFound; callers only ever
// distinguish found vs not found, provider specifics stay in the logs.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/redis/go-redis/v9"

	"listing-discovery/internal/common/logger"
	"listing-discovery/internal/common/metrics"
	"listing-discovery/internal/geo"
	"listing-discovery/internal/models"
)

// ErrNotFound is the single normalized miss outcome of the gateway.
var ErrNotFound = errors.New("geocode: location not found")

// GatewayConfig tunes the fallback bias and the read-through cache.
type GatewayConfig struct {
	// DefaultRegion biases the keyword fallback when strict address
	// resolution fails; informal place names ("동성로", "반월당역") are
	// not valid postal addresses and only resolve this way.
	DefaultRegion Region

	CacheTTL time.Duration
	// ReverseCachePrecision is the geohash length used to key reverse
	// lookups; 9 chars ≈ 5 m cells.
	ReverseCachePrecision uint
}

// Gateway is the GeocodingGateway: strict address resolution with a
// keyword fallback, reverse geocoding and raw place search, with a
// Redis read-through cache in front of the provider.
type Gateway struct {
	provider Provider
	cache    *redis.Client
	cfg      GatewayConfig
	logger   logger.Logger
}

func NewGateway(provider Provider, cache *redis.Client, cfg GatewayConfig, log logger.Logger) *Gateway {
	if cfg.ReverseCachePrecision == 0 {
		cfg.ReverseCachePrecision = 9
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.DefaultRegion.SortBy == "" {
		cfg.DefaultRegion.SortBy = SortByDistance
	}
	return &Gateway{
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "geocode-gateway"}),
	}
}

// ResolveLocation converts free text to coordinates. Strict address
// search runs first; on a miss the keyword search biased to the default
// region is tried. The first ranked result wins.
func (g *Gateway) ResolveLocation(ctx context.Context, text string) (geo.Coordinates, error) {
	if text == "" {
		return geo.Coordinates{}, ErrNotFound
	}

	cacheKey := "geo:resolve:" + text
	if coords, ok := g.cachedCoords(ctx, cacheKey); ok {
		metrics.GeocodeCacheHits.WithLabelValues("resolve").Inc()
		return coords, nil
	}

	places, err := g.provider.AddressSearch(ctx, text)
	if err != nil {
		g.logger.Warn("address search failed, falling back to keyword search", map[string]interface{}{
			"query": text, "error": err.Error(),
		})
		places = nil
	}

	if len(places) == 0 {
		places, err = g.provider.KeywordSearch(ctx, text, g.cfg.DefaultRegion)
		if err != nil {
			g.logger.Warn("keyword fallback failed", map[string]interface{}{
				"query": text, "error": err.Error(),
			})
			metrics.GeocodeCalls.WithLabelValues("resolve", "error").Inc()
			return geo.Coordinates{}, ErrNotFound
		}
	}

	if len(places) == 0 {
		metrics.GeocodeCalls.WithLabelValues("resolve", "not_found").Inc()
		return geo.Coordinates{}, ErrNotFound
	}

	metrics.GeocodeCalls.WithLabelValues("resolve", "ok").Inc()
	coords := places[0].Coordinates
	g.storeCoords(ctx, cacheKey, coords)
	return coords, nil
}

// ReverseResolve converts coordinates to an address string.
func (g *Gateway) ReverseResolve(ctx context.Context, coords geo.Coordinates) (string, error) {
	if !coords.Valid() {
		return "", ErrNotFound
	}

	cacheKey := "geo:reverse:" + geohash.EncodeWithPrecision(coords.Lat, coords.Lng, g.cfg.ReverseCachePrecision)
	if g.cache != nil {
		if addr, err := g.cache.Get(ctx, cacheKey).Result(); err == nil && addr != "" {
			metrics.GeocodeCacheHits.WithLabelValues("reverse").Inc()
			return addr, nil
		}
	}

	addr, err := g.provider.ReverseGeocode(ctx, coords)
	if err != nil {
		g.logger.Warn("reverse geocode failed", map[string]interface{}{
			"lat": coords.Lat, "lng": coords.Lng, "error": err.Error(),
		})
		metrics.GeocodeCalls.WithLabelValues("reverse", "error").Inc()
		return "", ErrNotFound
	}
	if addr == "" {
		metrics.GeocodeCalls.WithLabelValues("reverse", "not_found").Inc()
		return "", ErrNotFound
	}

	metrics.GeocodeCalls.WithLabelValues("reverse", "ok").Inc()
	if g.cache != nil {
		if err := g.cache.Set(ctx, cacheKey, addr, g.cfg.CacheTTL).Err(); err != nil {
			g.logger.Debug("reverse cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return addr, nil
}

// SearchPlaces runs a keyword search and maps the ranked hits to
// PlaceSearchResults. Results are not cached: place data is live by
// definition and its lifetime is one search session.
func (g *Gateway) SearchPlaces(ctx context.Context, keyword string, region Region) ([]models.PlaceSearchResult, error) {
	if keyword == "" {
		return nil, ErrNotFound
	}
	if region.RadiusMeters == 0 {
		region.RadiusMeters = g.cfg.DefaultRegion.RadiusMeters
	}
	if region.SortBy == "" {
		region.SortBy = g.cfg.DefaultRegion.SortBy
	}
	if region.Limit == 0 {
		region.Limit = g.cfg.DefaultRegion.Limit
	}

	places, err := g.provider.KeywordSearch(ctx, keyword, region)
	if err != nil {
		g.logger.Warn("place search failed", map[string]interface{}{
			"keyword": keyword, "error": err.Error(),
		})
		metrics.GeocodeCalls.WithLabelValues("places", "error").Inc()
		return nil, ErrNotFound
	}
	if len(places) == 0 {
		metrics.GeocodeCalls.WithLabelValues("places", "not_found").Inc()
		return nil, ErrNotFound
	}

	metrics.GeocodeCalls.WithLabelValues("places", "ok").Inc()
	// The size hint travels to the provider, but the cap is enforced
	// here too in case the provider ignores it.
	if region.Limit > 0 && len(places) > region.Limit {
		places = places[:region.Limit]
	}
	results := make([]models.PlaceSearchResult, 0, len(places))
	for _, p := range places {
		results = append(results, models.PlaceSearchResult{
			ID:          p.ID,
			Name:        p.Name,
			Address:     p.Address,
			Category:    p.Category,
			Coordinates: p.Coordinates,
		})
	}
	return results, nil
}

func (g *Gateway) cachedCoords(ctx context.Context, key string) (geo.Coordinates, bool) {
	if g.cache == nil {
		return geo.Coordinates{}, false
	}
	raw, err := g.cache.Get(ctx, key).Result()
	if err != nil {
		return geo.Coordinates{}, false
	}
	var coords geo.Coordinates
	if err := json.Unmarshal([]byte(raw), &coords); err != nil || !coords.Valid() {
		return geo.Coordinates{}, false
	}
	return coords, true
}

func (g *Gateway) storeCoords(ctx context.Context, key string, coords geo.Coordinates) {
	if g.cache == nil {
		return
	}
	data, err := json.Marshal(coords)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, key, data, g.cfg.CacheTTL).Err(); err != nil {
		g.logger.Debug("resolve cache write failed", map[string]interface{}{
			"key": key, "error": fmt.Sprintf("%v", err),
		})
	}
}
