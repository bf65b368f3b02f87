// Package geo implements the spatial primitives used by radius search:
// great-circle distance, bounding-box approximation and viewport math.
package geo

import "math"

const (
	earthRadiusKm = 6371.0

	// One degree of latitude spans ~111 km everywhere; one degree of
	// longitude spans ~111 km scaled by cos(lat).
	kmPerDegree = 111.0

	minViewportRadiusKm = 1.0
)

// Coordinates is a WGS84 lat/lng pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the pair lies inside the representable range.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Box is an axis-aligned lat/lng range used to narrow store queries
// before exact distance filtering.
type Box struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// Contains reports whether p falls inside the box.
func (b Box) Contains(p Coordinates) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// HaversineKm returns the great-circle distance between a and b in kilometers.
func HaversineKm(a, b Coordinates) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BoundingBox approximates the lat/lng ranges covering a circle of
// radiusKm around center. The box is intentionally loose: exact
// acceptance is always re-checked with HaversineKm afterwards.
func BoundingBox(center Coordinates, radiusKm float64) Box {
	latDelta := radiusKm / kmPerDegree

	cosLat := math.Cos(center.Lat * math.Pi / 180)
	// Near the poles cos(lat) approaches zero; clamp so the box stays finite.
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lngDelta := radiusKm / (kmPerDegree * cosLat)

	return Box{
		MinLat: center.Lat - latDelta,
		MaxLat: center.Lat + latDelta,
		MinLng: center.Lng - lngDelta,
		MaxLng: center.Lng + lngDelta,
	}
}

// WithinRadius reports whether p lies within radiusKm of center.
func WithinRadius(p, center Coordinates, radiusKm float64) bool {
	return HaversineKm(p, center) <= radiusKm
}

// ViewportCenterAndRadius derives a center point and a conservative
// search radius from a map viewport's southwest/northeast corners.
// Used for "search this area" actions; the radius never drops below 1 km.
func ViewportCenterAndRadius(sw, ne Coordinates) (Coordinates, float64) {
	center := Coordinates{
		Lat: (sw.Lat + ne.Lat) / 2,
		Lng: (sw.Lng + ne.Lng) / 2,
	}

	latSpan := math.Abs(ne.Lat - sw.Lat)
	lngSpan := math.Abs(ne.Lng-sw.Lng) * math.Cos(center.Lat*math.Pi/180)

	radius := math.Max(latSpan, lngSpan) * kmPerDegree
	if radius < minViewportRadiusKm {
		radius = minViewportRadiusKm
	}
	return center, radius
}
