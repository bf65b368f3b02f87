package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineKm_Symmetry(t *testing.T) {
	pairs := []struct {
		name string
		a, b Coordinates
	}{
		{"daegu downtown", Coordinates{35.8714, 128.6014}, Coordinates{35.8720, 128.6020}},
		{"cross hemisphere", Coordinates{-33.8688, 151.2093}, Coordinates{40.7128, -74.0060}},
		{"same point", Coordinates{35.8714, 128.6014}, Coordinates{35.8714, 128.6014}},
		{"antimeridian", Coordinates{0, 179.9}, Coordinates{0, -179.9}},
	}

	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, HaversineKm(tt.a, tt.b), HaversineKm(tt.b, tt.a), 1e-9)
		})
	}
}

func TestHaversineKm_KnownDistances(t *testing.T) {
	// Seoul City Hall to Busan Station is roughly 320 km.
	seoul := Coordinates{37.5663, 126.9779}
	busan := Coordinates{35.1151, 129.0415}
	d := HaversineKm(seoul, busan)
	assert.InDelta(t, 320, d, 10)

	assert.Zero(t, HaversineKm(seoul, seoul))
}

func TestWithinRadius_Scenario(t *testing.T) {
	center := Coordinates{35.8714, 128.6014}

	near := Coordinates{35.8720, 128.6020}
	far := Coordinates{36.0, 128.6014}

	assert.True(t, WithinRadius(near, center, 1.0), "listing ~0.09 km away must be included")
	assert.False(t, WithinRadius(far, center, 1.0), "listing ~14.3 km away must be excluded")

	// Acceptance agrees with the raw distance on both sides of the cut.
	assert.LessOrEqual(t, HaversineKm(near, center), 1.0)
	assert.Greater(t, HaversineKm(far, center), 1.0)
}

func TestBoundingBox_CoversRadius(t *testing.T) {
	center := Coordinates{35.8714, 128.6014}
	box := BoundingBox(center, 2.0)

	require.True(t, box.Contains(center))

	// Every point accepted by the exact filter must survive the prefilter,
	// otherwise the two-phase query would drop valid listings.
	probes := []Coordinates{
		{center.Lat + 0.017, center.Lng},
		{center.Lat - 0.017, center.Lng},
		{center.Lat, center.Lng + 0.02},
		{center.Lat, center.Lng - 0.02},
	}
	for _, p := range probes {
		if WithinRadius(p, center, 2.0) {
			assert.True(t, box.Contains(p), "box must not exclude in-radius point %+v", p)
		}
	}
}

func TestBoundingBox_HighLatitude(t *testing.T) {
	// Longitude degrees shrink near the poles, so the box must widen.
	equator := BoundingBox(Coordinates{0, 0}, 10)
	arctic := BoundingBox(Coordinates{78, 0}, 10)

	assert.Greater(t, arctic.MaxLng-arctic.MinLng, equator.MaxLng-equator.MinLng)
}

func TestViewportCenterAndRadius(t *testing.T) {
	sw := Coordinates{35.85, 128.58}
	ne := Coordinates{35.89, 128.62}

	center, radius := ViewportCenterAndRadius(sw, ne)
	assert.InDelta(t, 35.87, center.Lat, 1e-9)
	assert.InDelta(t, 128.60, center.Lng, 1e-9)
	assert.InDelta(t, 0.04*111, radius, 0.5)
}

func TestViewportCenterAndRadius_Floor(t *testing.T) {
	sw := Coordinates{35.8710, 128.6010}
	ne := Coordinates{35.8712, 128.6012}

	_, radius := ViewportCenterAndRadius(sw, ne)
	assert.Equal(t, 1.0, radius, "tiny viewports still search at least 1 km")
}

func TestCoordinatesValid(t *testing.T) {
	assert.True(t, Coordinates{35.8714, 128.6014}.Valid())
	assert.True(t, Coordinates{-90, 180}.Valid())
	assert.False(t, Coordinates{90.1, 0}.Valid())
	assert.False(t, Coordinates{0, -180.5}.Valid())
}
