package mapstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-discovery/internal/common/logger"
	"listing-discovery/internal/geo"
)

func newTestController(t *testing.T) *Controller {
	return NewController(Config{
		Center: geo.Coordinates{Lat: 35.8714, Lng: 128.6014},
		Zoom:   5,
	}, logger.NewTestLogger(t))
}

func TestController_NavigationCycle(t *testing.T) {
	c := newTestController(t)
	assert.Equal(t, StateIdle, c.State())

	c.SetCenter(geo.Coordinates{Lat: 35.9, Lng: 128.6})
	assert.Equal(t, StateNavigating, c.State())

	c.AnimationSettled()
	assert.Equal(t, StateIdle, c.State())

	center, _ := c.View()
	assert.InDelta(t, 35.9, center.Lat, 1e-9)
}

func TestController_ZoomClamping(t *testing.T) {
	c := newTestController(t)

	c.SetZoom(0)
	_, zoom := c.View()
	assert.Equal(t, MinZoom, zoom)

	c.SetZoom(99)
	_, zoom = c.View()
	assert.Equal(t, MaxZoom, zoom)

	c.SetZoom(7)
	_, zoom = c.View()
	assert.Equal(t, 7, zoom)
}

func TestController_InvalidCenterIgnored(t *testing.T) {
	c := newTestController(t)
	before, _ := c.View()

	c.SetCenter(geo.Coordinates{Lat: 123, Lng: 456})

	after, _ := c.View()
	assert.Equal(t, before, after)
	assert.Equal(t, StateIdle, c.State())
}

func TestController_PinFlowCompletes(t *testing.T) {
	c := newTestController(t)

	var got *RegistrationRequest
	c.OnRegistrationRequested(func(r RegistrationRequest) { got = &r })

	c.EnablePinMode("지도를 클릭해 위치를 지정하세요")
	assert.Equal(t, StatePinModeActive, c.State())
	assert.True(t, c.Pin().Active)

	clicked := c.MapClicked(geo.Coordinates{Lat: 35.9, Lng: 128.6})
	require.True(t, clicked)
	assert.Equal(t, StatePinModeAwaitingResolve, c.State())
	require.NotNil(t, c.Pin().Pending)

	c.ResolveCompleted("대구 북구 어딘가 123")
	assert.Equal(t, StateIdle, c.State())
	assert.False(t, c.Pin().Active)

	require.NotNil(t, got)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "대구 북구 어딘가 123", got.Address)
	assert.InDelta(t, 35.9, got.Coordinates.Lat, 1e-9)
}

func TestController_CancelBeforeResolveEmitsNothing(t *testing.T) {
	c := newTestController(t)

	emitted := 0
	c.OnRegistrationRequested(func(RegistrationRequest) { emitted++ })

	c.EnablePinMode("")
	require.True(t, c.MapClicked(geo.Coordinates{Lat: 35.9, Lng: 128.6}))

	// User backs out while the reverse geocode is still in flight.
	c.Cancel()
	assert.Equal(t, StateIdle, c.State())
	assert.False(t, c.Pin().Active)
	assert.Nil(t, c.Pin().Pending)

	// The late resolve must be dropped.
	c.ResolveCompleted("대구 북구 어딘가 123")
	assert.Zero(t, emitted)
	assert.Equal(t, StateIdle, c.State())
}

func TestController_CancelFromActivePinMode(t *testing.T) {
	c := newTestController(t)
	c.EnablePinMode("")
	c.Cancel()
	assert.Equal(t, StateIdle, c.State())
}

func TestController_ReenteringPinModeClearsPendingMarker(t *testing.T) {
	c := newTestController(t)

	c.EnablePinMode("")
	require.True(t, c.MapClicked(geo.Coordinates{Lat: 35.9, Lng: 128.6}))
	require.NotNil(t, c.Pin().Pending)

	// Re-arming pin mode discards the captured coordinate.
	c.EnablePinMode("")
	assert.Equal(t, StatePinModeActive, c.State())
	assert.Nil(t, c.Pin().Pending)
}

func TestController_ClicksOutsidePinModeIgnored(t *testing.T) {
	c := newTestController(t)
	assert.False(t, c.MapClicked(geo.Coordinates{Lat: 35.9, Lng: 128.6}))

	c.EnablePinMode("")
	assert.False(t, c.MapClicked(geo.Coordinates{Lat: 999, Lng: 0}), "invalid coords never captured")
}

func TestController_ViewportSearchArea(t *testing.T) {
	c := newTestController(t)

	_, _, ok := c.ViewportSearchArea()
	assert.False(t, ok, "no viewport reported yet")

	c.SetBounds(Bounds{
		SW: geo.Coordinates{Lat: 35.85, Lng: 128.58},
		NE: geo.Coordinates{Lat: 35.89, Lng: 128.62},
	})

	center, radius, ok := c.ViewportSearchArea()
	require.True(t, ok)
	assert.InDelta(t, 35.87, center.Lat, 1e-9)
	assert.GreaterOrEqual(t, radius, 1.0)
}

func TestController_CenterOnUser(t *testing.T) {
	c := newTestController(t)

	require.NoError(t, c.CenterOnUser(geo.Coordinates{Lat: 35.95, Lng: 128.55}))
	center, _ := c.View()
	assert.InDelta(t, 35.95, center.Lat, 1e-9)

	assert.Error(t, c.CenterOnUser(geo.Coordinates{Lat: -91, Lng: 0}))
}
