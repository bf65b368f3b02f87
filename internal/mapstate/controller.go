// Package mapstate owns the interactive map view: center, zoom,
// viewport bounds and the click-to-pin registration flow. Nothing else
// in the engine mutates map markers or view state.
package mapstate

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"listing-discovery/internal/common/logger"
	"listing-discovery/internal/geo"
)

// State is the controller's current mode.
type State string

const (
	StateIdle                  State = "idle"
	StateNavigating            State = "navigating"
	StatePinModeActive         State = "pin_mode_active"
	StatePinModeAwaitingResolve State = "pin_mode_awaiting_resolve"
)

// Zoom bounds of the map provider. Lower zoom level means MORE
// magnified; the provider's convention is inverted relative to common
// intuition, hence spelled out here.
const (
	MinZoom = 1
	MaxZoom = 14
)

// Bounds is a map viewport.
type Bounds struct {
	SW geo.Coordinates
	NE geo.Coordinates
}

// PinItSession is the transient click-to-pin state. Created when pin
// mode is enabled, destroyed on placement or cancellation.
type PinItSession struct {
	Active  bool
	Pending *geo.Coordinates
	Message string
}

// RegistrationRequest is emitted when a pinned coordinate has been
// reverse-geocoded and is ready to seed the listing registration form.
type RegistrationRequest struct {
	ID          string
	Coordinates geo.Coordinates
	Address     string
}

// Controller is the map view state machine.
type Controller struct {
	mu sync.Mutex

	state  State
	center geo.Coordinates
	zoom   int
	bounds *Bounds

	pin PinItSession

	onRegistration func(RegistrationRequest)
	logger         logger.Logger
}

// Config seeds the initial view.
type Config struct {
	Center geo.Coordinates
	Zoom   int
}

func NewController(cfg Config, log logger.Logger) *Controller {
	return &Controller{
		state:  StateIdle,
		center: cfg.Center,
		zoom:   clampZoom(cfg.Zoom),
		logger: log.WithFields(map[string]interface{}{"component": "map-state"}),
	}
}

// OnRegistrationRequested registers the handler that receives the
// payload when a pin-mode flow completes.
func (c *Controller) OnRegistrationRequested(fn func(RegistrationRequest)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRegistration = fn
}

// State returns the current mode.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns the current center and zoom.
func (c *Controller) View() (geo.Coordinates, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.center, c.zoom
}

// Pin returns a copy of the transient pin session.
func (c *Controller) Pin() PinItSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pin
}

// SetCenter moves the view. Invalid coordinates are ignored.
func (c *Controller) SetCenter(center geo.Coordinates) {
	if !center.Valid() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.center = center
	if c.state == StateIdle {
		c.state = StateNavigating
	}
}

// SetZoom changes magnification, clamped to the provider's [1,14] range.
func (c *Controller) SetZoom(zoom int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = clampZoom(zoom)
	if c.state == StateIdle {
		c.state = StateNavigating
	}
}

// SetBounds records the current viewport, reported by the map widget
// after the view settles.
func (c *Controller) SetBounds(b Bounds) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bounds := b
	c.bounds = &bounds
}

// ViewportSearchArea derives a center and conservative radius from the
// last reported viewport for "search this area" actions.
func (c *Controller) ViewportSearchArea() (geo.Coordinates, float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bounds == nil {
		return geo.Coordinates{}, 0, false
	}
	center, radius := geo.ViewportCenterAndRadius(c.bounds.SW, c.bounds.NE)
	return center, radius, true
}

// AnimationSettled transitions Navigating back to Idle once the map
// widget reports the center/zoom transition finished.
func (c *Controller) AnimationSettled() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateNavigating {
		c.state = StateIdle
	}
}

// CenterOnUser moves the view to an explicitly user-provided location.
// The coordinates must come from a user gesture; the engine never
// requests device location on its own.
func (c *Controller) CenterOnUser(location geo.Coordinates) error {
	if !location.Valid() {
		return fmt.Errorf("invalid user location (%f, %f)", location.Lat, location.Lng)
	}
	c.SetCenter(location)
	return nil
}

// EnablePinMode arms click-to-pin. Any prior pending marker is cleared;
// only one pin flow can exist at a time.
func (c *Controller) EnablePinMode(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pin = PinItSession{Active: true, Message: message}
	c.state = StatePinModeActive
}

// MapClicked captures a coordinate while pin mode is armed and moves to
// awaiting-resolve. Clicks in any other state are plain map
// interactions and ignored here.
func (c *Controller) MapClicked(coords geo.Coordinates) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePinModeActive || !coords.Valid() {
		return false
	}
	pending := coords
	c.pin.Pending = &pending
	c.state = StatePinModeAwaitingResolve
	return true
}

// Cancel aborts the pin flow from either pin state. No registration
// payload is emitted, even if a click was already captured.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePinModeActive && c.state != StatePinModeAwaitingResolve {
		return
	}
	c.pin = PinItSession{}
	c.state = StateIdle
}

// ResolveCompleted finishes the pin flow with the reverse-geocoded
// address and emits the registration request. A late resolve arriving
// after Cancel is dropped.
func (c *Controller) ResolveCompleted(address string) {
	c.mu.Lock()
	if c.state != StatePinModeAwaitingResolve || c.pin.Pending == nil {
		c.mu.Unlock()
		return
	}
	req := RegistrationRequest{
		ID:          uuid.NewString(),
		Coordinates: *c.pin.Pending,
		Address:     address,
	}
	handler := c.onRegistration
	c.pin = PinItSession{}
	c.state = StateIdle
	c.mu.Unlock()

	c.logger.Info("pin placement resolved", map[string]interface{}{
		"lat": req.Coordinates.Lat, "lng": req.Coordinates.Lng, "address": address,
	})
	if handler != nil {
		handler(req)
	}
}

func clampZoom(zoom int) int {
	if zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	return zoom
}
