// Package visibility is the single authority for tier/role based
// redaction. No other component compares tiers; everything funnels
// through Apply.
package visibility

import (
	"listing-discovery/internal/geo"
	"listing-discovery/internal/models"
)

// Placeholder tells the UI which call-to-action replaces a hidden
// value. Login and upgrade prompts must never be conflated.
type Placeholder string

const (
	PlaceholderNone    Placeholder = ""
	PlaceholderLogin   Placeholder = "login_required"
	PlaceholderUpgrade Placeholder = "upgrade_required"
)

const blurredText = "비공개 매물"

// MoneyField is a financial amount after redaction.
type MoneyField struct {
	Visible     bool        `json:"visible"`
	Value       int64       `json:"value,omitempty"`
	Placeholder Placeholder `json:"placeholder,omitempty"`
}

func visible(v int64) MoneyField {
	return MoneyField{Visible: true, Value: v}
}

func hidden(p Placeholder) MoneyField {
	return MoneyField{Visible: false, Placeholder: p}
}

// RedactedListing is what a particular viewer is allowed to see of a
// listing. Computed on every render, never persisted.
type RedactedListing struct {
	ID          string
	Title       string
	District    string
	SubDistrict string
	Address     string

	PropertyType string
	AreaM2       float64
	Parking      bool

	Coordinates *geo.Coordinates

	// Blurred means listing-wide fields were masked for this viewer.
	Blurred   bool
	IsPremium bool

	Deposit     MoneyField
	MonthlyRent MoneyField
	YearlyRent  MoneyField
	SalePrice   MoneyField
	KeyMoney    MoneyField
}

// HasCoordinates reports whether the redacted listing can be placed on
// the map.
func (r *RedactedListing) HasCoordinates() bool {
	return r.Coordinates != nil && r.Coordinates.Valid()
}

// Apply computes the redacted view of listing for viewer. Pure: no
// I/O, no mutation of the input listing.
//
// Rules, first match wins per field group:
//  1. admin/agent roles see everything.
//  2. Premium listings gate all financial fields below the premium
//     tier; anonymous viewers get a login prompt, authenticated ones
//     an upgrade prompt.
//  3. Key money additionally requires any authenticated approved tier.
//  4. Otherwise fully visible.
//
// A listing can be blurred and premium at once: blur masks the
// listing-wide fields, premium gating masks the financial fields.
func Apply(l models.Listing, v models.Viewer) RedactedListing {
	out := RedactedListing{
		ID:           l.ID,
		Title:        l.Title,
		District:     l.District,
		SubDistrict:  l.SubDistrict,
		Address:      l.Address,
		PropertyType: l.PropertyType,
		AreaM2:       l.AreaM2,
		Parking:      l.Parking,
		Coordinates:  l.Coordinates,
		IsPremium:    l.IsPremium,
		Deposit:      visible(l.Deposit),
		MonthlyRent:  visible(l.MonthlyRent),
		YearlyRent:   visible(l.YearlyRent),
		SalePrice:    visible(l.SalePrice),
		KeyMoney:     visible(l.KeyMoney),
	}

	if v.Privileged() {
		return out
	}

	anonymous := v.Anonymous()
	premiumTier := !anonymous && v.Tier.AtLeast(models.TierPremium)

	if l.IsBlurred && !premiumTier {
		out.Blurred = true
		out.Title = blurredText
		out.Address = ""
		out.SubDistrict = ""
	}

	if l.IsPremium && !premiumTier {
		ph := PlaceholderUpgrade
		if anonymous {
			ph = PlaceholderLogin
		}
		out.Deposit = hidden(ph)
		out.MonthlyRent = hidden(ph)
		out.YearlyRent = hidden(ph)
		out.SalePrice = hidden(ph)
		out.KeyMoney = hidden(ph)
		return out
	}

	// Key money is gated separately: any authenticated approved tier
	// may see it, anonymous viewers get the login prompt.
	if anonymous {
		out.KeyMoney = hidden(PlaceholderLogin)
	}

	return out
}
