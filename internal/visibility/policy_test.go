package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-discovery/internal/geo"
	"listing-discovery/internal/models"
)

func sampleListing() models.Listing {
	return models.Listing{
		ID:          "l-1",
		Title:       "동성로 1층 상가",
		District:    "중구",
		SubDistrict: "동성로2가",
		Address:     "대구 중구 동성로 20",
		Deposit:     5000,
		MonthlyRent: 350,
		YearlyRent:  4200,
		SalePrice:   0,
		KeyMoney:    8000,
		AreaM2:      66.1,
		Coordinates: &geo.Coordinates{Lat: 35.8690, Lng: 128.5960},
	}
}

func approvedViewer(role models.Role, tier models.Tier) models.Viewer {
	return models.Viewer{
		UserID:         "u-1",
		Role:           role,
		Tier:           tier,
		ApprovalStatus: models.ApprovalApproved,
	}
}

func TestApply_PrivilegedRolesBypassEverything(t *testing.T) {
	l := sampleListing()
	l.IsPremium = true
	l.IsBlurred = true

	for _, role := range []models.Role{models.RoleAdmin, models.RoleAgent} {
		t.Run(string(role), func(t *testing.T) {
			out := Apply(l, approvedViewer(role, models.TierBronze))
			assert.False(t, out.Blurred)
			assert.Equal(t, l.Title, out.Title)
			assert.True(t, out.Deposit.Visible)
			assert.Equal(t, l.Deposit, out.Deposit.Value)
			assert.True(t, out.KeyMoney.Visible)
			assert.Equal(t, l.KeyMoney, out.KeyMoney.Value)
		})
	}
}

func TestApply_PremiumGating(t *testing.T) {
	l := sampleListing()
	l.IsPremium = true

	t.Run("bronze user sees placeholders", func(t *testing.T) {
		out := Apply(l, approvedViewer(models.RoleUser, models.TierBronze))
		for _, f := range []MoneyField{out.Deposit, out.MonthlyRent, out.YearlyRent, out.SalePrice, out.KeyMoney} {
			assert.False(t, f.Visible)
			assert.Equal(t, PlaceholderUpgrade, f.Placeholder)
			assert.Zero(t, f.Value, "raw stored value must not leak")
		}
	})

	t.Run("premium user sees stored values", func(t *testing.T) {
		out := Apply(l, approvedViewer(models.RoleUser, models.TierPremium))
		assert.True(t, out.Deposit.Visible)
		assert.Equal(t, int64(5000), out.Deposit.Value)
		assert.True(t, out.KeyMoney.Visible)
		assert.Equal(t, int64(8000), out.KeyMoney.Value)
	})

	t.Run("anonymous gets login prompt, not upgrade", func(t *testing.T) {
		out := Apply(l, models.Viewer{})
		assert.Equal(t, PlaceholderLogin, out.Deposit.Placeholder)
	})
}

func TestApply_KeyMoneyGating(t *testing.T) {
	l := sampleListing() // not premium

	t.Run("anonymous sees login placeholder for key money only", func(t *testing.T) {
		out := Apply(l, models.Viewer{})
		assert.False(t, out.KeyMoney.Visible)
		assert.Equal(t, PlaceholderLogin, out.KeyMoney.Placeholder)
		// Other financials on a non-premium listing stay visible.
		assert.True(t, out.Deposit.Visible)
		assert.True(t, out.MonthlyRent.Visible)
	})

	t.Run("unapproved account counts as anonymous", func(t *testing.T) {
		v := models.Viewer{UserID: "u-2", Role: models.RoleUser, Tier: models.TierGold, ApprovalStatus: models.ApprovalPending}
		out := Apply(l, v)
		assert.False(t, out.KeyMoney.Visible)
		assert.Equal(t, PlaceholderLogin, out.KeyMoney.Placeholder)
	})

	t.Run("any approved tier sees key money", func(t *testing.T) {
		for _, tier := range []models.Tier{models.TierBronze, models.TierSilver, models.TierGold, models.TierPremium} {
			out := Apply(l, approvedViewer(models.RoleUser, tier))
			assert.True(t, out.KeyMoney.Visible, "tier %s", tier)
			assert.Equal(t, int64(8000), out.KeyMoney.Value)
		}
	})
}

func TestApply_BlurredListing(t *testing.T) {
	l := sampleListing()
	l.IsBlurred = true

	t.Run("below premium tier is masked", func(t *testing.T) {
		out := Apply(l, approvedViewer(models.RoleUser, models.TierGold))
		assert.True(t, out.Blurred)
		assert.NotEqual(t, l.Title, out.Title)
		assert.Empty(t, out.Address)
		assert.Empty(t, out.SubDistrict)
		// District and coordinates survive so the marker stays on the map.
		assert.Equal(t, l.District, out.District)
		require.NotNil(t, out.Coordinates)
	})

	t.Run("premium tier sees through the blur", func(t *testing.T) {
		out := Apply(l, approvedViewer(models.RoleUser, models.TierPremium))
		assert.False(t, out.Blurred)
		assert.Equal(t, l.Title, out.Title)
	})
}

func TestApply_BlurredAndPremiumCoOccur(t *testing.T) {
	l := sampleListing()
	l.IsBlurred = true
	l.IsPremium = true

	out := Apply(l, approvedViewer(models.RoleUser, models.TierBronze))

	// Blur governs listing-wide fields, premium governs financials;
	// both redactions apply at once.
	assert.True(t, out.Blurred)
	assert.Empty(t, out.Address)
	assert.False(t, out.Deposit.Visible)
	assert.Equal(t, PlaceholderUpgrade, out.Deposit.Placeholder)
}

func TestApply_IsPureAndTotal(t *testing.T) {
	listings := []models.Listing{sampleListing()}
	l2 := sampleListing()
	l2.IsPremium = true
	l3 := sampleListing()
	l3.IsBlurred = true
	l4 := sampleListing()
	l4.IsPremium = true
	l4.IsBlurred = true
	listings = append(listings, l2, l3, l4)

	viewers := []models.Viewer{
		{},
		approvedViewer(models.RoleUser, models.TierBronze),
		approvedViewer(models.RoleUser, models.TierSilver),
		approvedViewer(models.RoleUser, models.TierGold),
		approvedViewer(models.RoleUser, models.TierPremium),
		approvedViewer(models.RoleAgent, models.TierAgent),
		approvedViewer(models.RoleAdmin, models.TierAdmin),
	}

	for _, l := range listings {
		before := l
		for _, v := range viewers {
			out := Apply(l, v)

			// Total: every hidden financial field carries no raw value.
			for _, f := range []MoneyField{out.Deposit, out.MonthlyRent, out.YearlyRent, out.SalePrice, out.KeyMoney} {
				if !f.Visible {
					assert.Zero(t, f.Value)
					assert.NotEqual(t, PlaceholderNone, f.Placeholder)
				}
			}

			// Pure: input listing untouched.
			assert.Equal(t, before, l)
		}
	}
}
