package models

// Role is the coarse permission axis supplied by the auth collaborator.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Tier is the paid membership level governing content visibility.
type Tier string

const (
	TierNone    Tier = ""
	TierBronze  Tier = "bronze"
	TierSilver  Tier = "silver"
	TierGold    Tier = "gold"
	TierPremium Tier = "premium"
	TierAgent   Tier = "agent"
	TierAdmin   Tier = "admin"
)

var tierRank = map[Tier]int{
	TierNone:    0,
	TierBronze:  1,
	TierSilver:  2,
	TierGold:    3,
	TierPremium: 4,
	TierAgent:   5,
	TierAdmin:   6,
}

// Rank returns the ordinal position of the tier; unknown tiers rank as none.
func (t Tier) Rank() int {
	return tierRank[t]
}

// AtLeast reports whether t ranks at or above other.
func (t Tier) AtLeast(other Tier) bool {
	return t.Rank() >= other.Rank()
}

// ApprovalStatus is the account review state from the auth collaborator.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Viewer identifies who is looking at listings. The zero value is an
// anonymous visitor.
type Viewer struct {
	UserID         string
	Role           Role
	Tier           Tier
	ApprovalStatus ApprovalStatus
}

// Anonymous reports whether the viewer must be treated as logged out.
// An account that is not approved counts as anonymous for visibility.
func (v Viewer) Anonymous() bool {
	return v.UserID == "" || v.ApprovalStatus != ApprovalApproved
}

// Privileged reports whether the viewer bypasses tier-based redaction.
func (v Viewer) Privileged() bool {
	if v.Anonymous() {
		return false
	}
	return v.Role == RoleAdmin || v.Role == RoleAgent
}
