package identity

import "context"

// Resolver answers questions about game units and the token set the
// platform accepts. It is backed by an external registry.
type Resolver interface {
	// OwnerOf returns the wallet that owns the unit.
	OwnerOf(ctx context.Context, unitID uint64) (string, error)
	// IsEligibleUnit reports whether the unit may receive rewards.
	IsEligibleUnit(ctx context.Context, unitID uint64) (bool, error)
	// PenaltyCount returns the unit's accumulated penalty count.
	PenaltyCount(ctx context.Context, unitID uint64) (uint64, error)
	// SupportedTokens lists accepted token symbols in registry order.
	SupportedTokens(ctx context.Context) ([]string, error)
}
