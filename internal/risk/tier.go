// Package risk classifies the breakage risk of upgrading an npm package
// from its declared version to a newer one. The tier decides how much
// validation the upgrade gets before it is committed.
package risk

// Tier is the risk classification of a single package upgrade.
type Tier int

const (
	// TierSafe is a patch-only change with no known blast radius.
	TierSafe Tier = iota

	// TierLow is a minor change or a known dev tool.
	TierLow

	// TierMedium is a minor change to a known build tool.
	TierMedium

	// TierHigh is a major change, or any change to a core framework
	// or routing package.
	TierHigh

	// TierUnknown means neither version could be parsed at all.
	TierUnknown
)

// String returns the tier name as used in flags, config, and tables.
func (t Tier) String() string {
	switch t {
	case TierSafe:
		return "safe"
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParseTier converts a tier name back to its Tier value.
// Returns TierUnknown and false for unrecognized names.
func ParseTier(s string) (Tier, bool) {
	switch s {
	case "safe":
		return TierSafe, true
	case "low":
		return TierLow, true
	case "medium":
		return TierMedium, true
	case "high":
		return TierHigh, true
	case "unknown":
		return TierUnknown, true
	default:
		return TierUnknown, false
	}
}

// NeedsFullGate reports whether upgrades of this tier require the full
// validation gate (install check, type check, tests) rather than the
// lightweight lock-refresh check.
func (t Tier) NeedsFullGate() bool {
	return t == TierMedium || t == TierHigh || t == TierUnknown
}
