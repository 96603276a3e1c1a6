package risk

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		current string
		latest  string
		want    Tier
	}{
		// Major bumps are always high, table membership or not.
		{"lodash", "3.10.1", "4.17.21", TierHigh},
		{"left-pad", "1.3.0", "2.0.0", TierHigh},

		// Core frameworks are high even on a patch delta.
		{"react", "18.2.0", "18.2.1", TierHigh},
		{"react", "17.0.0", "18.2.0", TierHigh},
		{"express", "4.18.1", "4.18.2", TierHigh},

		// Routing packages are high regardless of delta.
		{"react-router-dom", "6.8.0", "6.9.0", TierHigh},

		// Build tools with a minor bump are medium; patch-only falls
		// through the table to safe.
		{"typescript", "5.2.2", "5.3.0", TierMedium},
		{"webpack", "5.88.0", "5.88.2", TierSafe},

		// Dev tools are low by exact name or prefix rule.
		{"eslint", "8.50.0", "8.51.0", TierLow},
		{"eslint", "8.50.0", "8.50.1", TierLow},
		{"@types/node", "20.4.0", "20.8.0", TierLow},
		{"eslint-plugin-import", "2.28.0", "2.29.0", TierLow},

		// Unrecognized packages fall through on delta alone.
		{"lodash", "4.17.20", "4.17.21", TierSafe},
		{"axios", "1.4.0", "1.5.0", TierLow},

		// Missing components treated as 0; pre-release tags stripped.
		{"some-lib", "2.1", "2.1.3", TierSafe},
		{"some-lib", "1.0.0-beta.3", "1.0.2", TierSafe},

		// Unparseable versions classify as unknown.
		{"weird-pkg", "not-a-version", "1.0.0", TierUnknown},
		{"weird-pkg", "", "1.0.0", TierUnknown},
	}

	for _, tt := range tests {
		got := Classify(tt.name, tt.current, tt.latest)
		if got != tt.want {
			t.Errorf("Classify(%q, %q, %q) = %v, want %v",
				tt.name, tt.current, tt.latest, got, tt.want)
		}
	}
}

func TestDelta(t *testing.T) {
	dMajor, dMinor, dPatch, ok := Delta("17.0.0", "18.2.1")
	if !ok {
		t.Fatal("Delta() ok = false, want true")
	}
	if dMajor != 1 || dMinor != 2 || dPatch != 1 {
		t.Errorf("Delta() = (%d, %d, %d), want (1, 2, 1)", dMajor, dMinor, dPatch)
	}

	// Downgrades produce negative deltas rather than an error.
	dMajor, _, _, ok = Delta("2.0.0", "1.9.0")
	if !ok || dMajor != -1 {
		t.Errorf("Delta(downgrade) = (%d, ok=%v), want (-1, true)", dMajor, ok)
	}

	if _, _, _, ok := Delta("garbage", "1.0.0"); ok {
		t.Error("Delta() with unparseable input should return ok = false")
	}
}

func TestTierRoundTrip(t *testing.T) {
	for _, tier := range []Tier{TierSafe, TierLow, TierMedium, TierHigh, TierUnknown} {
		parsed, ok := ParseTier(tier.String())
		if !ok || parsed != tier {
			t.Errorf("ParseTier(%q) = (%v, %v), want (%v, true)", tier.String(), parsed, ok, tier)
		}
	}

	if _, ok := ParseTier("catastrophic"); ok {
		t.Error("ParseTier should reject unknown tier names")
	}
}

func TestNeedsFullGate(t *testing.T) {
	full := []Tier{TierMedium, TierHigh, TierUnknown}
	for _, tier := range full {
		if !tier.NeedsFullGate() {
			t.Errorf("%v.NeedsFullGate() = false, want true", tier)
		}
	}
	for _, tier := range []Tier{TierSafe, TierLow} {
		if tier.NeedsFullGate() {
			t.Errorf("%v.NeedsFullGate() = true, want false", tier)
		}
	}
}
