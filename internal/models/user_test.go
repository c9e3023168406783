package models

import "testing"

func TestParseTier(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{"free", TierFree},
		{"premium", TierPremium},
		{"lifetime", TierLifetime},
		{" Premium ", TierPremium},
		{"", TierFree},
		{"gold", TierFree},
	}

	for _, tt := range tests {
		if got := ParseTier(tt.in); got != tt.want {
			t.Errorf("ParseTier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTierCanAccessPremium(t *testing.T) {
	if TierFree.CanAccessPremium() {
		t.Error("free tier must not access premium content")
	}
	if !TierPremium.CanAccessPremium() {
		t.Error("premium tier should access premium content")
	}
	if !TierLifetime.CanAccessPremium() {
		t.Error("lifetime tier should access premium content")
	}
	if Tier("gold").Valid() {
		t.Error("unknown tier reported as valid")
	}
}
