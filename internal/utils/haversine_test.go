package utils

import "testing"

func TestHaversineKm(t *testing.T) {
	// Алматы to Астана, roughly 970 km by great circle.
	d := HaversineKm(43.2220, 76.8512, 51.1694, 71.4491)
	if d < 940 || d > 1000 {
		t.Fatalf("distance = %f, want ~970", d)
	}
}

func TestHaversineKmZero(t *testing.T) {
	if d := HaversineKm(51.1694, 71.4491, 51.1694, 71.4491); d != 0 {
		t.Fatalf("distance to self = %f, want 0", d)
	}
}

func TestHaversineKmSymmetric(t *testing.T) {
	a := HaversineKm(43.2220, 76.8512, 42.3417, 69.5901)
	b := HaversineKm(42.3417, 69.5901, 43.2220, 76.8512)
	if a != b {
		t.Fatalf("asymmetric: %f vs %f", a, b)
	}
}

func TestHashStringToUint64Deterministic(t *testing.T) {
	if HashStringToUint64("T-001") != HashStringToUint64("T-001") {
		t.Fatalf("hash must be deterministic")
	}
	if HashStringToUint64("T-001") == HashStringToUint64("T-002") {
		t.Fatalf("distinct inputs should hash differently")
	}
}
