package main

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"volslice/pkg/volume"
)

// TestParseDims verifies dimension strings with three to five components
func TestParseDims(t *testing.T) {
	testCases := map[string]volume.Dim5{
		"4x5x6":        {X: 4, Y: 5, Z: 6, Gate: 1, Time: 1},
		"64X64X32X4X3": {X: 64, Y: 64, Z: 32, Gate: 4, Time: 3},
		"2x2x2x8":      {X: 2, Y: 2, Z: 2, Gate: 8, Time: 1},
	}
	for s, expected := range testCases {
		got, err := parseDims(s)
		if err != nil || got != expected {
			t.Errorf("parseDims(%q) = %v, %v", s, got, err)
		}
	}
	for _, bad := range []string{"4x5", "1x2x3x4x5x6", "4xax6", "0x1x1"} {
		if _, err := parseDims(bad); err == nil {
			t.Errorf("Expected an error for %q", bad)
		}
	}
}

// TestParseVec verifies voxel size strings
func TestParseVec(t *testing.T) {
	got, err := parseVec("0.5, 1,2.5")
	if err != nil || got != (r3.Vec{X: 0.5, Y: 1, Z: 2.5}) {
		t.Errorf("Expected (0.5,1,2.5), got %v (%v)", got, err)
	}
	if _, err := parseVec("1,2"); err == nil {
		t.Error("Expected an error for two components")
	}
}
