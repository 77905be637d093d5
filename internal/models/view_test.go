package models

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// TestViewAxes verifies that every view has a right-handed orthonormal frame
func TestViewAxes(t *testing.T) {
	for _, v := range Views {
		a := v.Axes()
		for i := range a {
			if n := r3.Norm(a[i]); n != 1 {
				t.Errorf("%v: axis %d has length %g", v, i, n)
			}
		}
		if r3.Dot(a[0], a[1]) != 0 || r3.Dot(a[0], a[2]) != 0 || r3.Dot(a[1], a[2]) != 0 {
			t.Errorf("%v: axes are not orthogonal", v)
		}
		if c := r3.Cross(a[0], a[1]); c != a[2] {
			t.Errorf("%v: expected normal %v, got %v", v, a[2], c)
		}
	}
}

// TestViewFrame verifies that a view frame maps local points into study space
func TestViewFrame(t *testing.T) {
	f := Coronal.Frame(r3.Vec{X: 1, Y: 2, Z: 3})
	got := f.ToStudy(r3.Vec{X: 1, Y: 1, Z: 1})
	expected := r3.Vec{X: 2, Y: 1, Z: 4}
	if got != expected {
		t.Errorf("Expected %v, got %v", expected, got)
	}
	if Sagittal.Normal() != (r3.Vec{X: 1}) {
		t.Errorf("Expected sagittal normal along x, got %v", Sagittal.Normal())
	}
}

// TestParseView verifies view names
func TestParseView(t *testing.T) {
	for _, v := range Views {
		got, err := ParseView(v.String())
		if err != nil || got != v {
			t.Errorf("ParseView(%q) = %v, %v", v.String(), got, err)
		}
	}
	if got, _ := ParseView("Axial"); got != Transverse {
		t.Errorf("Expected axial to mean transverse, got %v", got)
	}
	if _, err := ParseView("oblique"); err == nil {
		t.Error("Expected an error for an unknown view")
	}
}
