package coord

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const tolerance = 1e-12

func near(a, b r3.Vec) bool {
	return r3.Norm(r3.Sub(a, b)) < tolerance
}

func obliqueFrame() Frame {
	f := NewFrame(r3.Vec{X: 10, Y: -4, Z: 2.5}, r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{Z: 1})
	f = f.Rotate(0.3, r3.Vec{X: 1, Y: 1})
	return f.Rotate(-1.1, r3.Vec{Z: 1})
}

// TestIdentity verifies that the identity frame leaves points untouched
func TestIdentity(t *testing.T) {
	f := Identity()
	p := r3.Vec{X: 1.5, Y: -2, Z: 7}

	if got := f.ToStudy(p); !near(got, p) {
		t.Errorf("Expected %v, got %v", p, got)
	}
	if got := f.FromStudy(p); !near(got, p) {
		t.Errorf("Expected %v, got %v", p, got)
	}
}

// TestRoundTrip verifies FromStudy(ToStudy(p)) == p for an oblique frame
func TestRoundTrip(t *testing.T) {
	f := obliqueFrame()
	points := []r3.Vec{
		{},
		{X: 1},
		{X: -3.2, Y: 8.1, Z: 0.25},
		{X: 100, Y: 100, Z: -100},
	}

	for _, p := range points {
		if got := f.FromStudy(f.ToStudy(p)); !near(got, p) {
			t.Errorf("Round trip of %v gave %v", p, got)
		}
		if got := f.DirFromStudy(f.DirToStudy(p)); !near(got, p) {
			t.Errorf("Direction round trip of %v gave %v", p, got)
		}
	}
}

// TestDirectionIgnoresOffset verifies that displacement mapping skips the offset
func TestDirectionIgnoresOffset(t *testing.T) {
	f := Identity().Translate(r3.Vec{X: 5, Y: 6, Z: 7})
	d := r3.Vec{Z: 1}

	if got := f.DirToStudy(d); !near(got, d) {
		t.Errorf("Expected direction %v, got %v", d, got)
	}
	if got := f.ToStudy(d); !near(got, r3.Vec{X: 5, Y: 6, Z: 8}) {
		t.Errorf("Expected translated point, got %v", got)
	}
}

// TestRotationPreservesLength verifies that a rigid frame keeps distances
func TestRotationPreservesLength(t *testing.T) {
	f := obliqueFrame()
	a := r3.Vec{X: 1, Y: 2, Z: 3}
	b := r3.Vec{X: -4, Y: 0.5, Z: 9}

	local := r3.Norm(r3.Sub(a, b))
	study := r3.Norm(r3.Sub(f.ToStudy(a), f.ToStudy(b)))
	if math.Abs(local-study) > tolerance {
		t.Errorf("Expected distance %f, got %f", local, study)
	}
}

// TestCompose verifies that composing frames equals chaining them
func TestCompose(t *testing.T) {
	outer := obliqueFrame()
	inner := Identity().Translate(r3.Vec{X: 2, Y: 3}).Rotate(0.7, r3.Vec{Y: 1})
	composed := outer.Compose(inner)

	p := r3.Vec{X: 0.5, Y: -1.5, Z: 4}
	expected := outer.ToStudy(inner.ToStudy(p))
	if got := composed.ToStudy(p); !near(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

// TestInverse verifies that the inverse frame undoes the original
func TestInverse(t *testing.T) {
	f := obliqueFrame()
	inv := f.Inverse()
	p := r3.Vec{X: 3, Y: -2, Z: 11}

	if got := inv.ToStudy(f.ToStudy(p)); !near(got, p) {
		t.Errorf("Expected %v, got %v", p, got)
	}
	if got := inv.ToStudy(p); !near(got, f.FromStudy(p)) {
		t.Errorf("Inverse ToStudy should equal FromStudy, got %v", got)
	}
}

// TestTransfer verifies point transfer between two frames
func TestTransfer(t *testing.T) {
	src := Identity().Translate(r3.Vec{Z: 10})
	dst := Identity()

	got := src.Transfer(r3.Vec{X: 1, Y: 2, Z: 3}, dst)
	if !near(got, r3.Vec{X: 1, Y: 2, Z: 13}) {
		t.Errorf("Expected (1,2,13), got %v", got)
	}
	if d := src.TransferDir(r3.Vec{Z: 1}, dst); !near(d, r3.Vec{Z: 1}) {
		t.Errorf("Expected unit z, got %v", d)
	}
}

// TestCorners verifies the eight corners of an axis-aligned box
func TestCorners(t *testing.T) {
	f := Identity()
	corners := f.Corners(r3.Vec{X: 2, Y: 3, Z: 4})

	if !near(corners[0], r3.Vec{}) {
		t.Errorf("Expected origin corner, got %v", corners[0])
	}
	if !near(corners[7], r3.Vec{X: 2, Y: 3, Z: 4}) {
		t.Errorf("Expected far corner, got %v", corners[7])
	}
	if !near(corners[5], r3.Vec{X: 2, Z: 4}) {
		t.Errorf("Expected corner (2,0,4), got %v", corners[5])
	}
}
