package models

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"volslice/pkg/coord"
)

// View is a named viewing orientation in study space
type View int

const (
	// Transverse looks down the study z axis
	Transverse View = iota
	// Coronal looks along the study y axis
	Coronal
	// Sagittal looks along the study x axis
	Sagittal
)

// Views lists every orientation
var Views = []View{Transverse, Coronal, Sagittal}

func (v View) String() string {
	switch v {
	case Transverse:
		return "transverse"
	case Coronal:
		return "coronal"
	case Sagittal:
		return "sagittal"
	}
	return fmt.Sprintf("View(%d)", int(v))
}

// ParseView accepts a view name or its usual abbreviation
func ParseView(name string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "transverse", "axial", "t", "z":
		return Transverse, nil
	case "coronal", "c", "y":
		return Coronal, nil
	case "sagittal", "s", "x":
		return Sagittal, nil
	}
	return 0, fmt.Errorf("unknown view %q", name)
}

// Axes returns the study-space directions of the view's x, y and normal axes
func (v View) Axes() [3]r3.Vec {
	switch v {
	case Coronal:
		return [3]r3.Vec{{X: 1}, {Z: 1}, {Y: -1}}
	case Sagittal:
		return [3]r3.Vec{{Y: 1}, {Z: 1}, {X: 1}}
	}
	return [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}
}

// Frame returns the view's coordinate frame with its origin at offset
func (v View) Frame(offset r3.Vec) coord.Frame {
	return coord.Frame{Offset: offset, Axes: v.Axes()}
}

// Normal returns the study-space direction slices of this view are stacked along
func (v View) Normal() r3.Vec {
	return v.Axes()[2]
}
