// Package kernel defines the abstract geometry kernel interface.
// Implementations turn primitive solids into indexed triangle meshes
// that the island partitioner and the marker consume.
package kernel

import (
	"errors"

	"github.com/alexanderameye/surface-id-mapper/pkg/mesh"
)

// ErrInvalidDimension is returned when a primitive gets a non-positive size.
var ErrInvalidDimension = errors.New("kernel: invalid dimension")

// Solid is an opaque handle to a geometry kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) (Solid, error)
	Cylinder(height, radius float64) (Solid, error)
	Sphere(radius float64) (Solid, error)

	Union(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	ToMesh(s Solid) (*mesh.Mesh, error)
}
