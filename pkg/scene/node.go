package scene

import "fmt"

// Kind enumerates the types of nodes in a scene.
type Kind int

const (
	KindSolid     Kind = iota // primitive solid
	KindTransform             // placement of one child
	KindGroup                 // collection of children
)

func (k Kind) String() string {
	switch k {
	case KindSolid:
		return "solid"
	case KindTransform:
		return "transform"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Shape is the primitive a solid node describes.
type Shape int

const (
	ShapeBox Shape = iota
	ShapeCylinder
	ShapeSphere
)

func (s Shape) String() string {
	switch s {
	case ShapeBox:
		return "box"
	case ShapeCylinder:
		return "cylinder"
	case ShapeSphere:
		return "sphere"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// Node is the fundamental element of a scene.
type Node struct {
	ID       NodeID   `json:"id"`
	Kind     Kind     `json:"kind"`
	Name     string   `json:"name,omitempty"`
	Children []NodeID `json:"children,omitempty"`
	Data     NodeData `json:"data"`
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // restricts implementations to this package
}

// SolidData describes a primitive. Boxes use Size; cylinders use Radius
// and Height; spheres use Radius.
type SolidData struct {
	Shape  Shape   `json:"shape"`
	Size   Vec3    `json:"size,omitempty"`
	Radius float64 `json:"radius,omitempty"`
	Height float64 `json:"height,omitempty"`
}

func (SolidData) nodeData() {}

// Dimensions returns the values that must be positive for the shape.
func (d SolidData) Dimensions() []float64 {
	switch d.Shape {
	case ShapeBox:
		return []float64{d.Size.X, d.Size.Y, d.Size.Z}
	case ShapeCylinder:
		return []float64{d.Height, d.Radius}
	default:
		return []float64{d.Radius}
	}
}

// TransformData places its single child. Rotation is Euler degrees.
type TransformData struct {
	Translation *Vec3 `json:"translation,omitempty"`
	Rotation    *Vec3 `json:"rotation,omitempty"`
}

func (TransformData) nodeData() {}

// GroupData collects children. A fused group is unioned into one solid
// before meshing, so overlapping members become a single island.
type GroupData struct {
	Fuse bool `json:"fuse,omitempty"`
}

func (GroupData) nodeData() {}
