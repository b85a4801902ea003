package mesh

import (
	"errors"
	"fmt"
)

// ErrInvalidTopology is matched by every *TopologyError.
var ErrInvalidTopology = errors.New("mesh: invalid topology")

// TopologyError describes the first malformed entry of an index buffer.
type TopologyError struct {
	Offset      int    // position in the index buffer, -1 for buffer-level problems
	Index       uint32 // offending vertex index
	VertexCount int
	Reason      string
}

func (e *TopologyError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("mesh: invalid topology: %s", e.Reason)
	}
	return fmt.Sprintf("mesh: invalid topology at index %d: vertex %d %s (vertex count %d)",
		e.Offset, e.Index, e.Reason, e.VertexCount)
}

// Is reports ErrInvalidTopology as the error kind.
func (e *TopologyError) Is(target error) bool {
	return target == ErrInvalidTopology
}

// CheckIndices verifies that indices forms whole triangles and references
// only vertices below vertexCount.
func CheckIndices(indices []uint32, vertexCount int) error {
	if len(indices)%3 != 0 {
		return &TopologyError{
			Offset: -1,
			Reason: fmt.Sprintf("index buffer length %d is not a multiple of 3", len(indices)),
		}
	}
	for i, v := range indices {
		if int(v) >= vertexCount {
			return &TopologyError{
				Offset:      i,
				Index:       v,
				VertexCount: vertexCount,
				Reason:      "out of range",
			}
		}
	}
	return nil
}

// Validate checks the structural consistency of m.
func Validate(m *Mesh) error {
	if len(m.Vertices)%3 != 0 {
		return &TopologyError{
			Offset: -1,
			Reason: fmt.Sprintf("vertex buffer length %d is not a multiple of 3", len(m.Vertices)),
		}
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Vertices) {
		return &TopologyError{
			Offset: -1,
			Reason: fmt.Sprintf("normals length %d != vertices length %d", len(m.Normals), len(m.Vertices)),
		}
	}
	return CheckIndices(m.Indices, m.VertexCount())
}
