// Package marker writes section IDs into a per-vertex colour stream.
//
// A Stream pairs a mesh with one colour per vertex and owns the island cache
// of that mesh. Section IDs live in a single channel of the colour; the
// other channels are left alone so R, G and B can carry independent
// sectionings of the same mesh. The value 0 is reserved for occluders and is
// never assigned as a section ID.
package marker

import (
	"fmt"
	"image/color"

	"github.com/alexanderameye/surface-id-mapper/pkg/island"
	"github.com/alexanderameye/surface-id-mapper/pkg/mesh"
)

// Stream is the vertex colour stream of one mesh.
type Stream struct {
	mesh    *mesh.Mesh
	colors  []color.RGBA
	islands *island.Cache
}

// NewStream returns a stream of opaque black for m whose island cache uses
// policy.
func NewStream(m *mesh.Mesh, policy island.Policy) *Stream {
	return &Stream{
		mesh:    m,
		colors:  blackStream(m.VertexCount()),
		islands: island.NewCache(m, policy),
	}
}

func blackStream(n int) []color.RGBA {
	colors := make([]color.RGBA, n)
	for i := range colors {
		colors[i].A = 255
	}
	return colors
}

// Mesh returns the streamed mesh.
func (s *Stream) Mesh() *mesh.Mesh { return s.mesh }

// Islands returns the island cache owned by the stream.
func (s *Stream) Islands() *island.Cache { return s.islands }

// Len returns the number of colours, one per vertex.
func (s *Stream) Len() int { return len(s.colors) }

// Color returns the colour of vertex v.
func (s *Stream) Color(v int) color.RGBA { return s.colors[v] }

// Colors returns a copy of the colour stream.
func (s *Stream) Colors() []color.RGBA {
	return append([]color.RGBA(nil), s.colors...)
}

// SetColors replaces the colour stream. colors must hold one entry per
// vertex.
func (s *Stream) SetColors(colors []color.RGBA) error {
	if len(colors) != s.mesh.VertexCount() {
		return fmt.Errorf("marker: %d colours for %d vertices", len(colors), s.mesh.VertexCount())
	}
	s.colors = append(s.colors[:0], colors...)
	return nil
}

// SetColor sets every vertex to c.
func (s *Stream) SetColor(c color.RGBA) {
	for i := range s.colors {
		s.colors[i] = c
	}
}

// Rebuild attaches the stream to a changed mesh. Colours are reset to opaque
// black and the island partition is dropped.
func (s *Stream) Rebuild(m *mesh.Mesh) {
	s.mesh = m
	s.colors = blackStream(m.VertexCount())
	s.islands.SetMesh(m)
}
