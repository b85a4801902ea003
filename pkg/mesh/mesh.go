// Package mesh defines the indexed triangle mesh shared by the geometry
// kernels, the island partitioner and the vertex colour marker.
package mesh

// Triangle is the ordered vertex-index triple of one triangle.
type Triangle [3]uint32

// Part names a contiguous range of triangles inside a merged mesh.
type Part struct {
	Name  string `json:"name"`
	First int    `json:"first"` // first triangle index
	Count int    `json:"count"` // number of triangles
}

// Mesh is an indexed triangle mesh.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"`           // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals,omitempty"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`            // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName,omitempty"` // source part, if any
	Parts    []Part    `json:"parts,omitempty"`    // set by tessellate.Merge
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Triangle returns the vertex triple of triangle i.
func (m *Mesh) Triangle(i int) Triangle {
	o := i * 3
	return Triangle{m.Indices[o], m.Indices[o+1], m.Indices[o+2]}
}

// Position returns the position of vertex v.
func (m *Mesh) Position(v uint32) [3]float32 {
	o := int(v) * 3
	return [3]float32{m.Vertices[o], m.Vertices[o+1], m.Vertices[o+2]}
}

// IndexOf returns the index of the first triangle whose triple equals t,
// scanning the index buffer in order.
func (m *Mesh) IndexOf(t Triangle) (int, bool) {
	for i := 0; i+2 < len(m.Indices); i += 3 {
		if m.Indices[i] == t[0] && m.Indices[i+1] == t[1] && m.Indices[i+2] == t[2] {
			return i / 3, true
		}
	}
	return -1, false
}

// Clone returns a deep copy of m.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Vertices: append([]float32(nil), m.Vertices...),
		Normals:  append([]float32(nil), m.Normals...),
		Indices:  append([]uint32(nil), m.Indices...),
		PartName: m.PartName,
		Parts:    append([]Part(nil), m.Parts...),
	}
	return c
}
