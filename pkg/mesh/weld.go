package mesh

// WeldMap maps every vertex to the lowest-indexed vertex with a bit-identical
// position. Vertices without duplicates map to themselves.
func WeldMap(m *Mesh) []uint32 {
	n := m.VertexCount()
	remap := make([]uint32, n)
	first := make(map[[3]float32]uint32, n)
	for v := 0; v < n; v++ {
		p := m.Position(uint32(v))
		if lowest, ok := first[p]; ok {
			remap[v] = lowest
			continue
		}
		first[p] = uint32(v)
		remap[v] = uint32(v)
	}
	return remap
}

// RemapIndices returns a copy of indices with every entry replaced through
// remap.
func RemapIndices(indices []uint32, remap []uint32) []uint32 {
	out := make([]uint32, len(indices))
	for i, v := range indices {
		out[i] = remap[v]
	}
	return out
}

// Weld returns a copy of m whose indices reference the lowest-indexed
// duplicate of each position. The vertex buffer is left as is so vertex
// colour streams stay aligned with the original vertices.
func Weld(m *Mesh) *Mesh {
	c := m.Clone()
	c.Indices = RemapIndices(m.Indices, WeldMap(m))
	return c
}
