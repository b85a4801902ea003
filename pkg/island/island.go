// Package island partitions a triangle mesh into islands: maximal sets of
// triangles connected through shared vertices.
//
// Two triangles are adjacent when they reference at least one common vertex.
// Touching at a single corner is enough, so geometry that only meets at a
// vertex ends up in one island. Adjacency is resolved through a
// vertex-to-triangle index, which yields the same partition as comparing
// every pair of triangles without the quadratic cost.
package island

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderameye/surface-id-mapper/pkg/logging"
	"github.com/alexanderameye/surface-id-mapper/pkg/mesh"
)

var (
	// ErrInvalidTopology is returned for malformed index buffers.
	ErrInvalidTopology = mesh.ErrInvalidTopology

	// ErrNotFound is returned when a seed triangle is absent from the
	// partition even after recomputing it.
	ErrNotFound = errors.New("island: triangle not found")

	// ErrNoPositions is returned by ByPosition partitioning of a mesh
	// without vertex positions.
	ErrNoPositions = errors.New("island: mesh has no vertex positions")
)

// Policy selects how vertices are identified when testing adjacency.
type Policy int

const (
	// ByIndex connects triangles that share a vertex index.
	ByIndex Policy = iota
	// ByPosition first merges vertices with identical positions, then
	// connects triangles that share a merged vertex.
	ByPosition
)

func (p Policy) String() string {
	switch p {
	case ByIndex:
		return "index"
	case ByPosition:
		return "position"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses "index" or "position".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "index", "byindex", "":
		return ByIndex, nil
	case "position", "byposition":
		return ByPosition, nil
	}
	return ByIndex, fmt.Errorf("island: unknown adjacency policy %q", s)
}

// Islands is an immutable partition of a triangle buffer.
type Islands struct {
	indices []uint32              // original index buffer
	labels  []int                 // triangle -> island
	members [][]int               // island -> triangles, in discovery order
	lookup  map[mesh.Triangle]int // triple -> first triangle with that triple
	policy  Policy
}

// Compute partitions indices by shared vertex index. Every index must be
// below vertexCount.
func Compute(indices []uint32, vertexCount int) (*Islands, error) {
	if err := mesh.CheckIndices(indices, vertexCount); err != nil {
		return nil, fmt.Errorf("island: %w", err)
	}
	return compute(indices, indices, vertexCount, ByIndex), nil
}

// Partition partitions the triangles of m using the given policy.
func Partition(m *mesh.Mesh, policy Policy) (*Islands, error) {
	if err := mesh.CheckIndices(m.Indices, m.VertexCount()); err != nil {
		return nil, fmt.Errorf("island: %w", err)
	}
	switch policy {
	case ByIndex:
		return compute(m.Indices, m.Indices, m.VertexCount(), ByIndex), nil
	case ByPosition:
		if m.IsEmpty() && len(m.Indices) > 0 {
			return nil, ErrNoPositions
		}
		adj := mesh.RemapIndices(m.Indices, mesh.WeldMap(m))
		return compute(m.Indices, adj, m.VertexCount(), ByPosition), nil
	}
	return nil, fmt.Errorf("island: unknown adjacency policy %v", policy)
}

// compute floods adjacency over adj and reports triangles using the
// triples of orig. Both buffers have the same length.
func compute(orig, adj []uint32, vertexCount int, policy Policy) *Islands {
	start := time.Now()
	n := len(adj) / 3

	// Vertex -> triangles, compressed: the triangles touching vertex v are
	// vertTris[first[v]:first[v+1]].
	first := make([]int, vertexCount+1)
	for _, v := range adj {
		first[v+1]++
	}
	for v := 0; v < vertexCount; v++ {
		first[v+1] += first[v]
	}
	next := make([]int, vertexCount)
	copy(next, first[:vertexCount])
	vertTris := make([]int, len(adj))
	for i, v := range adj {
		vertTris[next[v]] = i / 3
		next[v]++
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	var members [][]int
	var stack []int
	for t := 0; t < n; t++ {
		if labels[t] >= 0 {
			continue
		}
		id := len(members)
		labels[t] = id
		members = append(members, []int{t})
		stack = append(stack[:0], t)

		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for k := 0; k < 3; k++ {
				v := adj[cur*3+k]
				for _, u := range vertTris[first[v]:first[v+1]] {
					if labels[u] >= 0 {
						continue
					}
					labels[u] = id
					members[id] = append(members[id], u)
					stack = append(stack, u)
				}
			}
		}
	}

	lookup := make(map[mesh.Triangle]int, n)
	for t := 0; t < n; t++ {
		key := mesh.Triangle{orig[t*3], orig[t*3+1], orig[t*3+2]}
		if _, ok := lookup[key]; !ok {
			lookup[key] = t
		}
	}

	logging.Logger().Debug("islands computed",
		"islands", len(members),
		"triangles", n,
		"policy", policy.String(),
		"elapsed", time.Since(start))

	return &Islands{
		indices: append([]uint32(nil), orig...),
		labels:  labels,
		members: members,
		lookup:  lookup,
		policy:  policy,
	}
}

// Len returns the number of islands.
func (is *Islands) Len() int {
	return len(is.members)
}

// TriangleCount returns the number of partitioned triangles.
func (is *Islands) TriangleCount() int {
	return len(is.labels)
}

// Policy returns the adjacency policy the partition was built with.
func (is *Islands) Policy() Policy {
	return is.policy
}

// Island returns the triangle indices of island i in discovery order. The
// returned slice must not be modified.
func (is *Islands) Island(i int) []int {
	return is.members[i]
}

// Indices returns island i as a flat index buffer [v0,v1,v2, v0,v1,v2, ...].
func (is *Islands) Indices(i int) []uint32 {
	tris := is.members[i]
	out := make([]uint32, 0, len(tris)*3)
	for _, t := range tris {
		out = append(out, is.indices[t*3], is.indices[t*3+1], is.indices[t*3+2])
	}
	return out
}

// Sizes returns the triangle count of every island.
func (is *Islands) Sizes() []int {
	sizes := make([]int, len(is.members))
	for i, m := range is.members {
		sizes[i] = len(m)
	}
	return sizes
}

// Label returns the island of triangle index tri.
func (is *Islands) Label(tri int) int {
	return is.labels[tri]
}

// IslandOf returns the island containing the first triangle whose ordered
// vertex triple equals t.
func (is *Islands) IslandOf(t mesh.Triangle) (int, bool) {
	tri, ok := is.lookup[t]
	if !ok {
		return -1, false
	}
	return is.labels[tri], true
}

// Find returns the triangles of the island containing t. The returned slice
// is shared with the partition and must not be modified.
func (is *Islands) Find(t mesh.Triangle) ([]int, bool) {
	i, ok := is.IslandOf(t)
	if !ok {
		return nil, false
	}
	return is.members[i], true
}
