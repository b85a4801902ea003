package island

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/alexanderameye/surface-id-mapper/pkg/logging"
	"github.com/alexanderameye/surface-id-mapper/pkg/mesh"
)

// FillMode selects how far a fill expands from its seed triangle.
type FillMode int

const (
	// FillGreedy expands to the seed's whole island.
	FillGreedy FillMode = iota
	// FillSingle returns only the seed triangle.
	FillSingle
)

func (f FillMode) String() string {
	switch f {
	case FillGreedy:
		return "greedy"
	case FillSingle:
		return "single"
	default:
		return fmt.Sprintf("FillMode(%d)", int(f))
	}
}

// ParseFillMode parses "greedy" or "single".
func ParseFillMode(s string) (FillMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "greedy", "":
		return FillGreedy, nil
	case "single":
		return FillSingle, nil
	}
	return FillGreedy, fmt.Errorf("island: unknown fill mode %q", s)
}

// Stats reports cache activity.
type Stats struct {
	Computed     bool // a partition is currently cached
	Computations int  // partitions built since the cache was created
}

// Cache holds the partition of one mesh. Each mesh record owns its own
// cache; the partition is built on first use and kept until Invalidate or
// SetMesh. Safe for concurrent use.
type Cache struct {
	mu           sync.Mutex
	mesh         *mesh.Mesh
	policy       Policy
	islands      *Islands
	computations int
}

// NewCache returns an empty cache for m.
func NewCache(m *mesh.Mesh, policy Policy) *Cache {
	return &Cache{mesh: m, policy: policy}
}

// Mesh returns the mesh the cache partitions.
func (c *Cache) Mesh() *mesh.Mesh {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mesh
}

// SetMesh replaces the mesh after a topology change and drops the cached
// partition.
func (c *Cache) SetMesh(m *mesh.Mesh) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mesh = m
	c.islands = nil
}

// Invalidate drops the cached partition. The next query recomputes it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.islands = nil
}

// IsComputed reports whether a partition is cached.
func (c *Cache) IsComputed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.islands != nil
}

// Stats returns cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Computed: c.islands != nil, Computations: c.computations}
}

// Islands returns the cached partition, computing it if needed.
func (c *Cache) Islands() (*Islands, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.islands != nil {
		return c.islands, nil
	}
	if err := c.recompute(); err != nil {
		return nil, err
	}
	return c.islands, nil
}

// Count returns the number of islands.
func (c *Cache) Count() (int, error) {
	is, err := c.Islands()
	if err != nil {
		return 0, err
	}
	return is.Len(), nil
}

// Connected returns a copy of the triangles of the island containing seed.
// A missing
// partition or a lookup miss triggers one recomputation; if the seed is
// still unknown afterwards ErrNotFound is returned.
func (c *Cache) Connected(seed mesh.Triangle) ([]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fresh := false
	if c.islands == nil {
		if err := c.recompute(); err != nil {
			return nil, err
		}
		fresh = true
	}
	if tris, ok := c.islands.Find(seed); ok {
		return slices.Clone(tris), nil
	}
	if !fresh {
		if err := c.recompute(); err != nil {
			return nil, err
		}
		if tris, ok := c.islands.Find(seed); ok {
			return slices.Clone(tris), nil
		}
	}
	logging.Logger().Warn("seed triangle not in partition", "triangle", seed)
	return nil, fmt.Errorf("island: seed %v: %w", seed, ErrNotFound)
}

// Fill returns the triangles a fill from seed covers under mode.
func (c *Cache) Fill(seed mesh.Triangle, mode FillMode) ([]int, error) {
	switch mode {
	case FillGreedy:
		return c.Connected(seed)
	case FillSingle:
		c.mu.Lock()
		m := c.mesh
		c.mu.Unlock()
		t, ok := m.IndexOf(seed)
		if !ok {
			return nil, fmt.Errorf("island: seed %v: %w", seed, ErrNotFound)
		}
		return []int{t}, nil
	}
	return nil, fmt.Errorf("island: unknown fill mode %v", mode)
}

// recompute rebuilds the partition. Caller holds c.mu.
func (c *Cache) recompute() error {
	is, err := Partition(c.mesh, c.policy)
	if err != nil {
		return err
	}
	c.islands = is
	c.computations++
	return nil
}
