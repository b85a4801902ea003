// Package scene holds the node graph produced by evaluating a scene script:
// solids, the transforms that place them, the groups that collect them, and
// the marker settings the script asked for.
package scene

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/alexanderameye/surface-id-mapper/pkg/channel"
	"github.com/alexanderameye/surface-id-mapper/pkg/island"
	"github.com/alexanderameye/surface-id-mapper/pkg/marker"
)

// NodeID is a content-addressed identifier for scene nodes.
type NodeID string

// ZeroID is the empty node ID.
const ZeroID NodeID = ""

// NewNodeID derives an ID from a node path such as "solid/lid".
func NewNodeID(path string) NodeID {
	sum := sha256.Sum256([]byte(path))
	return NodeID(hex.EncodeToString(sum[:]))
}

// Short returns the first 8 characters, for messages.
func (id NodeID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// IsZero reports whether id is unset.
func (id NodeID) IsZero() bool { return id == ZeroID }

// Vec3 is a 3D vector in scene units.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v+o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Settings is what a script's (mark ...) form selects.
type Settings struct {
	Channel channel.Channel `json:"channel"`
	Mode    marker.Mode     `json:"mode"`
	Policy  island.Policy   `json:"policy"`
}

// DefaultSettings marks the red channel sequentially. Kernel meshes are
// unwelded, so islands are found by position.
func DefaultSettings() Settings {
	return Settings{Channel: channel.R, Mode: marker.Sequential, Policy: island.ByPosition}
}

// Scene is the data structure produced by one script evaluation.
// Each evaluation builds a new Scene.
type Scene struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	Roots     []NodeID          `json:"roots"`
	NameIndex map[string]NodeID `json:"name_index"`
	Settings  Settings          `json:"settings"`
	Version   uint64            `json:"version"`
}

// New creates an empty Scene with default settings.
func New() *Scene {
	return &Scene{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
		Settings:  DefaultSettings(),
	}
}

// AddNode adds a node to the scene. It does not check for duplicates.
func (s *Scene) AddNode(n *Node) {
	s.Nodes[n.ID] = n
	if n.Name != "" {
		s.NameIndex[n.Name] = n.ID
	}
}

// AddRoot registers a node ID as a root of the scene.
func (s *Scene) AddRoot(id NodeID) {
	s.Roots = append(s.Roots, id)
}

// Lookup returns the node with the given user-assigned name, or nil.
func (s *Scene) Lookup(name string) *Node {
	id, ok := s.NameIndex[name]
	if !ok {
		return nil
	}
	return s.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (s *Scene) MustLookup(name string) *Node {
	n := s.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("scene: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (s *Scene) Get(id NodeID) *Node {
	return s.Nodes[id]
}

// Solids returns all solid nodes sorted by name, then ID.
func (s *Scene) Solids() []*Node {
	var solids []*Node
	for _, n := range s.Nodes {
		if n.Kind == KindSolid {
			solids = append(solids, n)
		}
	}
	sort.Slice(solids, func(i, j int) bool {
		if solids[i].Name != solids[j].Name {
			return solids[i].Name < solids[j].Name
		}
		return solids[i].ID < solids[j].ID
	})
	return solids
}

// Children returns the child nodes of n, skipping dangling references.
func (s *Scene) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := s.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// NodeCount returns the total number of nodes.
func (s *Scene) NodeCount() int {
	return len(s.Nodes)
}
