package marker

import (
	"fmt"
	"image/color"
	"math/rand"
	"strings"
	"time"

	"github.com/alexanderameye/surface-id-mapper/pkg/channel"
	"github.com/alexanderameye/surface-id-mapper/pkg/island"
	"github.com/alexanderameye/surface-id-mapper/pkg/logging"
	"github.com/alexanderameye/surface-id-mapper/pkg/mesh"
)

// Mode selects how section IDs are generated.
type Mode int

const (
	// Sequential numbers sections 1, 2, 3, ... wrapping from 255 back to 1.
	Sequential Mode = iota
	// Random draws each section ID uniformly from 1..254.
	Random
)

func (m Mode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Random:
		return "random"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "sequential" or "random".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sequential", "":
		return Sequential, nil
	case "random":
		return Random, nil
	}
	return Sequential, fmt.Errorf("marker: unknown mode %q", s)
}

// Occluder is the channel value reserved for occluding geometry.
const Occluder uint8 = 0

// IDs generates section IDs. It never yields Occluder.
type IDs struct {
	mode Mode
	rng  *rand.Rand
	next uint8
}

// NewIDs returns a generator for mode. rng is only used by Random and may be
// nil for Sequential.
func NewIDs(mode Mode, rng *rand.Rand) *IDs {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &IDs{mode: mode, rng: rng, next: 1}
}

// Next returns the next section ID.
func (g *IDs) Next() uint8 {
	if g.mode == Random {
		return uint8(1 + g.rng.Intn(254))
	}
	if g.next == Occluder {
		g.next = 1
	}
	v := g.next
	g.next++
	return v
}

// SectionColor returns opaque black with the selected channel set to v.
func SectionColor(ch channel.Channel, v uint8) color.RGBA {
	c := color.RGBA{A: 255}
	ch.Set(&c, v)
	return c
}

// ModifyChannel copies the selected channel of src into dst.
func ModifyChannel(dst *color.RGBA, src color.RGBA, ch channel.Channel) {
	ch.Set(dst, ch.Value(src))
}

// FillChannel writes v into the selected channel of every vertex.
func FillChannel(s *Stream, ch channel.Channel, v uint8) {
	start := time.Now()
	for i := range s.colors {
		ch.Set(&s.colors[i], v)
	}
	logging.Logger().Debug("channel filled",
		"channel", ch.String(), "value", v, "elapsed", time.Since(start))
}

// MarkSections gives every island of the stream's mesh its own section ID
// in channel ch and returns the number of sections marked. Triangles whose
// vertex triple was already coloured are skipped.
func MarkSections(s *Stream, ch channel.Channel, ids *IDs) (int, error) {
	if !ch.Valid() {
		return 0, fmt.Errorf("marker: invalid channel %v", ch)
	}
	start := time.Now()
	is, err := s.islands.Islands()
	if err != nil {
		return 0, fmt.Errorf("marker: %w", err)
	}

	visited := make(map[mesh.Triangle]struct{}, is.TriangleCount())
	sections := 0
	for i := 0; i < is.Len(); i++ {
		v := ids.Next()
		painted := false
		for _, t := range is.Island(i) {
			tri := s.mesh.Triangle(t)
			if _, ok := visited[tri]; ok {
				continue
			}
			visited[tri] = struct{}{}
			for _, vi := range tri {
				ch.Set(&s.colors[vi], v)
			}
			painted = true
		}
		if painted {
			sections++
		}
	}

	logging.Logger().Debug("sections marked",
		"sections", sections,
		"channel", ch.String(),
		"elapsed", time.Since(start))
	return sections, nil
}

// PaintIsland writes v into channel ch for every vertex the fill from seed
// reaches and returns the painted triangles.
func PaintIsland(s *Stream, seed mesh.Triangle, ch channel.Channel, v uint8, mode island.FillMode) ([]int, error) {
	if !ch.Valid() {
		return nil, fmt.Errorf("marker: invalid channel %v", ch)
	}
	tris, err := s.islands.Fill(seed, mode)
	if err != nil {
		return nil, fmt.Errorf("marker: paint: %w", err)
	}
	for _, t := range tris {
		for _, vi := range s.mesh.Triangle(t) {
			ch.Set(&s.colors[vi], v)
		}
	}
	return tris, nil
}
