package marker

import (
	"errors"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderameye/surface-id-mapper/pkg/channel"
	"github.com/alexanderameye/surface-id-mapper/pkg/island"
	"github.com/alexanderameye/surface-id-mapper/pkg/mesh"
)

// threeIslands has a quad (vertices 0-3), a lone triangle (4-6) and a
// duplicated triangle (7-9).
func threeIslands() *mesh.Mesh {
	return &mesh.Mesh{
		Vertices: make([]float32, 10*3),
		Indices: []uint32{
			0, 1, 2, 2, 3, 0,
			4, 5, 6,
			7, 8, 9, 7, 8, 9,
		},
	}
}

func TestSequentialIDsSkipOccluder(t *testing.T) {
	ids := NewIDs(Sequential, nil)
	for want := 1; want <= 255; want++ {
		require.Equal(t, uint8(want), ids.Next())
	}
	assert.Equal(t, uint8(1), ids.Next(), "sequence should wrap to 1, not 0")
	assert.Equal(t, uint8(2), ids.Next())
}

func TestRandomIDsInRange(t *testing.T) {
	ids := NewIDs(Random, rand.New(rand.NewSource(42)))
	for i := 0; i < 5000; i++ {
		v := ids.Next()
		require.NotEqual(t, Occluder, v)
		require.NotEqual(t, uint8(255), v)
	}
}

func TestSectionColor(t *testing.T) {
	assert.Equal(t, color.RGBA{G: 7, A: 255}, SectionColor(channel.G, 7))
	assert.Equal(t, color.RGBA{B: 200, A: 255}, SectionColor(channel.B, 200))
}

func TestModifyChannel(t *testing.T) {
	dst := color.RGBA{R: 1, G: 2, B: 3, A: 4}
	ModifyChannel(&dst, color.RGBA{R: 9, G: 9, B: 9, A: 9}, channel.B)
	assert.Equal(t, color.RGBA{R: 1, G: 2, B: 9, A: 4}, dst)
}

func TestMarkSectionsSequential(t *testing.T) {
	s := NewStream(threeIslands(), island.ByIndex)
	n, err := MarkSections(s, channel.R, NewIDs(Sequential, nil))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	want := []uint8{1, 1, 1, 1, 2, 2, 2, 3, 3, 3}
	for v, w := range want {
		assert.Equalf(t, w, s.Color(v).R, "vertex %d", v)
		assert.Zerof(t, s.Color(v).G, "vertex %d green", v)
	}
}

func TestMarkSectionsKeepsOtherChannels(t *testing.T) {
	s := NewStream(threeIslands(), island.ByIndex)
	FillChannel(s, channel.G, 77)
	_, err := MarkSections(s, channel.R, NewIDs(Random, rand.New(rand.NewSource(1))))
	require.NoError(t, err)

	for v := 0; v < s.Len(); v++ {
		assert.Equal(t, uint8(77), s.Color(v).G)
		assert.NotEqual(t, Occluder, s.Color(v).R)
	}
	// Every vertex of one island carries the same ID.
	assert.Equal(t, s.Color(0).R, s.Color(3).R)
	assert.Equal(t, s.Color(4).R, s.Color(6).R)
}

func TestMarkSectionsInvalidChannel(t *testing.T) {
	s := NewStream(threeIslands(), island.ByIndex)
	_, err := MarkSections(s, channel.Channel(5), NewIDs(Sequential, nil))
	assert.Error(t, err)
}

func TestMarkSectionsBadTopology(t *testing.T) {
	m := threeIslands()
	m.Indices = append(m.Indices, 0, 1, 42)
	s := NewStream(m, island.ByIndex)
	_, err := MarkSections(s, channel.R, NewIDs(Sequential, nil))
	assert.True(t, errors.Is(err, island.ErrInvalidTopology))
}

func TestPaintIsland(t *testing.T) {
	tests := []struct {
		name    string
		mode    island.FillMode
		painted []int
		want    []uint8
	}{
		{"greedy", island.FillGreedy, []int{0, 1}, []uint8{9, 9, 9, 9, 0, 0, 0}},
		{"single", island.FillSingle, []int{1}, []uint8{9, 0, 9, 9, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStream(threeIslands(), island.ByIndex)
			tris, err := PaintIsland(s, mesh.Triangle{2, 3, 0}, channel.B, 9, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.painted, tris)
			for v, w := range tt.want {
				assert.Equalf(t, w, s.Color(v).B, "vertex %d", v)
			}
		})
	}
}

func TestPaintIslandUnknownSeed(t *testing.T) {
	s := NewStream(threeIslands(), island.ByIndex)
	_, err := PaintIsland(s, mesh.Triangle{1, 1, 1}, channel.R, 3, island.FillGreedy)
	assert.ErrorIs(t, err, island.ErrNotFound)
}

func TestStreamColors(t *testing.T) {
	s := NewStream(threeIslands(), island.ByIndex)
	s.SetColor(color.RGBA{R: 1, A: 255})
	cols := s.Colors()
	require.Len(t, cols, 10)
	cols[0].R = 99
	assert.Equal(t, uint8(1), s.Color(0).R, "Colors must return a copy")

	assert.Error(t, s.SetColors(cols[:3]))
	require.NoError(t, s.SetColors(cols))
	assert.Equal(t, uint8(99), s.Color(0).R)
}

func TestNewStreamIsOpaqueBlack(t *testing.T) {
	s := NewStream(threeIslands(), island.ByIndex)
	for v, c := range s.Colors() {
		assert.Equal(t, color.RGBA{A: 255}, c, "vertex %d", v)
	}
}

func TestStreamRebuild(t *testing.T) {
	s := NewStream(threeIslands(), island.ByIndex)
	_, err := MarkSections(s, channel.R, NewIDs(Sequential, nil))
	require.NoError(t, err)
	require.True(t, s.Islands().IsComputed())

	m := &mesh.Mesh{Vertices: make([]float32, 9), Indices: []uint32{0, 1, 2}}
	s.Rebuild(m)
	assert.False(t, s.Islands().IsComputed())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, color.RGBA{A: 255}, s.Color(0))

	n, err := s.Islands().Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Random")
	require.NoError(t, err)
	assert.Equal(t, Random, m)
	_, err = ParseMode("shuffle")
	assert.Error(t, err)
}
