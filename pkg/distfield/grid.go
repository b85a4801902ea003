package distfield

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
)

// Seed is the texel coordinate of a seed.
type Seed struct {
	X, Y int32
}

// NoSeed marks a texel that has not seen any seed yet.
var NoSeed = Seed{X: -1, Y: -1}

// Valid reports whether s is a real seed coordinate.
func (s Seed) Valid() bool {
	return s.X >= 0 && s.Y >= 0
}

// SeedField holds the nearest known seed of every texel.
type SeedField struct {
	Width, Height int
	Seeds         []Seed
}

// NewSeedField returns a w×h field filled with NoSeed.
func NewSeedField(w, h int) *SeedField {
	f := &SeedField{Width: w, Height: h, Seeds: make([]Seed, w*h)}
	for i := range f.Seeds {
		f.Seeds[i] = NoSeed
	}
	return f
}

// At returns the seed stored at (x, y).
func (f *SeedField) At(x, y int) Seed {
	return f.Seeds[y*f.Width+x]
}

// Grid is a scalar float32 field.
type Grid struct {
	Width, Height int
	Values        []float32
}

// NewGrid returns a zeroed w×h grid.
func NewGrid(w, h int) *Grid {
	return &Grid{Width: w, Height: h, Values: make([]float32, w*h)}
}

// At returns the value at (x, y).
func (g *Grid) At(x, y int) float32 {
	return g.Values[y*g.Width+x]
}

// Gray renders the grid as an 8-bit image, mapping [0,limit] to [0,255].
// Values outside the range saturate; infinities map to the bounds.
func (g *Grid) Gray(limit float32) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	for i, v := range g.Values {
		img.Pix[i] = quantize(v, limit)
	}
	return img
}

func quantize(v, limit float32) uint8 {
	if limit <= 0 || math32.IsNaN(v) {
		return 0
	}
	v = math32.Max(0, math32.Min(v/limit, 1))
	return uint8(v*255 + 0.5)
}

// Pack writes r into the red channel and g into the green channel of a new
// RGBA image. Both grids must share a size; g may be nil.
func Pack(r, g *Grid, limit float32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i, v := range r.Values {
		c := color.RGBA{R: quantize(v, limit), A: 255}
		if g != nil {
			c.G = quantize(g.Values[i], limit)
		}
		img.SetRGBA(i%r.Width, i/r.Width, c)
	}
	return img
}
