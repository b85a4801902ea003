package distfield

import (
	"image"

	"github.com/anthonynsimon/bild/clone"
)

// Texture is an RGBA texel grid with float32 components in row-major order,
// origin at the top-left texel.
type Texture struct {
	Width, Height int
	Pix           []float32 // 4 components per texel
}

// NewTexture returns a zeroed w×h texture.
func NewTexture(w, h int) *Texture {
	return &Texture{Width: w, Height: h, Pix: make([]float32, w*h*4)}
}

// FromImage converts img to a texture with components in [0,1].
func FromImage(img image.Image) *Texture {
	rgba := clone.AsRGBA(img)
	b := rgba.Bounds()
	t := NewTexture(b.Dx(), b.Dy())
	for y := 0; y < t.Height; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+t.Width*4]
		dst := t.Pix[y*t.Width*4 : (y+1)*t.Width*4]
		for i, v := range row {
			dst[i] = float32(v) / 255
		}
	}
	return t
}

// At returns the texel at (x, y).
func (t *Texture) At(x, y int) [4]float32 {
	o := (y*t.Width + x) * 4
	return [4]float32{t.Pix[o], t.Pix[o+1], t.Pix[o+2], t.Pix[o+3]}
}

// Set writes the texel at (x, y).
func (t *Texture) Set(x, y int, c [4]float32) {
	o := (y*t.Width + x) * 4
	copy(t.Pix[o:o+4], c[:])
}

// Empty reports whether the texture has no texels.
func (t *Texture) Empty() bool {
	return t == nil || t.Width <= 0 || t.Height <= 0 || len(t.Pix) < t.Width*t.Height*4
}
