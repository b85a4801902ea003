package distfield

import (
	"image"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
)

// Downsample scales img to size×size with linear filtering. A size of 0 or
// the image's own square size returns an RGBA copy.
func Downsample(img image.Image, size int) *image.RGBA {
	b := img.Bounds()
	if size <= 0 || (b.Dx() == size && b.Dy() == size) {
		return clone.AsRGBA(img)
	}
	return transform.Resize(img, size, size, transform.Linear)
}
