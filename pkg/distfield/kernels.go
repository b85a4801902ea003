package distfield

import (
	"github.com/chewxy/math32"

	"github.com/alexanderameye/surface-id-mapper/pkg/channel"
)

// SeedFunc writes seeds for rows [y0,y1). A texel is a seed when its
// selected channel is non-zero, or zero when invert is set.
type SeedFunc func(src *Texture, ch channel.Channel, invert bool, dst *SeedField, y0, y1 int)

// FloodFunc runs one jump-flood pass at the given stride for rows [y0,y1),
// reading src and writing dst.
type FloodFunc func(src, dst *SeedField, stride, y0, y1 int)

// FillFunc writes the Euclidean distance from each texel to its seed for
// rows [y0,y1). Texels without a seed get +Inf.
type FillFunc func(seeds *SeedField, dst *Grid, y0, y1 int)

// Kernels is the set of passes a Baker runs. All three must be present.
type Kernels struct {
	Seed                  SeedFunc
	Flood                 FloodFunc
	FillDistanceTransform FillFunc
}

// CPUKernels returns the reference kernels.
func CPUKernels() *Kernels {
	return &Kernels{
		Seed:                  seedRows,
		Flood:                 floodRows,
		FillDistanceTransform: fillRows,
	}
}

// missing names the first absent kernel, or "" if all are set.
func (k *Kernels) missing() string {
	switch {
	case k.Seed == nil:
		return "Seed"
	case k.Flood == nil:
		return "Flood"
	case k.FillDistanceTransform == nil:
		return "FillDistanceTransform"
	}
	return ""
}

func seedRows(src *Texture, ch channel.Channel, invert bool, dst *SeedField, y0, y1 int) {
	for y := y0; y < y1; y++ {
		for x := 0; x < src.Width; x++ {
			v := src.Pix[(y*src.Width+x)*4+int(ch)]
			if (v != 0) != invert {
				dst.Seeds[y*dst.Width+x] = Seed{X: int32(x), Y: int32(y)}
			} else {
				dst.Seeds[y*dst.Width+x] = NoSeed
			}
		}
	}
}

// neighbourhood is the 3×3 sampling order: centre first, then row-major.
var neighbourhood = [9][2]int{
	{0, 0},
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

func floodRows(src, dst *SeedField, stride, y0, y1 int) {
	w, h := src.Width, src.Height
	for y := y0; y < y1; y++ {
		for x := 0; x < w; x++ {
			best := NoSeed
			bestDist := int64(-1)
			for _, o := range neighbourhood {
				sx := clamp(x+o[0]*stride, 0, w-1)
				sy := clamp(y+o[1]*stride, 0, h-1)
				s := src.Seeds[sy*w+sx]
				if !s.Valid() {
					continue
				}
				d := dist2(x, y, s)
				if bestDist < 0 || d < bestDist {
					best, bestDist = s, d
				}
			}
			dst.Seeds[y*w+x] = best
		}
	}
}

func fillRows(seeds *SeedField, dst *Grid, y0, y1 int) {
	for y := y0; y < y1; y++ {
		for x := 0; x < seeds.Width; x++ {
			s := seeds.Seeds[y*seeds.Width+x]
			if !s.Valid() {
				dst.Values[y*dst.Width+x] = math32.Inf(1)
				continue
			}
			dst.Values[y*dst.Width+x] = math32.Sqrt(float32(dist2(x, y, s)))
		}
	}
}

func dist2(x, y int, s Seed) int64 {
	dx := int64(x) - int64(s.X)
	dy := int64(y) - int64(s.Y)
	return dx*dx + dy*dy
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
