// Package distfield bakes distance textures from section masks with the
// jump flooding algorithm.
//
// A bake runs three kinds of passes in sequence: a seed pass marking every
// texel whose selected channel is non-zero, a series of flood passes with
// halving strides that propagate the nearest known seed, and a fill pass
// turning each texel's seed into a remapped distance. Rows inside a pass are
// processed in parallel; the result does not depend on the worker count.
package distfield

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"time"

	"github.com/chewxy/math32"

	"github.com/alexanderameye/surface-id-mapper/pkg/channel"
	"github.com/alexanderameye/surface-id-mapper/pkg/logging"
)

var (
	// ErrResourceUnavailable is returned when a kernel is missing or the
	// baker has been closed. Nothing is produced; the caller may retry.
	ErrResourceUnavailable = errors.New("distfield: resource unavailable")

	// ErrEmptyTexture is returned for textures without texels.
	ErrEmptyTexture = errors.New("distfield: empty texture")
)

// Options controls a bake.
type Options struct {
	Channel channel.Channel // mask channel read by the seed pass
	Steps   int             // flood passes; 0 derives ceil(log2(max(W,H)))
	Scale   float32         // distance multiplier
	Offset  float32         // added after scaling
	Clamp   float32         // upper bound when > 0; signed bakes clamp to [-Clamp,Clamp]
	Signed  bool            // store outside minus inside distance
	Kernels *Kernels        // nil uses CPUKernels
}

// DefaultOptions returns the reference bake settings: red channel, distance
// scaled by 0.04 and clamped to 1.
func DefaultOptions() Options {
	return Options{
		Channel: channel.R,
		Scale:   0.04,
		Clamp:   1,
	}
}

// Result holds the output of a bake.
type Result struct {
	Seeds    *SeedField // nearest mask seed per texel
	Inside   *SeedField // nearest non-mask seed per texel; signed bakes only
	Distance *Grid      // remapped distance
	Steps    int        // flood passes run
}

// StepsFor returns ceil(log2(max(w,h))), the number of flood passes needed
// for a w×h texture.
func StepsFor(w, h int) int {
	n := max(w, h)
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// Baker runs bakes on a worker pool.
type Baker struct {
	pool *Pool
}

// NewBaker returns a baker with the given number of workers. Zero or
// negative uses GOMAXPROCS.
func NewBaker(workers int) *Baker {
	return &Baker{pool: NewPool(workers)}
}

// Workers returns the size of the baker's pool.
func (b *Baker) Workers() int {
	return b.pool.Workers()
}

// Close releases the baker's workers. Later bakes fail with
// ErrResourceUnavailable.
func (b *Baker) Close() {
	b.pool.Close()
}

// Bake computes the distance field of src.
func (b *Baker) Bake(ctx context.Context, src *Texture, opts Options) (*Result, error) {
	if src.Empty() {
		return nil, ErrEmptyTexture
	}
	if !opts.Channel.Valid() {
		return nil, fmt.Errorf("distfield: invalid channel %v", opts.Channel)
	}
	if opts.Steps < 0 {
		return nil, fmt.Errorf("distfield: negative step count %d", opts.Steps)
	}
	k := opts.Kernels
	if k == nil {
		k = CPUKernels()
	}
	if name := k.missing(); name != "" {
		return nil, fmt.Errorf("%w: no %s kernel", ErrResourceUnavailable, name)
	}
	if !b.pool.IsRunning() {
		return nil, fmt.Errorf("%w: baker closed", ErrResourceUnavailable)
	}

	start := time.Now()
	steps := opts.Steps
	if steps == 0 {
		steps = StepsFor(src.Width, src.Height)
	}

	seeds, dist, err := b.flood(ctx, src, opts.Channel, false, steps, k)
	if err != nil {
		return nil, err
	}
	res := &Result{Seeds: seeds, Distance: dist, Steps: steps}

	if opts.Signed {
		inside, inDist, err := b.flood(ctx, src, opts.Channel, true, steps, k)
		if err != nil {
			return nil, err
		}
		res.Inside = inside
		for i, d := range inDist.Values {
			dist.Values[i] -= d
		}
	}

	if err := b.pool.Rows(dist.Height, func(y0, y1 int) {
		remapRows(dist, opts, y0, y1)
	}); err != nil {
		return nil, err
	}

	logging.Logger().Debug("distance field baked",
		"width", src.Width,
		"height", src.Height,
		"channel", opts.Channel.String(),
		"steps", steps,
		"signed", opts.Signed,
		"elapsed", time.Since(start))
	return res, nil
}

// flood runs the seed, flood and fill passes and returns the final seed
// field with its raw distances.
func (b *Baker) flood(ctx context.Context, src *Texture, ch channel.Channel, invert bool, steps int, k *Kernels) (*SeedField, *Grid, error) {
	w, h := src.Width, src.Height
	read := NewSeedField(w, h)
	write := NewSeedField(w, h)

	if err := b.pool.Rows(h, func(y0, y1 int) {
		k.Seed(src, ch, invert, read, y0, y1)
	}); err != nil {
		return nil, nil, err
	}

	for pass := 0; pass < steps; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("distfield: bake interrupted: %w", err)
		}
		stride := 1 << (steps - pass - 1)
		if err := b.pool.Rows(h, func(y0, y1 int) {
			k.Flood(read, write, stride, y0, y1)
		}); err != nil {
			return nil, nil, err
		}
		read, write = write, read
	}

	dist := NewGrid(w, h)
	if err := b.pool.Rows(h, func(y0, y1 int) {
		k.FillDistanceTransform(read, dist, y0, y1)
	}); err != nil {
		return nil, nil, err
	}
	return read, dist, nil
}

func remapRows(g *Grid, opts Options, y0, y1 int) {
	lo, hi := float32(0), opts.Clamp
	if opts.Signed {
		lo = -opts.Clamp
	}
	for i := y0 * g.Width; i < y1*g.Width; i++ {
		d := g.Values[i]
		if !math32.IsInf(d, 0) {
			d = d*opts.Scale + opts.Offset
		}
		if opts.Clamp > 0 {
			d = math32.Max(lo, math32.Min(d, hi))
		}
		g.Values[i] = d
	}
}
