package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/fsnotify/fsnotify"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/alexanderameye/surface-id-mapper/pkg/channel"
	"github.com/alexanderameye/surface-id-mapper/pkg/config"
	"github.com/alexanderameye/surface-id-mapper/pkg/distfield"
	"github.com/alexanderameye/surface-id-mapper/pkg/engine"
	"github.com/alexanderameye/surface-id-mapper/pkg/island"
	"github.com/alexanderameye/surface-id-mapper/pkg/kernel"
	"github.com/alexanderameye/surface-id-mapper/pkg/kernel/sdfx"
	"github.com/alexanderameye/surface-id-mapper/pkg/logging"
	"github.com/alexanderameye/surface-id-mapper/pkg/marker"
	"github.com/alexanderameye/surface-id-mapper/pkg/mesh"
	"github.com/alexanderameye/surface-id-mapper/pkg/scene"
	"github.com/alexanderameye/surface-id-mapper/pkg/tessellate"
)

// ErrNoHit is returned by Paint when the ray misses the mesh.
var ErrNoHit = errors.New("ray does not hit the mesh")

// App ties the script engine, geometry kernel, island partitioner, marker
// and distance baker together behind the CLI.
type App struct {
	cfg    *config.Config
	engine *engine.Engine
	kernel kernel.Kernel
	baker  *distfield.Baker
}

// EvalResult is the outcome of running a scene script.
type EvalResult struct {
	Scene    *scene.Scene
	Mesh     *mesh.Mesh // all parts merged; empty when Errors is set
	Errors   []engine.EvalError
	Warnings []scene.ValidationError
}

// MarkReport describes one section marking pass.
type MarkReport struct {
	Colors   []color.RGBA
	Sizes    []int // triangles per island
	Sections int
}

// PaintReport describes one picked island fill.
type PaintReport struct {
	Hit     mesh.Hit
	Painted []int
	Colors  []color.RGBA
}

// NewApp creates an App from cfg, or from config.Default when cfg is nil.
func NewApp(cfg *config.Config) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	return &App{
		cfg:    cfg,
		engine: engine.NewEngineWithTimeout(cfg.EvalTimeout()),
		kernel: sdfx.NewWithCells(cfg.Scene.Cells),
		baker:  distfield.NewBaker(cfg.SDF.Workers),
	}
}

// Close releases the baker's workers.
func (a *App) Close() {
	a.baker.Close()
}

// Settings returns the marker settings from the config file.
func (a *App) Settings() scene.Settings {
	return scene.Settings{
		Channel: a.cfg.Channel(),
		Mode:    a.cfg.MarkMode(),
		Policy:  a.cfg.Policy(),
	}
}

// Evaluate runs a scene script and tessellates the result.
// Problems are reported in the result rather than as an error.
func (a *App) Evaluate(ctx context.Context, source string) EvalResult {
	result := EvalResult{Mesh: &mesh.Mesh{}}

	s, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		result.Errors = append(result.Errors, engine.EvalError{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		result.Errors = evalErrs
		return result
	}
	result.Scene = s
	for _, f := range scene.Validate(s) {
		if f.Severity == scene.SeverityWarning {
			result.Warnings = append(result.Warnings, f)
		}
	}

	meshes, err := tessellate.Tessellate(ctx, s, a.kernel)
	if err != nil {
		logging.Logger().Warn("tessellation failed", "error", err)
		result.Errors = append(result.Errors, engine.EvalError{Message: "tessellation failed: " + err.Error()})
		return result
	}
	result.Mesh = tessellate.Merge(meshes)
	return result
}

// Islands partitions m under policy.
func (a *App) Islands(m *mesh.Mesh, policy island.Policy) (*island.Islands, error) {
	return island.Partition(m, policy)
}

// Mark gives every island of m its own section ID. When base is non-nil it
// seeds the stream, so channels other than st.Channel keep their values.
func (a *App) Mark(m *mesh.Mesh, base []color.RGBA, st scene.Settings) (*MarkReport, error) {
	s := marker.NewStream(m, st.Policy)
	if base != nil {
		if err := s.SetColors(base); err != nil {
			return nil, err
		}
	}
	return a.markStream(s, st)
}

// Fill writes v into channel ch of every vertex of m.
func (a *App) Fill(m *mesh.Mesh, base []color.RGBA, ch channel.Channel, v uint8) ([]color.RGBA, error) {
	s := marker.NewStream(m, a.cfg.Policy())
	if base != nil {
		if err := s.SetColors(base); err != nil {
			return nil, err
		}
	}
	marker.FillChannel(s, ch, v)
	return s.Colors(), nil
}

func (a *App) markStream(s *marker.Stream, st scene.Settings) (*MarkReport, error) {
	ids := marker.NewIDs(st.Mode, rand.New(rand.NewSource(a.cfg.Marker.Seed)))
	n, err := marker.MarkSections(s, st.Channel, ids)
	if err != nil {
		return nil, err
	}
	isl, err := s.Islands().Islands()
	if err != nil {
		return nil, err
	}
	return &MarkReport{Colors: s.Colors(), Sizes: isl.Sizes(), Sections: n}, nil
}

// Paint casts a ray at m and writes v into the island under the hit,
// or only the hit triangle when the config asks for single fills. When base
// is non-nil the paint is applied on top of it, so other islands and
// channels keep their values.
func (a *App) Paint(m *mesh.Mesh, base []color.RGBA, origin, dir mgl32.Vec3, v uint8, st scene.Settings) (*PaintReport, error) {
	hit, ok := mesh.Pick(m, origin, dir)
	if !ok {
		return nil, ErrNoHit
	}
	s := marker.NewStream(m, st.Policy)
	if base != nil {
		if err := s.SetColors(base); err != nil {
			return nil, err
		}
	}
	painted, err := marker.PaintIsland(s, m.Triangle(hit.Triangle), st.Channel, v, a.cfg.FillMode())
	if err != nil {
		return nil, err
	}
	return &PaintReport{Hit: hit, Painted: painted, Colors: s.Colors()}, nil
}

// BakeFile reads a section mask image, bakes distance fields for its red
// and green channels, packs them into one RGBA image, resizes it to the
// configured output size and writes it as PNG.
func (a *App) BakeFile(ctx context.Context, in, out string) error {
	img, err := imgio.Open(in)
	if err != nil {
		return fmt.Errorf("bake: %w", err)
	}
	tex := distfield.FromImage(img)

	limit := a.cfg.SDF.Clamp
	if limit <= 0 {
		limit = 1
	}
	var grids [2]*distfield.Grid
	for i, ch := range []channel.Channel{channel.R, channel.G} {
		res, err := a.baker.Bake(ctx, tex, a.cfg.BakeOptions(ch))
		if err != nil {
			return fmt.Errorf("bake %s: %w", ch, err)
		}
		if a.cfg.SDF.Signed {
			centre(res.Distance, limit)
		}
		grids[i] = res.Distance
	}

	packed := distfield.Downsample(distfield.Pack(grids[0], grids[1], limit), a.cfg.SDF.OutputSize)
	if err := imgio.Save(out, packed, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("bake: %w", err)
	}
	logging.Logger().Info("distance texture written", "in", in, "out", out,
		"size", packed.Bounds().Dx())
	return nil
}

// centre maps signed distances in [-limit,limit] onto [0,limit] so the
// surface lands on mid-grey.
func centre(g *distfield.Grid, limit float32) {
	for i, v := range g.Values {
		g.Values[i] = (v + limit) / 2
	}
}

// Watch marks the mesh at path, then marks it again every time the file
// changes, until ctx is done. Each pass is reported through onChange.
// The stream is rebuilt in place, so its island cache is invalidated
// rather than recreated.
func (a *App) Watch(ctx context.Context, path string, st scene.Settings, onChange func(*MarkReport, error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()
	// Editors often replace files, so watch the directory.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	var stream *marker.Stream
	remark := func() {
		m, err := mesh.Load(abs)
		if err != nil {
			onChange(nil, err)
			return
		}
		if stream == nil {
			stream = marker.NewStream(m, st.Policy)
		} else {
			stream.Rebuild(m)
		}
		onChange(a.markStream(stream, st))
	}

	log := logging.Logger()
	log.Info("watching", "path", abs)
	remark()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			log.Debug("mesh changed", "op", ev.Op.String())
			remark()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)
		}
	}
}

// colorFile is the JSON layout of a vertex colour stream.
type colorFile struct {
	Colors [][4]uint8 `json:"colors"`
}

// WriteColors encodes colors as JSON RGBA quadruples.
func WriteColors(w io.Writer, colors []color.RGBA) error {
	f := colorFile{Colors: make([][4]uint8, len(colors))}
	for i, c := range colors {
		f.Colors[i] = [4]uint8{c.R, c.G, c.B, c.A}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}

// ReadColors decodes a stream written by WriteColors.
func ReadColors(r io.Reader) ([]color.RGBA, error) {
	var f colorFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("colors: %w", err)
	}
	colors := make([]color.RGBA, len(f.Colors))
	for i, c := range f.Colors {
		colors[i] = color.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
	}
	return colors, nil
}

// saveColors writes colors to path, or to stdout when path is empty or "-".
func saveColors(path string, stdout io.Writer, colors []color.RGBA) error {
	if path == "" || path == "-" {
		return WriteColors(stdout, colors)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteColors(f, colors); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// elapsed is a tiny timer for CLI summaries.
func elapsed(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
