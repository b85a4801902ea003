// Command surface-id-mapper partitions meshes into triangle islands, writes
// per-island section IDs into vertex colours and bakes section masks into
// distance textures.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/alexanderameye/surface-id-mapper/pkg/channel"
	"github.com/alexanderameye/surface-id-mapper/pkg/config"
	"github.com/alexanderameye/surface-id-mapper/pkg/island"
	"github.com/alexanderameye/surface-id-mapper/pkg/logging"
	"github.com/alexanderameye/surface-id-mapper/pkg/marker"
	"github.com/alexanderameye/surface-id-mapper/pkg/mesh"
	"github.com/alexanderameye/surface-id-mapper/pkg/scene"
)

const usage = `usage: surface-id-mapper [-config file] [-log-level level] <command> [flags] <input>

commands:
  islands <mesh.json>            print island count and sizes
  mark    <mesh.json>            write one section ID per island
  fill    <mesh.json>            write one value into a channel of every vertex
  paint   <mesh.json>            fill the island under a ray
  bake    <mask.png>             bake R and G section masks into a distance texture
  run     <scene.sid>            evaluate a scene script and mark its mesh
  watch   <mesh.json>            re-mark a mesh whenever it changes
`

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("surface-id-mapper", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	cfgPath := global.String("config", "", "TOML settings file")
	level := global.String("log-level", "", "debug, info, warn or error (overrides the config)")
	if err := global.Parse(args); err != nil {
		return 2
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	if *level != "" {
		cfg.Log.Level = *level
	}
	lvl, ok := logging.ParseLevel(cfg.Log.Level)
	if !ok {
		fmt.Fprintf(stderr, "unknown log level %q\n", cfg.Log.Level)
		return 2
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl})))

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return 2
	}

	app := NewApp(cfg)
	defer app.Close()

	cmds := map[string]func(context.Context, *App, []string, io.Writer) error{
		"islands": cmdIslands,
		"mark":    cmdMark,
		"fill":    cmdFill,
		"paint":   cmdPaint,
		"bake":    cmdBake,
		"run":     cmdRun,
		"watch":   cmdWatch,
	}
	cmd, ok := cmds[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
		global.Usage()
		return 2
	}
	if err := cmd(ctx, app, rest[1:], stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(stderr, err)
			return 2
		}
		logging.Logger().Error(rest[0]+" failed", "error", err)
		return 1
	}
	return 0
}

// settingsFlags are the per-command overrides of the marker settings.
type settingsFlags struct {
	channel, mode, policy *string
}

func addSettingsFlags(fs *flag.FlagSet) settingsFlags {
	return settingsFlags{
		channel: fs.String("channel", "", "r, g or b"),
		mode:    fs.String("mode", "", "sequential or random"),
		policy:  fs.String("policy", "", "index or position"),
	}
}

func (f settingsFlags) apply(st scene.Settings) (scene.Settings, error) {
	var err error
	if *f.channel != "" {
		if st.Channel, err = channel.Parse(*f.channel); err != nil {
			return st, err
		}
	}
	if *f.mode != "" {
		if st.Mode, err = marker.ParseMode(*f.mode); err != nil {
			return st, err
		}
	}
	if *f.policy != "" {
		if st.Policy, err = island.ParsePolicy(*f.policy); err != nil {
			return st, err
		}
	}
	return st, nil
}

// parseInput parses fs and returns its single positional argument.
func parseInput(fs *flag.FlagSet, args []string) (string, error) {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%w: %s takes exactly one input file", errUsage, fs.Name())
	}
	return fs.Arg(0), nil
}

func loadBase(path string) ([]color.RGBA, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadColors(f)
}

func cmdIslands(_ context.Context, app *App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("islands", flag.ContinueOnError)
	sf := addSettingsFlags(fs)
	in, err := parseInput(fs, args)
	if err != nil {
		return err
	}
	st, err := sf.apply(app.Settings())
	if err != nil {
		return err
	}
	m, err := mesh.Load(in)
	if err != nil {
		return err
	}
	start := time.Now()
	isl, err := app.Islands(m, st.Policy)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d triangles, %d islands (%s, %s)\n",
		in, m.TriangleCount(), isl.Len(), st.Policy, elapsed(start))
	for i, n := range isl.Sizes() {
		fmt.Fprintf(out, "  island %d: %d triangles\n", i, n)
	}
	return nil
}

func cmdMark(_ context.Context, app *App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("mark", flag.ContinueOnError)
	sf := addSettingsFlags(fs)
	output := fs.String("o", "-", "colour stream output (JSON)")
	basePath := fs.String("base", "", "existing colour stream to start from")
	in, err := parseInput(fs, args)
	if err != nil {
		return err
	}
	st, err := sf.apply(app.Settings())
	if err != nil {
		return err
	}
	m, err := mesh.Load(in)
	if err != nil {
		return err
	}
	base, err := loadBase(*basePath)
	if err != nil {
		return err
	}
	rep, err := app.Mark(m, base, st)
	if err != nil {
		return err
	}
	logging.Logger().Info("sections marked", "sections", rep.Sections, "channel", st.Channel.String())
	return saveColors(*output, out, rep.Colors)
}

func cmdFill(_ context.Context, app *App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("fill", flag.ContinueOnError)
	sf := addSettingsFlags(fs)
	output := fs.String("o", "-", "colour stream output (JSON)")
	basePath := fs.String("base", "", "existing colour stream to start from")
	value := fs.Uint("value", uint(marker.Occluder), "channel value 0-255")
	in, err := parseInput(fs, args)
	if err != nil {
		return err
	}
	st, err := sf.apply(app.Settings())
	if err != nil {
		return err
	}
	if *value > 255 {
		return fmt.Errorf("%w: value %d out of range", errUsage, *value)
	}
	m, err := mesh.Load(in)
	if err != nil {
		return err
	}
	base, err := loadBase(*basePath)
	if err != nil {
		return err
	}
	colors, err := app.Fill(m, base, st.Channel, uint8(*value))
	if err != nil {
		return err
	}
	return saveColors(*output, out, colors)
}

func cmdPaint(_ context.Context, app *App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("paint", flag.ContinueOnError)
	sf := addSettingsFlags(fs)
	output := fs.String("o", "-", "colour stream output (JSON)")
	basePath := fs.String("base", "", "existing colour stream to paint over")
	origin := fs.String("origin", "", "ray origin x,y,z")
	dir := fs.String("dir", "0,0,-1", "ray direction x,y,z")
	value := fs.Uint("value", 1, "section value 1-255")
	in, err := parseInput(fs, args)
	if err != nil {
		return err
	}
	st, err := sf.apply(app.Settings())
	if err != nil {
		return err
	}
	o, err := parseVec3(*origin)
	if err != nil {
		return fmt.Errorf("%w: -origin: %v", errUsage, err)
	}
	d, err := parseVec3(*dir)
	if err != nil {
		return fmt.Errorf("%w: -dir: %v", errUsage, err)
	}
	if *value > 255 {
		return fmt.Errorf("%w: value %d out of range", errUsage, *value)
	}
	m, err := mesh.Load(in)
	if err != nil {
		return err
	}
	base, err := loadBase(*basePath)
	if err != nil {
		return err
	}
	rep, err := app.Paint(m, base, o, d, uint8(*value), st)
	if err != nil {
		return err
	}
	logging.Logger().Info("island painted", "triangle", rep.Hit.Triangle, "painted", len(rep.Painted))
	return saveColors(*output, out, rep.Colors)
}

func cmdBake(ctx context.Context, app *App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("bake", flag.ContinueOnError)
	output := fs.String("o", "sdf.png", "output PNG")
	in, err := parseInput(fs, args)
	if err != nil {
		return err
	}
	return app.BakeFile(ctx, in, *output)
}

func cmdRun(ctx context.Context, app *App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	meshOut := fs.String("o", "", "write the merged mesh (JSON)")
	colorsOut := fs.String("colors", "", "write the section colour stream (JSON)")
	in, err := parseInput(fs, args)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(in)
	if err != nil {
		return err
	}

	start := time.Now()
	res := app.Evaluate(ctx, string(src))
	for _, w := range res.Warnings {
		logging.Logger().Warn(w.Message)
	}
	if len(res.Errors) > 0 {
		msgs := make([]string, len(res.Errors))
		for i, e := range res.Errors {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("%s: %s", in, strings.Join(msgs, "; "))
	}

	rep, err := app.Mark(res.Mesh, nil, res.Scene.Settings)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d parts, %d triangles, %d sections in %s (%s)\n",
		in, len(res.Mesh.Parts), res.Mesh.TriangleCount(), rep.Sections,
		res.Scene.Settings.Channel, elapsed(start))
	for _, p := range res.Mesh.Parts {
		fmt.Fprintf(out, "  %s: %d triangles\n", p.Name, p.Count)
	}
	if *meshOut != "" {
		if err := mesh.Save(*meshOut, res.Mesh); err != nil {
			return err
		}
	}
	if *colorsOut != "" {
		return saveColors(*colorsOut, out, rep.Colors)
	}
	return nil
}

func cmdWatch(ctx context.Context, app *App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	sf := addSettingsFlags(fs)
	output := fs.String("o", "colors.json", "colour stream output (JSON)")
	in, err := parseInput(fs, args)
	if err != nil {
		return err
	}
	st, err := sf.apply(app.Settings())
	if err != nil {
		return err
	}
	log := logging.Logger()
	return app.Watch(ctx, in, st, func(rep *MarkReport, err error) {
		if err != nil {
			log.Warn("mark failed", "error", err)
			return
		}
		if err := saveColors(*output, out, rep.Colors); err != nil {
			log.Warn("write failed", "error", err)
			return
		}
		log.Info("sections marked", "sections", rep.Sections, "out", *output)
	})
}

func parseVec3(s string) (mgl32.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mgl32.Vec3{}, fmt.Errorf("%q is not x,y,z", s)
	}
	var v mgl32.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return mgl32.Vec3{}, fmt.Errorf("%q is not x,y,z", s)
		}
		v[i] = float32(f)
	}
	return v, nil
}
