package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/alexanderameye/surface-id-mapper/pkg/channel"
	"github.com/alexanderameye/surface-id-mapper/pkg/island"
	"github.com/alexanderameye/surface-id-mapper/pkg/marker"
	"github.com/alexanderameye/surface-id-mapper/pkg/scene"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites scene script source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: fuse-all -> fuse_all
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpSolid carries a primitive from box/cylinder/sphere to defpart.
type sexpSolid struct {
	data scene.SolidData
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	switch s.data.Shape {
	case scene.ShapeBox:
		return fmt.Sprintf("(box %g %g %g)", s.data.Size.X, s.data.Size.Y, s.data.Size.Z)
	case scene.ShapeCylinder:
		return fmt.Sprintf("(cylinder :radius %g :height %g)", s.data.Radius, s.data.Height)
	default:
		return fmt.Sprintf("(sphere :radius %g)", s.data.Radius)
	}
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

type sexpNodeRef struct {
	id   scene.NodeID
	name string // for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(noderef %q)", n.name)
	}
	return fmt.Sprintf("(noderef %s)", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

type sexpVec3 struct {
	vec scene.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW returns the keyword name if s is a preprocessed keyword.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// float reads keyword key into *dst when present.
func (a kwArgs) float(fn, key string, dst *float64) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	*dst = f
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts both :kw and "kw".
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func toNodeRef(s zygo.Sexp) (*sexpNodeRef, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref, nil
	}
	return nil, fmt.Errorf("expected node reference, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (scene.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return scene.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// childRefs flattens node references and lists of them.
func childRefs(fn string, args []zygo.Sexp) ([]scene.NodeID, error) {
	var ids []scene.NodeID
	for i, arg := range args {
		if ref, ok := arg.(*sexpNodeRef); ok {
			ids = append(ids, ref.id)
			continue
		}
		items, err := sexpListToSlice(arg)
		if err != nil {
			return nil, fmt.Errorf("%s: child %d: expected node reference, got %T (%s)",
				fn, i+1, arg, arg.SexpString(nil))
		}
		nested, err := childRefs(fn, items)
		if err != nil {
			return nil, err
		}
		ids = append(ids, nested...)
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene script builtins into env. They
// populate s as the script runs. Source must go through preprocessSource
// first so :keyword tokens arrive as recognisable strings.
func registerBuiltins(env *zygo.Zlisp, s *scene.Scene) {
	// Anonymous node paths are numbered per evaluation so IDs are
	// reproducible across runs of the same script.
	var anon int
	nextPath := func(prefix, name string) string {
		anon++
		return fmt.Sprintf("%s/%s/%d", prefix, name, anon)
	}

	// (box 10 20 30)
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("box requires exactly 3 dimensions, got %d", len(args))
		}
		var dims [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: dimension %d: %w", i+1, err)
			}
			dims[i] = f
		}
		return &sexpSolid{data: scene.SolidData{
			Shape: scene.ShapeBox,
			Size:  scene.Vec3{X: dims[0], Y: dims[1], Z: dims[2]},
		}}, nil
	})

	// (cylinder :radius 5 :height 40)
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		d := scene.SolidData{Shape: scene.ShapeCylinder}
		if err := pa.float("cylinder", "radius", &d.Radius); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.float("cylinder", "height", &d.Height); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSolid{data: d}, nil
	})

	// (sphere :radius 8)
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		d := scene.SolidData{Shape: scene.ShapeSphere}
		if err := pa.float("sphere", "radius", &d.Radius); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSolid{data: d}, nil
	})

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: scene.Vec3{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// (defpart "name" (box ...))
	env.AddFunction("defpart", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("defpart requires a name and a body expression")
		}
		partName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defpart: name: %w", err)
		}
		body, ok := args[1].(*sexpSolid)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("defpart: expected solid expression, got %T", args[1])
		}
		if s.Lookup(partName) != nil {
			return zygo.SexpNull, fmt.Errorf("defpart: %q is already defined", partName)
		}

		id := scene.NewNodeID("solid/" + partName)
		s.AddNode(&scene.Node{
			ID:   id,
			Kind: scene.KindSolid,
			Name: partName,
			Data: body.data,
		})
		return &sexpNodeRef{id: id, name: partName}, nil
	})

	// (part "name")
	env.AddFunction("part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("part requires a name argument")
		}
		partName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: name: %w", err)
		}
		n := s.Lookup(partName)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("part: no part named %q", partName)
		}
		return &sexpNodeRef{id: n.ID, name: partName}, nil
	})

	// (place (part "leg") :at (vec3 0 0 10) :rotate (vec3 0 0 90))
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("place requires a part reference as first argument")
		}
		child, err := toNodeRef(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: part: %w", err)
		}

		td := scene.TransformData{}
		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: at: %w", err)
			}
			td.Translation = &vec
		}
		if v, ok := pa.kw["rotate"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: rotate: %w", err)
			}
			td.Rotation = &vec
		}

		label := child.name
		if label == "" {
			label = child.id.Short()
		}
		id := scene.NewNodeID(nextPath("place", label))
		s.AddNode(&scene.Node{
			ID:       id,
			Kind:     scene.KindTransform,
			Children: []scene.NodeID{child.id},
			Data:     td,
		})
		return &sexpNodeRef{id: id}, nil
	})

	// (fuse "name" (place ...) (part ...)) unions its members into one solid.
	env.AddFunction("fuse", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("fuse requires a name argument")
		}
		fuseName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("fuse: name: %w", err)
		}
		children, err := childRefs("fuse", args[1:])
		if err != nil {
			return zygo.SexpNull, err
		}
		id := scene.NewNodeID("fuse/" + fuseName)
		s.AddNode(&scene.Node{
			ID:       id,
			Kind:     scene.KindGroup,
			Name:     fuseName,
			Children: children,
			Data:     scene.GroupData{Fuse: true},
		})
		return &sexpNodeRef{id: id, name: fuseName}, nil
	})

	// (assembly "name" (place ...) ...) collects children and becomes a root.
	env.AddFunction("assembly", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("assembly requires a name argument")
		}
		asmName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("assembly: name: %w", err)
		}
		children, err := childRefs("assembly", args[1:])
		if err != nil {
			return zygo.SexpNull, err
		}
		id := scene.NewNodeID("assembly/" + asmName)
		s.AddNode(&scene.Node{
			ID:       id,
			Kind:     scene.KindGroup,
			Name:     asmName,
			Children: children,
			Data:     scene.GroupData{},
		})
		s.AddRoot(id)
		return &sexpNodeRef{id: id, name: asmName}, nil
	})

	// (mark :channel :g :mode :random :policy :index)
	env.AddFunction("mark", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("mark takes only keyword arguments")
		}
		settings := s.Settings
		for key, v := range pa.kw {
			word, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("mark: %s: %w", key, err)
			}
			switch key {
			case "channel":
				settings.Channel, err = channel.Parse(word)
			case "mode":
				settings.Mode, err = marker.ParseMode(word)
			case "policy":
				settings.Policy, err = island.ParsePolicy(word)
			default:
				err = fmt.Errorf("unknown option :%s", key)
			}
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("mark: %w", err)
			}
		}
		s.Settings = settings
		return zygo.SexpNull, nil
	})
}
