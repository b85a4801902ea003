// Package tessellate walks a scene and produces triangle meshes using a
// geometry kernel. One mesh is produced per solid, or per fused group.
package tessellate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderameye/surface-id-mapper/pkg/kernel"
	"github.com/alexanderameye/surface-id-mapper/pkg/logging"
	"github.com/alexanderameye/surface-id-mapper/pkg/mesh"
	"github.com/alexanderameye/surface-id-mapper/pkg/scene"
)

// ErrInvalidScene is returned when scene validation reports errors.
var ErrInvalidScene = errors.New("tessellate: invalid scene")

// placed is a kernel solid with the transforms of its ancestors applied.
type placed struct {
	name  string
	solid kernel.Solid
}

// Tessellate validates s and meshes every solid reachable from its roots.
// Transforms apply rotation first, then translation, and compose from the
// solid outward. The scene is never mutated.
func Tessellate(ctx context.Context, s *scene.Scene, k kernel.Kernel) ([]*mesh.Mesh, error) {
	if s == nil {
		return nil, nil
	}
	if findings := scene.Validate(s); scene.HasErrors(findings) {
		var msgs []string
		for _, f := range findings {
			if f.Severity == scene.SeverityError {
				msgs = append(msgs, f.Error())
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidScene, strings.Join(msgs, "; "))
	}

	var solids []placed
	for _, rootID := range s.Roots {
		collected, err := walkNode(s, k, s.Get(rootID))
		if err != nil {
			return nil, fmt.Errorf("tessellate: error walking root %s: %w", rootID.Short(), err)
		}
		solids = append(solids, collected...)
	}

	meshes := make([]*mesh.Mesh, 0, len(solids))
	for _, p := range solids {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("tessellate: %w", err)
		}
		m, err := k.ToMesh(p.solid)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for %q: %w", p.name, err)
		}
		m.PartName = p.name
		meshes = append(meshes, m)
	}
	logging.Logger().Debug("scene tessellated", "nodes", s.NodeCount(), "meshes", len(meshes))
	return meshes, nil
}

func walkNode(s *scene.Scene, k kernel.Kernel, n *scene.Node) ([]placed, error) {
	switch n.Kind {
	case scene.KindSolid:
		return handleSolid(k, n)
	case scene.KindTransform:
		return handleTransform(s, k, n)
	case scene.KindGroup:
		return handleGroup(s, k, n)
	default:
		return nil, fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

func handleSolid(k kernel.Kernel, n *scene.Node) ([]placed, error) {
	data := n.Data.(scene.SolidData)

	var (
		solid kernel.Solid
		err   error
	)
	switch data.Shape {
	case scene.ShapeBox:
		solid, err = k.Box(data.Size.X, data.Size.Y, data.Size.Z)
	case scene.ShapeCylinder:
		solid, err = k.Cylinder(data.Height, data.Radius)
	case scene.ShapeSphere:
		solid, err = k.Sphere(data.Radius)
	default:
		err = fmt.Errorf("unsupported shape %v", data.Shape)
	}
	if err != nil {
		return nil, fmt.Errorf("solid %s: %w", partName(n), err)
	}
	return []placed{{name: partName(n), solid: solid}}, nil
}

// handleTransform rotates then translates everything below n.
func handleTransform(s *scene.Scene, k kernel.Kernel, n *scene.Node) ([]placed, error) {
	td := n.Data.(scene.TransformData)

	var out []placed
	for _, child := range s.Children(n) {
		collected, err := walkNode(s, k, child)
		if err != nil {
			return nil, err
		}
		out = append(out, collected...)
	}
	for i := range out {
		if r := td.Rotation; r != nil && (r.X != 0 || r.Y != 0 || r.Z != 0) {
			out[i].solid = k.Rotate(out[i].solid, r.X, r.Y, r.Z)
		}
		if t := td.Translation; t != nil && (t.X != 0 || t.Y != 0 || t.Z != 0) {
			out[i].solid = k.Translate(out[i].solid, t.X, t.Y, t.Z)
		}
	}
	return out, nil
}

// handleGroup recurses into children. A fused group unions them into one.
func handleGroup(s *scene.Scene, k kernel.Kernel, n *scene.Node) ([]placed, error) {
	var out []placed
	for _, child := range s.Children(n) {
		collected, err := walkNode(s, k, child)
		if err != nil {
			return nil, err
		}
		out = append(out, collected...)
	}
	if gd := n.Data.(scene.GroupData); !gd.Fuse || len(out) < 2 {
		return out, nil
	}
	fused := out[0].solid
	for _, p := range out[1:] {
		fused = k.Union(fused, p.solid)
	}
	return []placed{{name: partName(n), solid: fused}}, nil
}

func partName(n *scene.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID.Short()
}

// Merge concatenates meshes into one, offsetting indices and recording a
// Part per input. Normals are kept only when every input has them.
func Merge(meshes []*mesh.Mesh) *mesh.Mesh {
	out := &mesh.Mesh{}
	withNormals := len(meshes) > 0
	for _, m := range meshes {
		if len(m.Normals) != len(m.Vertices) {
			withNormals = false
		}
	}

	for _, m := range meshes {
		base := uint32(out.VertexCount())
		out.Parts = append(out.Parts, mesh.Part{
			Name:  m.PartName,
			First: out.TriangleCount(),
			Count: m.TriangleCount(),
		})
		out.Vertices = append(out.Vertices, m.Vertices...)
		if withNormals {
			out.Normals = append(out.Normals, m.Normals...)
		}
		for _, idx := range m.Indices {
			out.Indices = append(out.Indices, idx+base)
		}
	}
	return out
}
