package mesh

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// quad returns two triangles sharing the edge 0-2 on the z=0 plane.
func quad() *Mesh {
	return &Mesh{
		Vertices: []float32{
			0, 0, 0,
			1, 0, 0,
			1, 1, 0,
			0, 1, 0,
		},
		Indices: []uint32{0, 1, 2, 2, 3, 0},
	}
}

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	if !(&Mesh{}).IsEmpty() {
		t.Error("IsEmpty() = false for empty mesh, want true")
	}
	if quad().IsEmpty() {
		t.Error("IsEmpty() = true for quad, want false")
	}
}

func TestTriangleAndIndexOf(t *testing.T) {
	m := quad()
	if got := m.Triangle(1); got != (Triangle{2, 3, 0}) {
		t.Errorf("Triangle(1) = %v, want [2 3 0]", got)
	}
	if i, ok := m.IndexOf(Triangle{2, 3, 0}); !ok || i != 1 {
		t.Errorf("IndexOf([2 3 0]) = %d, %v; want 1, true", i, ok)
	}
	if _, ok := m.IndexOf(Triangle{0, 2, 1}); ok {
		t.Error("IndexOf should respect vertex order")
	}
}

// --- Validation ---

func TestCheckIndices(t *testing.T) {
	tests := []struct {
		name        string
		indices     []uint32
		vertexCount int
		wantErr     bool
		wantOffset  int
	}{
		{"valid", []uint32{0, 1, 2}, 3, false, 0},
		{"empty", nil, 0, false, 0},
		{"partial triangle", []uint32{0, 1}, 3, true, -1},
		{"out of range", []uint32{0, 1, 2, 2, 3, 9}, 4, true, 5},
		{"index equals count", []uint32{0, 1, 3}, 3, true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckIndices(tt.indices, tt.vertexCount)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckIndices() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, ErrInvalidTopology) {
				t.Errorf("error %v does not match ErrInvalidTopology", err)
			}
			var te *TopologyError
			if !errors.As(err, &te) {
				t.Fatalf("error %T is not a *TopologyError", err)
			}
			if te.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", te.Offset, tt.wantOffset)
			}
		})
	}
}

func TestValidateNormalsLength(t *testing.T) {
	m := quad()
	m.Normals = []float32{0, 0, 1}
	if err := Validate(m); !errors.Is(err, ErrInvalidTopology) {
		t.Errorf("Validate() = %v, want ErrInvalidTopology", err)
	}
}

// --- Welding ---

func TestWeldMapMergesDuplicates(t *testing.T) {
	// Two triangles with no shared indices but one coincident corner.
	m := &Mesh{
		Vertices: []float32{
			0, 0, 0,
			1, 0, 0,
			0, 1, 0,
			1, 0, 0, // duplicate of vertex 1
			2, 0, 0,
			2, 1, 0,
		},
		Indices: []uint32{0, 1, 2, 3, 4, 5},
	}
	remap := WeldMap(m)
	want := []uint32{0, 1, 2, 1, 4, 5}
	for i := range want {
		if remap[i] != want[i] {
			t.Fatalf("WeldMap() = %v, want %v", remap, want)
		}
	}

	w := Weld(m)
	if w.Triangle(1) != (Triangle{1, 4, 5}) {
		t.Errorf("welded triangle 1 = %v, want [1 4 5]", w.Triangle(1))
	}
	if m.Triangle(1) != (Triangle{3, 4, 5}) {
		t.Error("Weld must not modify its input")
	}
}

// --- Picking ---

func TestPickNearestTriangle(t *testing.T) {
	m := quad()
	// Second copy of the quad one unit closer to the ray origin.
	m.Vertices = append(m.Vertices,
		0, 0, 1,
		1, 0, 1,
		1, 1, 1,
	)
	m.Indices = append(m.Indices, 4, 5, 6)

	hit, ok := Pick(m, mgl32.Vec3{0.9, 0.2, 5}, mgl32.Vec3{0, 0, -1})
	if !ok {
		t.Fatal("expected a hit")
	}
	if hit.Triangle != 2 {
		t.Errorf("hit triangle = %d, want 2", hit.Triangle)
	}
	if d := hit.Distance - 4; d > 1e-5 || d < -1e-5 {
		t.Errorf("hit distance = %v, want 4", hit.Distance)
	}

	if _, ok := Pick(m, mgl32.Vec3{5, 5, 5}, mgl32.Vec3{0, 0, -1}); ok {
		t.Error("ray outside the mesh should miss")
	}
}

// --- JSON round trip through a file ---

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.json")
	if err := Save(path, quad()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.TriangleCount() != 2 || m.VertexCount() != 4 {
		t.Errorf("loaded mesh has %d triangles, %d vertices", m.TriangleCount(), m.VertexCount())
	}
}

func TestDecodeRejectsBadTopology(t *testing.T) {
	src := `{"vertices":[0,0,0,1,0,0,0,1,0],"indices":[0,1,7]}`
	_, err := Decode(bytes.NewBufferString(src))
	if !errors.Is(err, ErrInvalidTopology) {
		t.Errorf("Decode() error = %v, want ErrInvalidTopology", err)
	}
}
