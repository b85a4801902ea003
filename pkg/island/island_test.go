package island

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/alexanderameye/surface-id-mapper/pkg/mesh"
)

// naiveLabels partitions by comparing every pair of triangles, merging the
// pairs that share any vertex index. Labels are numbered by the lowest
// triangle index of each island.
func naiveLabels(indices []uint32) []int {
	n := len(indices) / 3
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			if shares(indices[a*3:a*3+3], indices[b*3:b*3+3]) {
				ra, rb := find(a), find(b)
				if ra != rb {
					if ra < rb {
						parent[rb] = ra
					} else {
						parent[ra] = rb
					}
				}
			}
		}
	}
	return canonical(func(t int) int { return find(t) }, n)
}

func shares(a, b []uint32) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// canonical renumbers labels in order of first appearance.
func canonical(label func(int) int, n int) []int {
	ids := map[int]int{}
	out := make([]int, n)
	for t := 0; t < n; t++ {
		l := label(t)
		id, ok := ids[l]
		if !ok {
			id = len(ids)
			ids[l] = id
		}
		out[t] = id
	}
	return out
}

func labelsOf(is *Islands) []int {
	return canonical(is.Label, is.TriangleCount())
}

func randomIndices(r *rand.Rand, vertices, triangles int) []uint32 {
	out := make([]uint32, triangles*3)
	for i := range out {
		out[i] = uint32(r.Intn(vertices))
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestComputeShapes(t *testing.T) {
	tests := []struct {
		name        string
		indices     []uint32
		vertexCount int
		wantIslands int
	}{
		{"empty", nil, 0, 0},
		{"single triangle", []uint32{0, 1, 2}, 3, 1},
		{"two disjoint", []uint32{0, 1, 2, 3, 4, 5}, 6, 2},
		{"shared edge", []uint32{0, 1, 2, 2, 3, 0}, 4, 1},
		{"corner touch", []uint32{0, 1, 2, 2, 3, 4}, 5, 1},
		{"strip", []uint32{0, 1, 2, 1, 2, 3, 2, 3, 4, 3, 4, 5}, 6, 1},
		{"chain through later triangle", []uint32{0, 1, 2, 6, 7, 8, 2, 3, 6}, 9, 1},
		{"three islands", []uint32{0, 1, 2, 3, 4, 5, 1, 2, 6, 7, 8, 9}, 10, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is, err := Compute(tt.indices, tt.vertexCount)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			if is.Len() != tt.wantIslands {
				t.Errorf("Len() = %d, want %d", is.Len(), tt.wantIslands)
			}
		})
	}
}

func TestComputeRejectsInvalidTopology(t *testing.T) {
	tests := []struct {
		name        string
		indices     []uint32
		vertexCount int
	}{
		{"partial triangle", []uint32{0, 1, 2, 0}, 3},
		{"out of range", []uint32{0, 1, 3}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.indices, tt.vertexCount)
			if !errors.Is(err, ErrInvalidTopology) {
				t.Errorf("Compute() error = %v, want ErrInvalidTopology", err)
			}
		})
	}
}

func TestComputeMatchesPairwise(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		vertices := 10 + r.Intn(90)
		triangles := 1 + r.Intn(60)
		indices := randomIndices(r, vertices, triangles)

		is, err := Compute(indices, vertices)
		if err != nil {
			t.Fatalf("round %d: Compute() error = %v", round, err)
		}
		got := labelsOf(is)
		want := naiveLabels(indices)
		if !equalInts(got, want) {
			t.Fatalf("round %d: labels = %v, want %v", round, got, want)
		}
	}
}

func TestPartitionCoversEveryTriangleOnce(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	indices := randomIndices(r, 200, 120)
	is, err := Compute(indices, 200)
	if err != nil {
		t.Fatal(err)
	}

	seen := make([]int, is.TriangleCount())
	total := 0
	for i := 0; i < is.Len(); i++ {
		tris := is.Island(i)
		if len(tris) == 0 {
			t.Errorf("island %d is empty", i)
		}
		for _, tri := range tris {
			seen[tri]++
			if is.Label(tri) != i {
				t.Errorf("Label(%d) = %d, want %d", tri, is.Label(tri), i)
			}
		}
		total += len(tris)
	}
	if total != is.TriangleCount() {
		t.Errorf("islands hold %d triangles, want %d", total, is.TriangleCount())
	}
	for tri, n := range seen {
		if n != 1 {
			t.Errorf("triangle %d appears in %d islands", tri, n)
		}
	}
}

func TestNoVertexSharedAcrossIslands(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	indices := randomIndices(r, 300, 80)
	is, err := Compute(indices, 300)
	if err != nil {
		t.Fatal(err)
	}
	owner := map[uint32]int{}
	for i := 0; i < is.Len(); i++ {
		for _, v := range is.Indices(i) {
			if o, ok := owner[v]; ok && o != i {
				t.Fatalf("vertex %d used by islands %d and %d", v, o, i)
			}
			owner[v] = i
		}
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	indices := randomIndices(r, 64, 48)
	a, _ := Compute(indices, 64)
	b, _ := Compute(indices, 64)
	if a.Len() != b.Len() {
		t.Fatalf("Len() differs: %d vs %d", a.Len(), b.Len())
	}
	for i := 0; i < a.Len(); i++ {
		if !equalInts(a.Island(i), b.Island(i)) {
			t.Errorf("island %d differs: %v vs %v", i, a.Island(i), b.Island(i))
		}
	}
}

func TestIndicesKeepOriginalTriples(t *testing.T) {
	indices := []uint32{0, 1, 2, 3, 4, 5, 2, 6, 0}
	is, err := Compute(indices, 7)
	if err != nil {
		t.Fatal(err)
	}
	i, ok := is.IslandOf(mesh.Triangle{2, 6, 0})
	if !ok {
		t.Fatal("IslandOf([2 6 0]) not found")
	}
	got := is.Indices(i)
	want := []uint32{0, 1, 2, 2, 6, 0}
	if len(got) != len(want) {
		t.Fatalf("Indices() = %v, want %v", got, want)
	}
	for k := range want {
		if got[k] != want[k] {
			t.Fatalf("Indices() = %v, want %v", got, want)
		}
	}
	if sizes := is.Sizes(); sizes[0] != 2 || sizes[1] != 1 {
		t.Errorf("Sizes() = %v, want [2 1]", sizes)
	}
}

func TestIslandOfRespectsOrder(t *testing.T) {
	is, err := Compute([]uint32{0, 1, 2}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := is.IslandOf(mesh.Triangle{0, 1, 2}); !ok {
		t.Error("IslandOf([0 1 2]) not found")
	}
	if _, ok := is.IslandOf(mesh.Triangle{1, 2, 0}); ok {
		t.Error("rotated triple should not match")
	}
}

func TestDuplicateTriplesShareIsland(t *testing.T) {
	is, err := Compute([]uint32{0, 1, 2, 3, 4, 5, 0, 1, 2}, 6)
	if err != nil {
		t.Fatal(err)
	}
	tris, ok := is.Find(mesh.Triangle{0, 1, 2})
	if !ok {
		t.Fatal("Find() missed duplicated triple")
	}
	if !equalInts(tris, []int{0, 2}) {
		t.Errorf("Find() = %v, want [0 2]", tris)
	}
}

// splitQuad is a quad whose two triangles reference separate vertex copies
// at the shared diagonal, the way hard-edged exports do.
func splitQuad() *mesh.Mesh {
	return &mesh.Mesh{
		Vertices: []float32{
			0, 0, 0,
			1, 0, 0,
			1, 1, 0,
			1, 1, 0,
			0, 1, 0,
			0, 0, 0,
		},
		Indices: []uint32{0, 1, 2, 3, 4, 5},
	}
}

func TestPartitionPolicies(t *testing.T) {
	tests := []struct {
		policy Policy
		want   int
	}{
		{ByIndex, 2},
		{ByPosition, 1},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			is, err := Partition(splitQuad(), tt.policy)
			if err != nil {
				t.Fatalf("Partition() error = %v", err)
			}
			if is.Len() != tt.want {
				t.Errorf("Len() = %d, want %d", is.Len(), tt.want)
			}
			if is.Policy() != tt.policy {
				t.Errorf("Policy() = %v, want %v", is.Policy(), tt.policy)
			}
		})
	}
}

func TestByPositionReportsOriginalIndices(t *testing.T) {
	is, err := Partition(splitQuad(), ByPosition)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := is.IslandOf(mesh.Triangle{3, 4, 5}); !ok {
		t.Error("IslandOf should accept the unwelded triple")
	}
	got := is.Indices(0)
	if got[3] != 3 || got[4] != 4 || got[5] != 5 {
		t.Errorf("Indices(0) = %v, want original vertex indices", got)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"index", ByIndex, false},
		{"", ByIndex, false},
		{"Position", ByPosition, false},
		{"edge", ByIndex, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePolicy(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParsePolicy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func BenchmarkCompute(b *testing.B) {
	r := rand.New(rand.NewSource(1))
	indices := randomIndices(r, 200000, 100000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Compute(indices, 200000); err != nil {
			b.Fatal(err)
		}
	}
}
