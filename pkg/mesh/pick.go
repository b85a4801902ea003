package mesh

import "github.com/go-gl/mathgl/mgl32"

// pickEpsilon rejects rays nearly parallel to a triangle's plane.
const pickEpsilon = 1e-7

// Hit is the nearest intersection of a ray with a mesh.
type Hit struct {
	Triangle int        // triangle index
	Distance float32    // ray parameter of the hit, in units of dir
	Point    mgl32.Vec3 // hit position
}

// Pick casts a ray from origin along dir and returns the nearest triangle it
// crosses. Triangles are hit from both sides.
func Pick(m *Mesh, origin, dir mgl32.Vec3) (Hit, bool) {
	best := Hit{Triangle: -1}
	found := false
	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		d, ok := intersect(origin, dir, vec(m, tri[0]), vec(m, tri[1]), vec(m, tri[2]))
		if !ok {
			continue
		}
		if !found || d < best.Distance {
			best = Hit{Triangle: t, Distance: d}
			found = true
		}
	}
	if found {
		best.Point = origin.Add(dir.Mul(best.Distance))
	}
	return best, found
}

func vec(m *Mesh, v uint32) mgl32.Vec3 {
	return mgl32.Vec3(m.Position(v))
}

// intersect is the Möller–Trumbore ray/triangle test.
func intersect(origin, dir, a, b, c mgl32.Vec3) (float32, bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if det > -pickEpsilon && det < pickEpsilon {
		return 0, false
	}
	inv := 1 / det
	s := origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	d := e2.Dot(q) * inv
	if d < 0 {
		return 0, false
	}
	return d, true
}
