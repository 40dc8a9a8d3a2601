// Package gjk implements the Gilbert-Johnson-Keerthi (GJK) algorithm for collision detection.
//
// GJK detects whether two convex shapes overlap by testing if their Minkowski difference
// contains the origin. The algorithm builds a simplex incrementally, converging toward
// the origin in typically 3-6 iterations.
//
// This variant operates on support mappings with an optional dilation radius per
// shape: dilating a support mapping by r sums a ball of radius r onto the shape,
// which is how proximity-with-margin and contact prediction reuse the same code
// path. Each simplex vertex retains the individual support points of both shapes
// so EPA can recover world-space witness points afterwards.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Van den Bergen: "Collision Detection in Interactive 3D Environments" (2003)
package gjk

import (
	"github.com/akmonengine/plume/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// Vertex is one point of the simplex in Minkowski difference space.
// P = A - B, where A and B are world-space support points of the two shapes.
type Vertex struct {
	P mgl64.Vec3
	A mgl64.Vec3
	B mgl64.Vec3
}

// Simplex represents a set of 1-4 vertices in the Minkowski difference space.
// The simplex evolves during GJK iterations, always containing the most recent support points.
// Size progression: 1 point → 2 points (line) → 3 points (triangle) → 4 points (tetrahedron)
type Simplex struct {
	Points [4]Vertex
	Count  int
}

func (s *Simplex) Reset() {
	s.Count = 0
}

// Probe is a prepared support query over two posed, possibly dilated shapes
type Probe struct {
	shapeA, shapeB shape.SupportMap
	posA, posB     shape.Transform
	// Dilation radius added around each shape
	RadiusA, RadiusB float64
}

// NewProbe prepares a support query for the pair (a at posA, b at posB)
func NewProbe(a shape.SupportMap, posA shape.Transform, b shape.SupportMap, posB shape.Transform) Probe {
	return Probe{shapeA: a, shapeB: b, posA: posA, posB: posB}
}

// Dilated returns a copy of the probe with each shape enlarged by the given radius
func (p Probe) Dilated(radiusA, radiusB float64) Probe {
	p.RadiusA = radiusA
	p.RadiusB = radiusB
	return p
}

// supportWorld computes the world-space support point of one posed shape,
// dilated by radius, in a world-space direction.
func supportWorld(s shape.SupportMap, pos shape.Transform, radius float64, direction mgl64.Vec3) mgl64.Vec3 {
	local := pos.Inverse().ApplyVector(direction)
	point := pos.Apply(s.Support(local))
	if radius != 0 {
		if n := direction.Len(); n > 1e-12 {
			point = point.Add(direction.Mul(radius / n))
		}
	}
	return point
}

// Support computes a support vertex in the Minkowski difference (A - B).
//
// The Minkowski difference A - B is the set of all vectors (a - b) where a ∈ A and b ∈ B.
// For collision detection, we only need the extreme points (support points) in any direction.
func (p Probe) Support(direction mgl64.Vec3) Vertex {
	a := supportWorld(p.shapeA, p.posA, p.RadiusA, direction)
	b := supportWorld(p.shapeB, p.posB, p.RadiusB, direction.Mul(-1))
	return Vertex{P: a.Sub(b), A: a, B: b}
}

// Intersect performs collision detection between the two posed shapes of the probe.
//
// Algorithm overview:
//  1. Start with initial search direction (toward B from A)
//  2. Get first support point in Minkowski difference
//  3. Iteratively refine simplex toward origin
//  4. If origin is contained → collision
//  5. If can't reach origin → no collision
//
// Typical convergence: 3-6 iterations for most shapes.
//
// The simplex is modified in place and contains 1-4 vertices. For collisions, it's
// usually a tetrahedron (4 vertices) containing the origin, which EPA uses as its
// initial polytope; touching shapes can return with fewer vertices.
func (p Probe) Intersect(simplex *Simplex) bool {
	// Compute initial direction from A to B (optimization over a fixed direction);
	// starting toward the other shape typically reduces iterations
	direction := p.posB.Position.Sub(p.posA.Position)
	if direction.LenSqr() < 1e-8 {
		direction = mgl64.Vec3{1, 0, 0} // Fallback if positions are identical
	}

	simplex.Points[0] = p.Support(direction)
	simplex.Count = 1

	// New direction towards the origin from this first point
	direction = simplex.Points[0].P.Mul(-1)

	// If first support point is at/near origin, shapes are touching
	if direction.LenSqr() < 1e-16 {
		return true
	}

	maxIterations := 32 // Safety limit to prevent infinite loops
	for i := 0; i < maxIterations; i++ {
		newPoint := p.Support(direction)

		// Early exit: if the new point doesn't pass the origin in the search
		// direction, the origin cannot be reached, therefore no collision.
		if newPoint.P.Dot(direction) <= 0 {
			return false
		}

		simplex.Points[simplex.Count] = newPoint
		simplex.Count++

		// Check if the simplex contains the origin. This also reduces the
		// simplex to its feature closest to the origin and updates the
		// search direction for the next iteration.
		if containsOrigin(simplex, &direction) {
			return true
		}
	}

	// Failed to converge after maxIterations (very rare, may indicate numerical issues)
	return false
}

// containsOrigin tests if the simplex contains the origin and refines the simplex.
//
// Behavior by simplex dimension:
//   - 2 points (line): Test Voronoi regions, reduce to closest point or keep edge
//   - 3 points (triangle): Test Voronoi regions, reduce to closest edge or keep face
//   - 4 points (tetrahedron): Test if origin is inside; if not, reduce to closest face
func containsOrigin(simplex *Simplex, direction *mgl64.Vec3) bool {
	switch simplex.Count {
	case 2:
		return line(simplex, direction)
	case 3:
		return triangle(simplex, direction)
	case 4:
		return tetrahedron(simplex, direction)
	}
	return false
}

// line handles the line simplex case (2 vertices: A and B).
//
// Returns true only when the origin lies on a vertex or on the segment (touching
// shapes); otherwise returns false. Updates direction to point toward the origin from the closest feature.
func line(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[1]
	b := simplex.Points[0]
	ab := b.P.Sub(a.P)
	ao := a.P.Mul(-1)

	// Handle degenerate case: identical points
	if ab.LenSqr() < 1e-8 {
		if ao.LenSqr() < 1e-8 {
			return true // origin is at the point
		}
		simplex.Points[0] = a
		simplex.Count = 1
		*direction = ao
		return false
	}

	// If ab.Dot(ao) <= 0, the origin is closest to point A alone
	if ab.Dot(ao) <= 0 {
		simplex.Points[0] = a
		simplex.Count = 1
		*direction = ao
		return false
	}

	// Origin is in the Voronoi region of the segment AB
	abPerp := ab.Cross(ao).Cross(ab)
	if abPerp.LenSqr() < 1e-8 {
		// Origin is on the line segment → touching
		return true
	}

	*direction = abPerp
	return false
}

// triangle handles the triangle simplex case (3 vertices: A, B, C).
//
// Degenerate case: if the points are collinear (flat triangle), treats as line instead.
// Returns false (a triangle cannot contain the origin in 3D, we need a tetrahedron),
// except through the degenerate line case above.
func triangle(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[2] // Most recent point
	b := simplex.Points[1]
	c := simplex.Points[0]

	ab := b.P.Sub(a.P)
	ac := c.P.Sub(a.P)
	ao := a.P.Mul(-1)

	abc := ab.Cross(ac) // Triangle normal

	// Check for degenerate triangle (collinear points)
	if abc.LenSqr() < 1e-10 {
		simplex.Points[0] = b
		simplex.Points[1] = a
		simplex.Count = 2
		return line(simplex, direction)
	}

	// Region AB (edge)
	abPerp := ab.Cross(abc)
	if abPerp.Dot(ao) > 0 {
		simplex.Points[0] = b
		simplex.Points[1] = a
		simplex.Count = 2
		*direction = ab.Cross(ao).Cross(ab)
		return false
	}

	// Region AC (edge)
	acPerp := abc.Cross(ac)
	if acPerp.Dot(ao) > 0 {
		simplex.Points[0] = c
		simplex.Points[1] = a
		simplex.Count = 2
		*direction = ac.Cross(ao).Cross(ac)
		return false
	}

	// Origin is above or below the triangle
	if abc.Dot(ao) > 0 {
		*direction = abc
	} else {
		// Below: reverse winding to keep a consistent orientation
		simplex.Points[0] = a
		simplex.Points[1] = c
		simplex.Points[2] = b
		simplex.Count = 3
		*direction = abc.Mul(-1)
	}

	return false
}

// tetrahedron handles the tetrahedron simplex case (4 vertices: A, B, C, D).
//
// This is the case that returns true for overlapping shapes; the line case only
// does so for touching ones.
// Face normals must point outward (away from the 4th vertex) to correctly test
// which side of each face the origin is on.
func tetrahedron(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[3] // Most recent point
	b := simplex.Points[2]
	c := simplex.Points[1]
	d := simplex.Points[0]

	ab := b.P.Sub(a.P)
	ac := c.P.Sub(a.P)
	ad := d.P.Sub(a.P)
	ao := a.P.Mul(-1)

	// Face ABC (opposite to D)
	abc := ab.Cross(ac)
	if abc.Dot(ad) > 0 {
		abc = abc.Mul(-1)
	}

	// Face ACD (opposite to B)
	acd := ac.Cross(ad)
	if acd.Dot(ab) > 0 {
		acd = acd.Mul(-1)
	}

	// Face ADB (opposite to C)
	adb := ad.Cross(ab)
	if adb.Dot(ac) > 0 {
		adb = adb.Mul(-1)
	}

	// Check for degenerate tetrahedron
	if abc.LenSqr() < 1e-10 || acd.LenSqr() < 1e-10 || adb.LenSqr() < 1e-10 {
		simplex.Points[0] = c
		simplex.Points[1] = b
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	// Face ABC
	if abc.Dot(ao) > 0 {
		simplex.Points[0] = c
		simplex.Points[1] = b
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	// Face ACD
	if acd.Dot(ao) > 0 {
		simplex.Points[0] = d
		simplex.Points[1] = c
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	// Face ADB
	if adb.Dot(ao) > 0 {
		simplex.Points[0] = b
		simplex.Points[1] = d
		simplex.Points[2] = a
		simplex.Count = 3
		return triangle(simplex, direction)
	}

	// The origin is inside the tetrahedron
	return true
}
