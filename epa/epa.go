// Package epa implements the Expanding Polytope Algorithm for computing penetration depth.
//
// EPA is run after GJK detects a collision to determine:
//   - Penetration depth (how far shapes overlap)
//   - Contact normal (direction to separate shapes)
//   - Contact points (where shapes touch)
//
// The algorithm expands a polytope (starting from GJK's final simplex) toward the origin
// in the Minkowski difference space, finding the closest face which gives us the
// Minimum Translation Vector (MTV) to separate the shapes. Because every polytope
// vertex carries the support points of both shapes, the world-space witness points
// are recovered from the barycentric coordinates of the origin's projection onto
// the closest face.
//
// References:
//   - Van den Bergen: "Proximity Queries and Penetration Depth Computation on 3D Game Objects" (2001)
package epa

import (
	"errors"
	"math"

	"github.com/akmonengine/plume/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// maxIterations limits polytope expansion to prevent infinite loops.
	// Polyhedral shapes typically converge in 5-15 iterations; curved shapes
	// such as balls need several dozen.
	maxIterations = 256

	// convergenceTolerance defines when EPA has converged: if a new support
	// point improves the closest-face distance by less than this, the
	// closest face has been found.
	convergenceTolerance = 1e-5

	// degenerateEpsilon rejects zero-area faces and near-coplanar expansions
	degenerateEpsilon = 1e-10
)

// ErrDegenerate is returned when the polytope collapses. Callers treat it as a
// numerical failure and keep the previous result for the pair.
var ErrDegenerate = errors.New("epa: degenerate polytope")

// Result describes a penetration between two overlapping convex shapes.
//
// Normal is the unit separation direction: translating the second shape by
// Normal*Depth separates the pair. WitnessA and WitnessB are the world-space
// deepest points of each shape along the separation axis.
type Result struct {
	Normal   mgl64.Vec3
	Depth    float64
	WitnessA mgl64.Vec3
	WitnessB mgl64.Vec3
}

// face is a triangle of the expanding polytope, with an outward normal and
// its plane's distance from the origin.
type face struct {
	verts    [3]gjk.Vertex
	normal   mgl64.Vec3
	distance float64
	dead     bool
}

type edge struct {
	a, b gjk.Vertex
}

// newFace builds a face from three vertices, orienting the normal away from
// the given interior point. Returns false for zero-area triangles.
func newFace(v0, v1, v2 gjk.Vertex, interior mgl64.Vec3) (face, bool) {
	normal := v1.P.Sub(v0.P).Cross(v2.P.Sub(v0.P))
	if normal.LenSqr() < degenerateEpsilon {
		return face{}, false
	}
	normal = normal.Normalize()

	// Orient the normal outward, away from the polytope interior
	if normal.Dot(v0.P.Sub(interior)) < 0 {
		normal = normal.Mul(-1)
		v1, v2 = v2, v1
	}

	return face{
		verts:    [3]gjk.Vertex{v0, v1, v2},
		normal:   normal,
		distance: normal.Dot(v0.P),
	}, true
}

// Penetration computes the penetration result for two overlapping shapes,
// expanding the final GJK simplex. The probe must be the one that produced
// the simplex (same poses, same dilation). When the expansion has not converged
// after maxIterations, the closest face found so far gives the result.
func Penetration(probe gjk.Probe, simplex *gjk.Simplex) (Result, error) {
	if simplex.Count < 4 {
		if !inflate(probe, simplex) {
			return Result{}, ErrDegenerate
		}
	}

	// Interior reference for outward orientation: the tetrahedron centroid
	interior := simplex.Points[0].P.
		Add(simplex.Points[1].P).
		Add(simplex.Points[2].P).
		Add(simplex.Points[3].P).
		Mul(0.25)

	faces := make([]face, 0, 16)
	addFace := func(v0, v1, v2 gjk.Vertex) {
		if f, ok := newFace(v0, v1, v2, interior); ok {
			faces = append(faces, f)
		}
	}

	p := simplex.Points
	addFace(p[0], p[1], p[2])
	addFace(p[0], p[1], p[3])
	addFace(p[0], p[2], p[3])
	addFace(p[1], p[2], p[3])

	if len(faces) < 4 {
		return Result{}, ErrDegenerate
	}

	for iter := 0; iter < maxIterations; iter++ {
		closest := closestFace(faces)
		if closest < 0 {
			return Result{}, ErrDegenerate
		}
		f := faces[closest]

		support := probe.Support(f.normal)
		growth := support.P.Dot(f.normal) - f.distance
		if growth < convergenceTolerance {
			// Converged: the closest face is on the boundary of the
			// Minkowski difference
			return witness(f), nil
		}

		// Remove every face visible from the new support point and keep the
		// silhouette edges; each boundary edge spawns a new face with the
		// support point.
		var horizon []edge
		for i := range faces {
			if faces[i].dead {
				continue
			}
			if faces[i].normal.Dot(support.P.Sub(faces[i].verts[0].P)) > 0 {
				faces[i].dead = true
				recordHorizon(&horizon, faces[i])
			}
		}

		if len(horizon) == 0 {
			// The support point expands nothing; numerical dead-end
			return witness(f), nil
		}

		live := faces[:0]
		for _, f := range faces {
			if !f.dead {
				live = append(live, f)
			}
		}
		faces = live

		for _, e := range horizon {
			addFace(e.a, e.b, support)
		}
		if len(faces) < 4 {
			return Result{}, ErrDegenerate
		}
	}

	if closest := closestFace(faces); closest >= 0 {
		return witness(faces[closest]), nil
	}
	return Result{}, ErrDegenerate
}

// closestFace returns the index of the live face closest to the origin
func closestFace(faces []face) int {
	best := -1
	bestDist := math.Inf(1)
	for i := range faces {
		if faces[i].dead {
			continue
		}
		if faces[i].distance < bestDist {
			best = i
			bestDist = faces[i].distance
		}
	}
	return best
}

// recordHorizon accumulates the edges of a removed face; an edge shared by two
// removed faces is interior to the hole and cancels out.
func recordHorizon(horizon *[]edge, f face) {
	for i := 0; i < 3; i++ {
		e := edge{a: f.verts[i], b: f.verts[(i+1)%3]}
		cancelled := false
		for j, other := range *horizon {
			if sameVertex(e.a, other.b) && sameVertex(e.b, other.a) ||
				sameVertex(e.a, other.a) && sameVertex(e.b, other.b) {
				(*horizon)[j] = (*horizon)[len(*horizon)-1]
				*horizon = (*horizon)[:len(*horizon)-1]
				cancelled = true
				break
			}
		}
		if !cancelled {
			*horizon = append(*horizon, e)
		}
	}
}

func sameVertex(a, b gjk.Vertex) bool {
	return a.P.Sub(b.P).LenSqr() < 1e-18
}

// witness projects the origin on the closest face and interpolates the
// per-shape support points with the barycentric coordinates of the projection.
func witness(f face) Result {
	q := f.normal.Mul(f.distance)
	l0, l1, l2 := barycentric(q, f.verts[0].P, f.verts[1].P, f.verts[2].P)

	return Result{
		Normal: f.normal,
		Depth:  f.distance,
		WitnessA: f.verts[0].A.Mul(l0).
			Add(f.verts[1].A.Mul(l1)).
			Add(f.verts[2].A.Mul(l2)),
		WitnessB: f.verts[0].B.Mul(l0).
			Add(f.verts[1].B.Mul(l1)).
			Add(f.verts[2].B.Mul(l2)),
	}
}

// barycentric computes the barycentric coordinates of point q in the triangle
// (a, b, c), clamped to the triangle for robustness near edges.
func barycentric(q, a, b, c mgl64.Vec3) (float64, float64, float64) {
	v0 := b.Sub(a)
	v1 := c.Sub(a)
	v2 := q.Sub(a)

	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)

	denom := d00*d11 - d01*d01
	if math.Abs(denom) < degenerateEpsilon {
		return 1, 0, 0
	}

	l1 := (d11*d20 - d01*d21) / denom
	l2 := (d00*d21 - d01*d20) / denom

	// Clamp inside the triangle
	l1 = math.Max(0, math.Min(1, l1))
	l2 = math.Max(0, math.Min(1, l2))
	if l1+l2 > 1 {
		s := l1 + l2
		l1 /= s
		l2 /= s
	}

	return 1 - l1 - l2, l1, l2
}

// inflate completes a degenerate simplex (point, segment or triangle left by a
// touching contact) into a tetrahedron by sampling supports along the
// coordinate axes. Returns false if no non-flat tetrahedron can be built.
func inflate(probe gjk.Probe, simplex *gjk.Simplex) bool {
	axes := [6]mgl64.Vec3{
		{1, 0, 0}, {-1, 0, 0},
		{0, 1, 0}, {0, -1, 0},
		{0, 0, 1}, {0, 0, -1},
	}

	for _, axis := range axes {
		if simplex.Count == 4 {
			break
		}
		candidate := probe.Support(axis)

		distinct := true
		for i := 0; i < simplex.Count; i++ {
			if sameVertex(candidate, simplex.Points[i]) {
				distinct = false
				break
			}
		}
		if !distinct {
			continue
		}

		// Reject points that keep the simplex flat
		if simplex.Count == 3 {
			n := simplex.Points[1].P.Sub(simplex.Points[0].P).
				Cross(simplex.Points[2].P.Sub(simplex.Points[0].P))
			if n.LenSqr() >= degenerateEpsilon &&
				math.Abs(n.Normalize().Dot(candidate.P.Sub(simplex.Points[0].P))) < 1e-9 {
				continue
			}
		}

		simplex.Points[simplex.Count] = candidate
		simplex.Count++
	}

	if simplex.Count < 4 {
		return false
	}

	// Final volume check
	v := simplex.Points[1].P.Sub(simplex.Points[0].P).
		Cross(simplex.Points[2].P.Sub(simplex.Points[0].P)).
		Dot(simplex.Points[3].P.Sub(simplex.Points[0].P))
	return math.Abs(v) >= degenerateEpsilon
}
