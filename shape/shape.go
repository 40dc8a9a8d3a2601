// Package shape provides the geometric primitives consumed by the collision
// pipeline: axis-aligned bounding boxes, rigid transforms, and the collision
// shapes themselves.
//
// Shapes are immutable after construction and are shared by pointer between
// any number of collision objects. They expose two things to the pipeline:
// a Type tag used for algorithm dispatch, and a world-space AABB for a given
// transform. Convex shapes additionally implement SupportMap, the only query
// GJK and EPA need.
package shape

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Type identifies the concrete kind of a shape.
// Narrow-phase algorithm dispatch is keyed on pairs of these tags.
type Type int

const (
	TypeBall Type = iota
	TypeCuboid
	TypePlane
	TypeConvexHull
	TypeCompound
)

// Shape is the minimal interface the pipeline requires from every shape
type Shape interface {
	// Type returns the dispatch tag of the shape
	Type() Type
	// ComputeAABB calculates the world-space axis-aligned bounding box
	// of the shape at the given transform
	ComputeAABB(transform Transform) AABB
}

// SupportMap is implemented by convex shapes. Support returns the point of
// the shape furthest in the given direction, in the shape's local space.
// The direction is not required to be normalized.
type SupportMap interface {
	Shape
	Support(direction mgl64.Vec3) mgl64.Vec3
}

// Ball is a sphere centered on its local origin
type Ball struct {
	Radius float64
}

func (b *Ball) Type() Type { return TypeBall }

func (b *Ball) ComputeAABB(transform Transform) AABB {
	r := mgl64.Vec3{b.Radius, b.Radius, b.Radius}
	return AABB{
		Min: transform.Position.Sub(r),
		Max: transform.Position.Add(r),
	}
}

func (b *Ball) Support(direction mgl64.Vec3) mgl64.Vec3 {
	n := direction.Len()
	if n < 1e-12 {
		return mgl64.Vec3{b.Radius, 0, 0}
	}
	return direction.Mul(b.Radius / n)
}

// Cuboid is a box defined by its half-extents (half-width, half-height, half-depth)
type Cuboid struct {
	HalfExtents mgl64.Vec3
}

func (c *Cuboid) Type() Type { return TypeCuboid }

func (c *Cuboid) ComputeAABB(transform Transform) AABB {
	// Les 8 coins de la boîte en espace local
	corners := [8]mgl64.Vec3{
		{-c.HalfExtents.X(), -c.HalfExtents.Y(), -c.HalfExtents.Z()},
		{+c.HalfExtents.X(), -c.HalfExtents.Y(), -c.HalfExtents.Z()},
		{-c.HalfExtents.X(), +c.HalfExtents.Y(), -c.HalfExtents.Z()},
		{+c.HalfExtents.X(), +c.HalfExtents.Y(), -c.HalfExtents.Z()},
		{-c.HalfExtents.X(), -c.HalfExtents.Y(), +c.HalfExtents.Z()},
		{+c.HalfExtents.X(), -c.HalfExtents.Y(), +c.HalfExtents.Z()},
		{-c.HalfExtents.X(), +c.HalfExtents.Y(), +c.HalfExtents.Z()},
		{+c.HalfExtents.X(), +c.HalfExtents.Y(), +c.HalfExtents.Z()},
	}

	worldCorner := transform.Apply(corners[0])
	min := worldCorner
	max := worldCorner

	for i := 1; i < 8; i++ {
		worldCorner = transform.Apply(corners[i])

		min[0] = math.Min(min[0], worldCorner[0])
		min[1] = math.Min(min[1], worldCorner[1])
		min[2] = math.Min(min[2], worldCorner[2])

		max[0] = math.Max(max[0], worldCorner[0])
		max[1] = math.Max(max[1], worldCorner[1])
		max[2] = math.Max(max[2], worldCorner[2])
	}

	return AABB{Min: min, Max: max}
}

func (c *Cuboid) Support(direction mgl64.Vec3) mgl64.Vec3 {
	hx, hy, hz := c.HalfExtents.X(), c.HalfExtents.Y(), c.HalfExtents.Z()

	if direction.X() < 0 {
		hx = -hx
	}
	if direction.Y() < 0 {
		hy = -hy
	}
	if direction.Z() < 0 {
		hz = -hz
	}

	return mgl64.Vec3{hx, hy, hz}
}

// Plane is the half-space of points p satisfying dot(p, Normal) <= Offset,
// in the plane's local frame. Planes are unbounded so their AABB covers
// everything; they are only useful as static geometry.
type Plane struct {
	Normal mgl64.Vec3
	Offset float64
}

func (p *Plane) Type() Type { return TypePlane }

func (p *Plane) ComputeAABB(transform Transform) AABB {
	const huge = 1e12
	return AABB{
		Min: mgl64.Vec3{-huge, -huge, -huge},
		Max: mgl64.Vec3{huge, huge, huge},
	}
}

// WorldNormal returns the plane normal rotated into world space
func (p *Plane) WorldNormal(transform Transform) mgl64.Vec3 {
	return transform.ApplyVector(p.Normal)
}

// ConvexHull is the convex envelope of a cloud of local-space points.
// The points are assumed to already be the hull vertices; interior points
// only waste support-query time.
type ConvexHull struct {
	Points []mgl64.Vec3
}

func (c *ConvexHull) Type() Type { return TypeConvexHull }

func (c *ConvexHull) ComputeAABB(transform Transform) AABB {
	if len(c.Points) == 0 {
		return AABB{Min: transform.Position, Max: transform.Position}
	}

	worldPoint := transform.Apply(c.Points[0])
	min := worldPoint
	max := worldPoint

	for _, point := range c.Points[1:] {
		worldPoint = transform.Apply(point)

		for i := 0; i < 3; i++ {
			min[i] = math.Min(min[i], worldPoint[i])
			max[i] = math.Max(max[i], worldPoint[i])
		}
	}

	return AABB{Min: min, Max: max}
}

func (c *ConvexHull) Support(direction mgl64.Vec3) mgl64.Vec3 {
	best := c.Points[0]
	bestDot := best.Dot(direction)

	for _, point := range c.Points[1:] {
		if d := point.Dot(direction); d > bestDot {
			best = point
			bestDot = d
		}
	}

	return best
}

// Part is one piece of a compound shape: a sub-shape at a local delta transform
type Part struct {
	Delta Transform
	Shape Shape
}

// Compound is a concave shape assembled from convex parts.
// Part AABBs in the compound's local frame are precomputed at construction
// so pair traversals can prune without touching the sub-shapes.
type Compound struct {
	parts     []Part
	partAABBs []AABB
	localAABB AABB
}

// NewCompound builds a compound from its parts. It panics if parts is empty.
func NewCompound(parts []Part) *Compound {
	if len(parts) == 0 {
		panic("plume: compound shape requires at least one part")
	}

	c := &Compound{
		parts:     parts,
		partAABBs: make([]AABB, len(parts)),
	}

	for i, part := range parts {
		c.partAABBs[i] = part.Shape.ComputeAABB(part.Delta)
	}

	c.localAABB = c.partAABBs[0]
	for _, aabb := range c.partAABBs[1:] {
		c.localAABB = c.localAABB.Merged(aabb)
	}

	return c
}

func (c *Compound) Type() Type { return TypeCompound }

func (c *Compound) ComputeAABB(transform Transform) AABB {
	aabb := c.parts[0].Shape.ComputeAABB(transform.Mul(c.parts[0].Delta))
	for _, part := range c.parts[1:] {
		aabb = aabb.Merged(part.Shape.ComputeAABB(transform.Mul(part.Delta)))
	}
	return aabb
}

// Parts returns the sub-shapes of the compound
func (c *Compound) Parts() []Part { return c.parts }

// PartAABB returns the precomputed local-frame AABB of part i
func (c *Compound) PartAABB(i int) AABB { return c.partAABBs[i] }
