package plume

import (
	"math"

	"github.com/akmonengine/plume/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// Contact is a single contact point between two objects.
//
// Normal is the unit contact normal pointing towards the exterior of the
// first object. World1 lies on the surface of the first object, World2 on
// the surface of the second, and World2 - World1 = -Normal * Depth.
// Depth is positive when the objects penetrate; contacts inside the
// prediction band carry a negative depth down to -prediction.
type Contact struct {
	World1 mgl64.Vec3
	World2 mgl64.Vec3
	Normal mgl64.Vec3
	Depth  float64
}

// flipped returns the same contact seen from the other object
func (c Contact) flipped() Contact {
	return Contact{
		World1: c.World2,
		World2: c.World1,
		Normal: c.Normal.Mul(-1),
		Depth:  c.Depth,
	}
}

// finite rejects contacts with NaN or infinite components
func (c Contact) finite() bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(c.World1[i]) || math.IsInf(c.World1[i], 0) ||
			math.IsNaN(c.World2[i]) || math.IsInf(c.World2[i], 0) ||
			math.IsNaN(c.Normal[i]) || math.IsInf(c.Normal[i], 0) {
			return false
		}
	}
	return !math.IsNaN(c.Depth) && !math.IsInf(c.Depth, 0)
}

// ContactContext carries everything a contact generator needs for one update
type ContactContext struct {
	ShapeA shape.Shape
	PosA   shape.Transform
	ShapeB shape.Shape
	PosB   shape.Transform

	// Prediction is the distance band within which contacts are reported
	// before actual penetration
	Prediction float64

	// Dispatcher lets composite generators resolve their sub-pairs
	Dispatcher *ContactDispatcher
}

// ContactGenerator is a persistent narrow-phase contact algorithm. One
// instance lives for the whole life of its pair and must always be updated
// with the same two shapes, in the same order.
//
// Update returns false on numerical failure; the caller then keeps the
// previous result for the tick. Contacts returns the manifold computed by
// the last successful update.
type ContactGenerator interface {
	Update(ctx ContactContext) bool
	Contacts() []Contact
}

// ballBallContact is the analytical contact generator for two balls
type ballBallContact struct {
	contacts []Contact
}

func (g *ballBallContact) Update(ctx ContactContext) bool {
	ballA := ctx.ShapeA.(*shape.Ball)
	ballB := ctx.ShapeB.(*shape.Ball)

	centerA := ctx.PosA.Position
	centerB := ctx.PosB.Position

	delta := centerB.Sub(centerA)
	dist := delta.Len()
	sum := ballA.Radius + ballB.Radius

	g.contacts = g.contacts[:0]
	if dist > sum+ctx.Prediction {
		return true
	}

	normal := mgl64.Vec3{1, 0, 0} // Centres confondus : direction arbitraire
	if dist > 1e-12 {
		normal = delta.Mul(1 / dist)
	}

	g.contacts = append(g.contacts, Contact{
		World1: centerA.Add(normal.Mul(ballA.Radius)),
		World2: centerB.Sub(normal.Mul(ballB.Radius)),
		Normal: normal,
		Depth:  sum - dist,
	})
	return true
}

func (g *ballBallContact) Contacts() []Contact { return g.contacts }

// planeSupportMapContact generates the single deepest contact between a
// half-space and a support-mapped convex shape. When flip is set, the plane
// is the second shape of the pair.
type planeSupportMapContact struct {
	flip     bool
	contacts []Contact
}

func (g *planeSupportMapContact) Update(ctx ContactContext) bool {
	planeShape, planePos := ctx.ShapeA, ctx.PosA
	otherShape, otherPos := ctx.ShapeB, ctx.PosB
	if g.flip {
		planeShape, otherShape = otherShape, planeShape
		planePos, otherPos = otherPos, planePos
	}

	plane := planeShape.(*shape.Plane)
	other := otherShape.(shape.SupportMap)

	worldNormal := plane.WorldNormal(planePos)

	// Deepest point of the convex shape against the half-space
	localDir := otherPos.Inverse().ApplyVector(worldNormal.Mul(-1))
	deepest := otherPos.Apply(other.Support(localDir))

	// Signed depth below the plane surface
	depth := plane.Offset - planePos.Inverse().Apply(deepest).Dot(plane.Normal)

	g.contacts = g.contacts[:0]
	if depth < -ctx.Prediction {
		return true
	}

	contact := Contact{
		World1: deepest.Add(worldNormal.Mul(depth)),
		World2: deepest,
		Normal: worldNormal,
		Depth:  depth,
	}
	if g.flip {
		contact = contact.flipped()
	}
	g.contacts = append(g.contacts, contact)
	return true
}

func (g *planeSupportMapContact) Contacts() []Contact { return g.contacts }
