package plume

import (
	"github.com/akmonengine/plume/gjk"
	"github.com/akmonengine/plume/shape"
)

// ProximityContext carries everything a proximity detector needs for one update
type ProximityContext struct {
	ShapeA shape.Shape
	PosA   shape.Transform
	ShapeB shape.Shape
	PosB   shape.Transform

	// Margin is the distance under which the pair is WithinMargin
	Margin float64

	// Dispatcher lets composite detectors resolve their sub-pairs
	Dispatcher *ProximityDispatcher
}

// ProximityDetector is a persistent narrow-phase proximity algorithm.
// Update returns the three-state status, and false on numerical failure
// (the caller then keeps the previous status for the tick).
type ProximityDetector interface {
	Update(ctx ProximityContext) (Proximity, bool)
}

// ballBallProximity is the analytical proximity detector for two balls
type ballBallProximity struct{}

func (ballBallProximity) Update(ctx ProximityContext) (Proximity, bool) {
	ballA := ctx.ShapeA.(*shape.Ball)
	ballB := ctx.ShapeB.(*shape.Ball)

	gap := ctx.PosB.Position.Sub(ctx.PosA.Position).Len() - ballA.Radius - ballB.Radius
	switch {
	case gap <= 0:
		return Intersecting, true
	case gap <= ctx.Margin:
		return WithinMargin, true
	default:
		return Disjoint, true
	}
}

// planeSupportMapProximity measures the gap between a half-space and the
// deepest point of a support-mapped convex shape
type planeSupportMapProximity struct {
	flip bool
}

func (d planeSupportMapProximity) Update(ctx ProximityContext) (Proximity, bool) {
	planeShape, planePos := ctx.ShapeA, ctx.PosA
	otherShape, otherPos := ctx.ShapeB, ctx.PosB
	if d.flip {
		planeShape, otherShape = otherShape, planeShape
		planePos, otherPos = otherPos, planePos
	}

	plane := planeShape.(*shape.Plane)
	other := otherShape.(shape.SupportMap)

	worldNormal := plane.WorldNormal(planePos)
	localDir := otherPos.Inverse().ApplyVector(worldNormal.Mul(-1))
	deepest := otherPos.Apply(other.Support(localDir))

	gap := planePos.Inverse().Apply(deepest).Dot(plane.Normal) - plane.Offset
	switch {
	case gap <= 0:
		return Intersecting, true
	case gap <= ctx.Margin:
		return WithinMargin, true
	default:
		return Disjoint, true
	}
}

// supportMapProximity tests two support-mapped convex shapes with GJK: once
// on the raw shapes for intersection, and once dilated by half the margin on
// each side for the WithinMargin band.
type supportMapProximity struct {
	simplex gjk.Simplex
}

func (d *supportMapProximity) Update(ctx ProximityContext) (Proximity, bool) {
	supportA := ctx.ShapeA.(shape.SupportMap)
	supportB := ctx.ShapeB.(shape.SupportMap)

	probe := gjk.NewProbe(supportA, ctx.PosA, supportB, ctx.PosB)

	d.simplex.Reset()
	if probe.Intersect(&d.simplex) {
		return Intersecting, true
	}

	if ctx.Margin > 0 {
		d.simplex.Reset()
		if probe.Dilated(0.5*ctx.Margin, 0.5*ctx.Margin).Intersect(&d.simplex) {
			return WithinMargin, true
		}
	}

	return Disjoint, true
}

// compoundProximity reduces the statuses of the compound's parts against the
// other shape: the strongest status wins. Parts are pruned against the other
// shape's AABB, loosened by the margin, in the compound's local frame.
type compoundProximity struct {
	flip bool
	sub  map[int]ProximityDetector
}

func (d *compoundProximity) Update(ctx ProximityContext) (Proximity, bool) {
	compoundShape, compoundPos := ctx.ShapeA, ctx.PosA
	otherShape, otherPos := ctx.ShapeB, ctx.PosB
	if d.flip {
		compoundShape, otherShape = otherShape, compoundShape
		compoundPos, otherPos = otherPos, compoundPos
	}

	compound := compoundShape.(*shape.Compound)

	if d.sub == nil {
		d.sub = map[int]ProximityDetector{}
	}

	localOther := otherShape.
		ComputeAABB(compoundPos.Inverse().Mul(otherPos)).
		Loosened(ctx.Margin)

	best := Disjoint
	ok := true

	for i, part := range compound.Parts() {
		if !compound.PartAABB(i).Overlaps(localOther) {
			delete(d.sub, i)
			continue
		}

		detector, exists := d.sub[i]
		if !exists {
			detector = ctx.Dispatcher.Lookup(part.Shape.Type(), otherShape.Type())
			if detector == nil {
				continue
			}
			d.sub[i] = detector
		}

		subCtx := ProximityContext{
			ShapeA:     part.Shape,
			PosA:       compoundPos.Mul(part.Delta),
			ShapeB:     otherShape,
			PosB:       otherPos,
			Margin:     ctx.Margin,
			Dispatcher: ctx.Dispatcher,
		}
		status, subOK := detector.Update(subCtx)
		if !subOK {
			ok = false
			continue
		}

		if status > best {
			best = status
		}
		if best == Intersecting {
			return Intersecting, ok
		}
	}

	return best, ok
}
