package plume

import (
	"github.com/akmonengine/plume/epa"
	"github.com/akmonengine/plume/gjk"
	"github.com/akmonengine/plume/shape"
)

// contactDilation is the extra radius summed onto each support mapping
// before running GJK/EPA. It keeps the origin strictly inside the Minkowski
// difference for touching or barely separated pairs, where EPA would
// otherwise start from a flat polytope. The dilation is subtracted back from
// the result so reported depths and witness points are exact.
const contactDilation = 0.005

// convexConvexContact computes a single contact point between two
// support-mapped convex shapes with GJK and EPA. The dispatcher wraps it in
// a one-shot manifold generator to recover full manifolds for conforming
// contacts.
type convexConvexContact struct {
	simplex  gjk.Simplex
	contacts []Contact
}

func (g *convexConvexContact) Update(ctx ContactContext) bool {
	supportA := ctx.ShapeA.(shape.SupportMap)
	supportB := ctx.ShapeB.(shape.SupportMap)

	// Half the prediction band on each side, plus the numerical dilation
	radius := 0.5*ctx.Prediction + contactDilation
	probe := gjk.NewProbe(supportA, ctx.PosA, supportB, ctx.PosB).Dilated(radius, radius)

	g.contacts = g.contacts[:0]

	g.simplex.Reset()
	if !probe.Intersect(&g.simplex) {
		// Separated beyond the prediction band
		return true
	}

	result, err := epa.Penetration(probe, &g.simplex)
	if err != nil {
		return false
	}

	// Undo the dilation: slide the witness points back onto the real
	// surfaces and shrink the depth accordingly
	depth := result.Depth - 2*radius
	if depth < -ctx.Prediction {
		return true
	}

	normal := result.Normal
	g.contacts = append(g.contacts, Contact{
		World1: result.WitnessA.Sub(normal.Mul(radius)),
		World2: result.WitnessB.Add(normal.Mul(radius)),
		Normal: normal,
		Depth:  depth,
	})
	return true
}

func (g *convexConvexContact) Contacts() []Contact { return g.contacts }

// compoundContact handles pairs where the first shape (or the second, when
// flip is set) is a compound. It prunes parts against the other shape's
// AABB in the compound's local frame, and delegates every surviving
// sub-pair back to the dispatcher. Sub-generators are persistent, keyed by
// part index, so their caches survive across ticks; compound versus
// compound pairs recurse naturally.
type compoundContact struct {
	flip     bool
	sub      map[int]ContactGenerator
	contacts []Contact
}

func (g *compoundContact) Update(ctx ContactContext) bool {
	compoundShape, compoundPos := ctx.ShapeA, ctx.PosA
	otherShape, otherPos := ctx.ShapeB, ctx.PosB
	if g.flip {
		compoundShape, otherShape = otherShape, compoundShape
		compoundPos, otherPos = otherPos, compoundPos
	}

	compound := compoundShape.(*shape.Compound)

	if g.sub == nil {
		g.sub = map[int]ContactGenerator{}
	}

	// AABB of the other shape in the compound's local frame, loosened by
	// the prediction band
	localOther := otherShape.
		ComputeAABB(compoundPos.Inverse().Mul(otherPos)).
		Loosened(ctx.Prediction)

	g.contacts = g.contacts[:0]
	ok := true

	for i, part := range compound.Parts() {
		if !compound.PartAABB(i).Overlaps(localOther) {
			delete(g.sub, i)
			continue
		}

		gen, exists := g.sub[i]
		if !exists {
			gen = ctx.Dispatcher.Lookup(part.Shape.Type(), otherShape.Type())
			if gen == nil {
				continue // unsupported sub-pair, skipped silently
			}
			g.sub[i] = gen
		}

		subCtx := ContactContext{
			ShapeA:     part.Shape,
			PosA:       compoundPos.Mul(part.Delta),
			ShapeB:     otherShape,
			PosB:       otherPos,
			Prediction: ctx.Prediction,
			Dispatcher: ctx.Dispatcher,
		}
		if !gen.Update(subCtx) {
			ok = false
			continue
		}

		for _, contact := range gen.Contacts() {
			if g.flip {
				contact = contact.flipped()
			}
			g.contacts = append(g.contacts, contact)
		}
	}

	return ok
}

func (g *compoundContact) Contacts() []Contact { return g.contacts }
