package plume

import (
	"math"

	"github.com/akmonengine/plume/shape"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// maxManifoldPoints is the retention limit of the manifold wrappers
	maxManifoldPoints = 4

	// manifoldMatchDistance: a fresh contact closer than this to a retained
	// one replaces it instead of growing the manifold
	manifoldMatchDistance = 0.01

	// manifoldDriftTolerance: a retained contact whose surface points slid
	// apart tangentially by more than this is stale and dropped
	manifoldDriftTolerance = 0.04

	// oneShotAngle is the virtual perturbation applied around the tangent
	// axes when the one-shot wrapper samples a fresh conforming contact
	oneShotAngle = 0.01
)

// manifoldPoint is a retained contact, stored in the local frames of both
// objects so it can be re-expressed against their current positions.
type manifoldPoint struct {
	localA mgl64.Vec3
	localB mgl64.Vec3
}

// IncrementalManifold upgrades a single-point contact generator to a full
// manifold by accumulating the points it produces over several ticks.
//
// Retained points live in the local frames of the two objects. On every
// update they are re-evaluated against the current positions: points that
// separated beyond the prediction band or drifted tangentially are dropped,
// and when the set exceeds the retention limit it is reduced to the deepest
// point plus the subset spanning the largest area.
type IncrementalManifold struct {
	inner    ContactGenerator
	points   []manifoldPoint
	normal   mgl64.Vec3
	contacts []Contact
}

// NewIncrementalManifold wraps a single-point contact generator
func NewIncrementalManifold(inner ContactGenerator) *IncrementalManifold {
	return &IncrementalManifold{inner: inner}
}

func (m *IncrementalManifold) Update(ctx ContactContext) bool {
	m.revalidate(ctx)

	if !m.inner.Update(ctx) {
		return false
	}

	for _, contact := range m.inner.Contacts() {
		m.absorb(ctx, contact)
	}

	if len(m.points) > maxManifoldPoints {
		m.reduce(ctx)
	}

	m.rebuild(ctx)
	return true
}

func (m *IncrementalManifold) Contacts() []Contact { return m.contacts }

// revalidate drops retained points invalidated by the motion since last tick
func (m *IncrementalManifold) revalidate(ctx ContactContext) {
	n := 0
	for _, point := range m.points {
		world1 := ctx.PosA.Apply(point.localA)
		world2 := ctx.PosB.Apply(point.localB)

		gap := world1.Sub(world2)
		depth := gap.Dot(m.normal)
		tangential := gap.Sub(m.normal.Mul(depth)).Len()

		if depth < -ctx.Prediction || tangential > manifoldDriftTolerance {
			continue
		}
		m.points[n] = point
		n++
	}
	m.points = m.points[:n]
}

// absorb adds a fresh contact to the retained set, replacing the nearest
// retained point when they almost coincide
func (m *IncrementalManifold) absorb(ctx ContactContext, contact Contact) {
	m.normal = contact.Normal

	point := manifoldPoint{
		localA: ctx.PosA.Inverse().Apply(contact.World1),
		localB: ctx.PosB.Inverse().Apply(contact.World2),
	}

	for i, retained := range m.points {
		world1 := ctx.PosA.Apply(retained.localA)
		if world1.Sub(contact.World1).Len() < manifoldMatchDistance {
			m.points[i] = point
			return
		}
	}

	m.points = append(m.points, point)
}

// reduce shrinks the retained set to maxManifoldPoints: the deepest point is
// always kept, then points are greedily added to maximize the area spanned
// by the manifold (farthest point first, then the two largest triangles).
func (m *IncrementalManifold) reduce(ctx ContactContext) {
	type candidate struct {
		point manifoldPoint
		world mgl64.Vec3
		depth float64
	}

	candidates := make([]candidate, len(m.points))
	for i, point := range m.points {
		world1 := ctx.PosA.Apply(point.localA)
		world2 := ctx.PosB.Apply(point.localB)
		candidates[i] = candidate{
			point: point,
			world: world1,
			depth: world1.Sub(world2).Dot(m.normal),
		}
	}

	// Deepest first
	deepest := 0
	for i := range candidates {
		if candidates[i].depth > candidates[deepest].depth {
			deepest = i
		}
	}
	kept := []candidate{candidates[deepest]}
	candidates = append(candidates[:deepest], candidates[deepest+1:]...)

	take := func(score func(candidate) float64) {
		best := 0
		for i := range candidates {
			if score(candidates[i]) > score(candidates[best]) {
				best = i
			}
		}
		kept = append(kept, candidates[best])
		candidates = append(candidates[:best], candidates[best+1:]...)
	}

	area := func(a, b, c mgl64.Vec3) float64 {
		return b.Sub(a).Cross(c.Sub(a)).Len()
	}

	// Farthest from the deepest point
	take(func(c candidate) float64 { return c.world.Sub(kept[0].world).Len() })
	// Largest triangle with the two kept points
	take(func(c candidate) float64 { return area(kept[0].world, kept[1].world, c.world) })
	// Largest added area against both triangle edges
	take(func(c candidate) float64 {
		return area(kept[0].world, kept[1].world, c.world) +
			area(kept[0].world, kept[2].world, c.world)
	})

	m.points = m.points[:0]
	for _, c := range kept {
		m.points = append(m.points, c.point)
	}
}

// rebuild re-expresses the retained points against the current positions
func (m *IncrementalManifold) rebuild(ctx ContactContext) {
	m.contacts = m.contacts[:0]
	for _, point := range m.points {
		world1 := ctx.PosA.Apply(point.localA)
		world2 := ctx.PosB.Apply(point.localB)
		m.contacts = append(m.contacts, Contact{
			World1: world1,
			World2: world2,
			Normal: m.normal,
			Depth:  world1.Sub(world2).Dot(m.normal),
		})
	}
}

// OneShotManifold generates a full manifold on the very first tick a contact
// appears: it virtually perturbs the first object's orientation around the
// two axes orthogonal to the contact normal, collects the contacts of every
// perturbed pose, and reduces them with the incremental wrapper's area
// heuristic. Afterwards it behaves incrementally until the pair fully
// separates, which re-arms the one-shot sampling.
type OneShotManifold struct {
	incremental *IncrementalManifold
	armed       bool
}

// NewOneShotManifold wraps a single-point contact generator
func NewOneShotManifold(inner ContactGenerator) *OneShotManifold {
	return &OneShotManifold{
		incremental: NewIncrementalManifold(inner),
		armed:       true,
	}
}

func (m *OneShotManifold) Update(ctx ContactContext) bool {
	if !m.armed {
		ok := m.incremental.Update(ctx)
		if ok && len(m.incremental.Contacts()) == 0 {
			m.armed = true
		}
		return ok
	}

	inner := m.incremental.inner
	if !inner.Update(ctx) {
		return false
	}
	seeds := inner.Contacts()
	if len(seeds) == 0 {
		m.incremental.rebuild(ctx)
		return true
	}

	// First touch: sample the contact region with small virtual rotations
	// around the tangent plane axes
	seed := seeds[0]
	t1, t2 := tangentBasis(seed.Normal)
	pivot := seed.World1.Add(seed.World2).Mul(0.5)

	for _, axis := range []mgl64.Vec3{t1, t2} {
		for _, angle := range []float64{-oneShotAngle, oneShotAngle} {
			perturbed := ctx
			perturbed.PosA = rotateAbout(ctx.PosA, pivot, axis, angle)

			if !inner.Update(perturbed) {
				continue
			}
			for _, contact := range inner.Contacts() {
				// Les points perturbés sont mémorisés dans les repères réels
				m.incremental.absorb(ctx, contact)
			}
		}
	}

	// Final pass with the true positions settles the manifold
	ok := m.incremental.Update(ctx)
	if ok && len(m.incremental.Contacts()) > 0 {
		m.armed = false
	}
	return ok
}

func (m *OneShotManifold) Contacts() []Contact { return m.incremental.Contacts() }

// tangentBasis returns two unit vectors orthogonal to n and to each other
func tangentBasis(n mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	e := mgl64.Vec3{1, 0, 0}
	if math.Abs(n.X()) > 0.7 {
		e = mgl64.Vec3{0, 1, 0}
	}
	t1 := n.Cross(e).Normalize()
	t2 := n.Cross(t1).Normalize()
	return t1, t2
}

// rotateAbout composes a rotation of the transform around an arbitrary
// world-space pivot point
func rotateAbout(t shape.Transform, pivot, axis mgl64.Vec3, angle float64) shape.Transform {
	q := mgl64.QuatRotate(angle, axis)
	return shape.Transform{
		Position: pivot.Add(q.Rotate(t.Position.Sub(pivot))),
		Rotation: q.Mul(t.Rotation).Normalize(),
	}
}
