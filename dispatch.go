package plume

import (
	"github.com/akmonengine/plume/shape"
)

// typePair is an unordered pair of shape type tags, canonicalized so that
// a <= b
type typePair struct {
	a, b shape.Type
}

func makeTypePair(a, b shape.Type) typePair {
	if b < a {
		a, b = b, a
	}
	return typePair{a: a, b: b}
}

// ContactFactory builds a fresh persistent contact generator for a pair of
// shapes. flip is true when the pair's first shape is not the first type the
// factory was registered for.
type ContactFactory func(flip bool) ContactGenerator

// ContactDispatcher maps unordered pairs of shape type tags to contact
// generator factories. Each accepted broad-phase pair gets its own generator
// instance, which then lives as long as the pair.
type ContactDispatcher struct {
	factories map[typePair]contactEntry
}

type contactEntry struct {
	first   shape.Type
	factory ContactFactory
}

// NewContactDispatcher creates an empty dispatcher
func NewContactDispatcher() *ContactDispatcher {
	return &ContactDispatcher{factories: map[typePair]contactEntry{}}
}

// Register installs a factory for the unordered pair (a, b). The factory's
// flip argument tells whether the runtime pair arrives as (b, a).
func (d *ContactDispatcher) Register(a, b shape.Type, factory ContactFactory) {
	d.factories[makeTypePair(a, b)] = contactEntry{first: a, factory: factory}
}

// Lookup returns a fresh generator for the shape type pair, or nil when no
// algorithm is known. Compounds match against any other type and recurse
// through the dispatcher.
func (d *ContactDispatcher) Lookup(a, b shape.Type) ContactGenerator {
	if a == shape.TypeCompound {
		return &compoundContact{}
	}
	if b == shape.TypeCompound {
		return &compoundContact{flip: true}
	}

	entry, ok := d.factories[makeTypePair(a, b)]
	if !ok {
		return nil
	}
	return entry.factory(a != b && a != entry.first)
}

// DefaultContactDispatcher returns a dispatcher preloaded with the standard
// registry: analytical ball/ball, plane against support-mapped shapes, and
// GJK+EPA wrapped in a one-shot manifold generator for convex pairs.
func DefaultContactDispatcher() *ContactDispatcher {
	d := NewContactDispatcher()

	d.Register(shape.TypeBall, shape.TypeBall, func(bool) ContactGenerator {
		return &ballBallContact{}
	})

	// A ball touches a plane on a single point: no manifold wrapper needed
	d.Register(shape.TypePlane, shape.TypeBall, func(flip bool) ContactGenerator {
		return &planeSupportMapContact{flip: flip}
	})

	planeFactory := func(flip bool) ContactGenerator {
		return NewIncrementalManifold(&planeSupportMapContact{flip: flip})
	}
	d.Register(shape.TypePlane, shape.TypeCuboid, planeFactory)
	d.Register(shape.TypePlane, shape.TypeConvexHull, planeFactory)

	convexFactory := func(bool) ContactGenerator {
		return NewOneShotManifold(&convexConvexContact{})
	}
	d.Register(shape.TypeBall, shape.TypeCuboid, convexFactory)
	d.Register(shape.TypeBall, shape.TypeConvexHull, convexFactory)
	d.Register(shape.TypeCuboid, shape.TypeCuboid, convexFactory)
	d.Register(shape.TypeCuboid, shape.TypeConvexHull, convexFactory)
	d.Register(shape.TypeConvexHull, shape.TypeConvexHull, convexFactory)

	return d
}

// ProximityFactory builds a fresh persistent proximity detector for a pair
// of shapes
type ProximityFactory func(flip bool) ProximityDetector

// ProximityDispatcher maps unordered pairs of shape type tags to proximity
// detector factories
type ProximityDispatcher struct {
	factories map[typePair]proximityEntry
}

type proximityEntry struct {
	first   shape.Type
	factory ProximityFactory
}

// NewProximityDispatcher creates an empty dispatcher
func NewProximityDispatcher() *ProximityDispatcher {
	return &ProximityDispatcher{factories: map[typePair]proximityEntry{}}
}

// Register installs a factory for the unordered pair (a, b)
func (d *ProximityDispatcher) Register(a, b shape.Type, factory ProximityFactory) {
	d.factories[makeTypePair(a, b)] = proximityEntry{first: a, factory: factory}
}

// Lookup returns a fresh detector for the shape type pair, or nil when no
// algorithm is known
func (d *ProximityDispatcher) Lookup(a, b shape.Type) ProximityDetector {
	if a == shape.TypeCompound {
		return &compoundProximity{}
	}
	if b == shape.TypeCompound {
		return &compoundProximity{flip: true}
	}

	entry, ok := d.factories[makeTypePair(a, b)]
	if !ok {
		return nil
	}
	return entry.factory(a != b && a != entry.first)
}

// DefaultProximityDispatcher returns a dispatcher preloaded with the
// standard registry
func DefaultProximityDispatcher() *ProximityDispatcher {
	d := NewProximityDispatcher()

	d.Register(shape.TypeBall, shape.TypeBall, func(bool) ProximityDetector {
		return ballBallProximity{}
	})

	planeFactory := func(flip bool) ProximityDetector {
		return planeSupportMapProximity{flip: flip}
	}
	d.Register(shape.TypePlane, shape.TypeBall, planeFactory)
	d.Register(shape.TypePlane, shape.TypeCuboid, planeFactory)
	d.Register(shape.TypePlane, shape.TypeConvexHull, planeFactory)

	convexFactory := func(bool) ProximityDetector {
		return &supportMapProximity{}
	}
	d.Register(shape.TypeBall, shape.TypeCuboid, convexFactory)
	d.Register(shape.TypeBall, shape.TypeConvexHull, convexFactory)
	d.Register(shape.TypeCuboid, shape.TypeCuboid, convexFactory)
	d.Register(shape.TypeCuboid, shape.TypeConvexHull, convexFactory)
	d.Register(shape.TypeConvexHull, shape.TypeConvexHull, convexFactory)

	return d
}
