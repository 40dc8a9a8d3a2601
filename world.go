package plume

import (
	"os"

	"github.com/akmonengine/plume/shape"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
)

type opKind uint8

const (
	opAdd opKind = iota
	opRemove
	opMove
)

type deferredOp struct {
	kind     opKind
	handle   ObjectHandle
	object   *CollisionObject // opAdd only
	position shape.Transform  // opMove only
}

// World owns the whole pipeline: the object registry, the broad and narrow
// phases, the dispatchers, and the registries of named pair filters and
// event handlers.
//
// Every mutating method is deferred: it only records the request, and the
// next Update applies everything atomically. Readers always observe the
// state of the last completed Update, never an intermediate one. A world is
// single-threaded; Update and queries on the same world must not overlap.
type World struct {
	broadPhase  *BroadPhase
	narrowPhase *NarrowPhase

	contactDispatcher   *ContactDispatcher
	proximityDispatcher *ProximityDispatcher

	objects    map[ObjectHandle]*CollisionObject
	nextHandle ObjectHandle
	deferred   []deferredOp

	pairFilters       registry[BroadPhasePairFilter]
	proximityHandlers registry[ProximityHandler]
	contactHandlers   registry[ContactHandler]

	contactEvents   []ContactEvent
	proximityEvents []ProximityEvent

	logger *log.Logger
}

// Option configures a World at construction
type Option func(*World)

// WithLogger replaces the default stderr logger
func WithLogger(logger *log.Logger) Option {
	return func(w *World) { w.logger = logger }
}

// NewWorld creates an empty world. The margin is the loosening distance
// applied to every bounding volume entering the broad phase; larger margins
// trade broad-phase false positives for fewer tree refits.
func NewWorld(margin float64, opts ...Option) *World {
	w := &World{
		contactDispatcher:   DefaultContactDispatcher(),
		proximityDispatcher: DefaultProximityDispatcher(),
		objects:             map[ObjectHandle]*CollisionObject{},
		pairFilters:         newRegistry[BroadPhasePairFilter](),
		proximityHandlers:   newRegistry[ProximityHandler](),
		contactHandlers:     newRegistry[ContactHandler](),
		logger:              log.NewWithOptions(os.Stderr, log.Options{Prefix: "plume"}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.broadPhase = NewBroadPhase(margin)
	w.narrowPhase = NewNarrowPhase(w.contactDispatcher, w.proximityDispatcher, w.logger)

	return w
}

// Add registers a new collision object and returns its handle. The object
// only becomes visible to queries after the next Update.
func (w *World) Add(position shape.Transform, s shape.Shape, groups CollisionGroups, queryType QueryType, data any) ObjectHandle {
	handle := w.nextHandle
	w.nextHandle++

	w.deferred = append(w.deferred, deferredOp{
		kind:   opAdd,
		handle: handle,
		object: &CollisionObject{
			handle:    handle,
			position:  position,
			shape:     s,
			groups:    groups,
			queryType: queryType,
			data:      data,
		},
	})

	return handle
}

// Remove enqueues the removal of the given objects, effective at the next
// Update. Removal cascades: the broad-phase proxy disappears and every
// narrow-phase slot involving the object is torn down, emitting the final
// Stopped or Disjoint events.
func (w *World) Remove(handles ...ObjectHandle) {
	for _, handle := range handles {
		w.deferred = append(w.deferred, deferredOp{kind: opRemove, handle: handle})
	}
}

// SetPosition enqueues a position change, effective at the next Update
func (w *World) SetPosition(handle ObjectHandle, position shape.Transform) {
	w.deferred = append(w.deferred, deferredOp{kind: opMove, handle: handle, position: position})
}

// RegisterBroadPhasePairFilter installs a named pair filter. Since the
// admission semantics just changed, every pair is re-evaluated at the next
// Update.
func (w *World) RegisterBroadPhasePairFilter(name string, filter BroadPhasePairFilter) {
	w.pairFilters.register(name, filter)
	w.broadPhase.DeferredRecomputeAllProximities()
}

// UnregisterBroadPhasePairFilter removes a named pair filter and triggers a
// re-evaluation of every pair, so previously rejected pairs may reappear
func (w *World) UnregisterBroadPhasePairFilter(name string) bool {
	if !w.pairFilters.unregister(name) {
		return false
	}
	w.broadPhase.DeferredRecomputeAllProximities()
	return true
}

// RegisterProximityHandler installs a named proximity event handler.
// Handlers fire in registration order.
func (w *World) RegisterProximityHandler(name string, handler ProximityHandler) {
	w.proximityHandlers.register(name, handler)
}

// UnregisterProximityHandler removes a named proximity event handler
func (w *World) UnregisterProximityHandler(name string) bool {
	return w.proximityHandlers.unregister(name)
}

// RegisterContactHandler installs a named contact event handler.
// Handlers fire in registration order.
func (w *World) RegisterContactHandler(name string, handler ContactHandler) {
	w.contactHandlers.register(name, handler)
}

// UnregisterContactHandler removes a named contact event handler
func (w *World) UnregisterContactHandler(name string) bool {
	return w.contactHandlers.unregister(name)
}

func (w *World) lookup(handle ObjectHandle) *CollisionObject {
	return w.objects[handle]
}

// Update is the atomic tick of the world:
//
//  1. The deferred operations are applied in submission order and turned
//     into broad-phase work, with exact AABBs recomputed from the shapes.
//  2. The broad phase refreshes the pair set under the composite admission
//     filter (collision groups plus every registered pair filter), streaming
//     pair edges into the narrow phase.
//  3. The narrow phase runs every persistent algorithm and diffs results.
//  4. The resulting events are delivered to the registered handlers, in
//     registration order.
//
// Update never fails; recoverable conditions are swallowed (and counted)
// to preserve the atomicity of the tick.
func (w *World) Update() {
	var removed []ObjectHandle

	for _, op := range w.deferred {
		switch op.kind {
		case opAdd:
			w.objects[op.handle] = op.object
			exact := op.object.shape.ComputeAABB(op.object.position)
			op.object.proxy = w.broadPhase.CreateProxy(exact, op.handle)

		case opRemove:
			co, ok := w.objects[op.handle]
			if !ok {
				continue // removed twice, or never applied
			}
			removed = append(removed, op.handle)
			w.broadPhase.Remove([]ProxyHandle{co.proxy}, func(a, b any) {
				w.narrowPhase.HandleRemoval(w.lookup, a.(ObjectHandle), b.(ObjectHandle))
			})

		case opMove:
			co, ok := w.objects[op.handle]
			if !ok {
				continue
			}
			co.position = op.position
			w.broadPhase.DeferredSetBoundingVolume(co.proxy, co.shape.ComputeAABB(op.position))
		}
	}
	w.deferred = w.deferred[:0]

	filter := func(a, b any) bool {
		o1 := w.objects[a.(ObjectHandle)]
		o2 := w.objects[b.(ObjectHandle)]

		if !o1.groups.CanInteract(o2.groups) {
			return false
		}

		valid := true
		w.pairFilters.each(func(f BroadPhasePairFilter) {
			if valid && !f.IsPairValid(o1, o2) {
				valid = false
			}
		})
		return valid
	}

	w.broadPhase.Update(filter,
		func(a, b any) {
			w.narrowPhase.HandleInteraction(w.lookup, a.(ObjectHandle), b.(ObjectHandle), true)
		},
		func(a, b any) {
			w.narrowPhase.HandleInteraction(w.lookup, a.(ObjectHandle), b.(ObjectHandle), false)
		})

	w.contactEvents = w.contactEvents[:0]
	w.proximityEvents = w.proximityEvents[:0]
	w.narrowPhase.Update(w.lookup, &w.contactEvents, &w.proximityEvents)

	for _, event := range w.contactEvents {
		o1 := w.objects[event.H1]
		o2 := w.objects[event.H2]
		w.contactHandlers.each(func(h ContactHandler) {
			if event.Kind == ContactStarted {
				h.HandleContactStarted(o1, o2, event.Generator)
			} else {
				h.HandleContactStopped(o1, o2)
			}
		})
	}
	for _, event := range w.proximityEvents {
		o1 := w.objects[event.H1]
		o2 := w.objects[event.H2]
		w.proximityHandlers.each(func(h ProximityHandler) {
			h.HandleProximity(o1, o2, event.Prev, event.New)
		})
	}

	// The removed objects stayed resolvable for the events above; they are
	// gone for good now
	for _, handle := range removed {
		delete(w.objects, handle)
	}
}

// CollisionObject returns the object registered under the handle, or nil.
// The returned object is only valid to read until the next Update begins.
func (w *World) CollisionObject(handle ObjectHandle) *CollisionObject {
	return w.objects[handle]
}

// NumInterferences returns the size of the broad-phase pair set
func (w *World) NumInterferences() int {
	return w.broadPhase.NumInterferences()
}

// ContactPairs returns the pairs currently holding at least one contact
func (w *World) ContactPairs() []ContactPair {
	return w.narrowPhase.ContactPairs(w.lookup)
}

// ProximityPairs returns the proximity pairs not currently Disjoint
func (w *World) ProximityPairs() []ProximityPair {
	return w.narrowPhase.ProximityPairs(w.lookup)
}

// Contacts returns every contact point of the pairs currently in contact
func (w *World) Contacts() []Contact {
	return w.narrowPhase.Contacts(w.lookup)
}

// InterferencesWithRay returns the objects whose loosened bounding volume
// is hit by the ray and whose groups can interact with the given ones
func (w *World) InterferencesWithRay(ray shape.Ray, groups CollisionGroups) []*CollisionObject {
	var out []*CollisionObject
	w.broadPhase.InterferencesWithRay(ray, w.groupVisitor(groups, &out))
	return out
}

// InterferencesWithPoint returns the objects whose loosened bounding volume
// contains the point and whose groups can interact with the given ones
func (w *World) InterferencesWithPoint(point mgl64.Vec3, groups CollisionGroups) []*CollisionObject {
	var out []*CollisionObject
	w.broadPhase.InterferencesWithPoint(point, w.groupVisitor(groups, &out))
	return out
}

// InterferencesWithAABB returns the objects whose loosened bounding volume
// overlaps the AABB and whose groups can interact with the given ones
func (w *World) InterferencesWithAABB(aabb shape.AABB, groups CollisionGroups) []*CollisionObject {
	var out []*CollisionObject
	w.broadPhase.InterferencesWithAABB(aabb, w.groupVisitor(groups, &out))
	return out
}

func (w *World) groupVisitor(groups CollisionGroups, out *[]*CollisionObject) Visitor {
	return func(data any) bool {
		co := w.objects[data.(ObjectHandle)]
		if co != nil && groups.CanInteract(co.groups) {
			*out = append(*out, co)
		}
		return true
	}
}

// BroadPhase exposes the underlying broad phase, mostly for diagnostics
func (w *World) BroadPhase() *BroadPhase { return w.broadPhase }

// Diagnostics reports the counters of swallowed recoverable conditions
type Diagnostics struct {
	UnsupportedPairs  int
	NumericalFailures int
}

// Diagnostics returns the current diagnostic counters
func (w *World) Diagnostics() Diagnostics {
	return Diagnostics{
		UnsupportedPairs:  w.narrowPhase.UnsupportedPairs(),
		NumericalFailures: w.narrowPhase.NumericalFailures(),
	}
}
