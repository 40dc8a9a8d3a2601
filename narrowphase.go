package plume

import (
	"github.com/charmbracelet/log"
)

// ObjectLookup resolves an object handle to its collision object. The world
// provides it to the narrow phase so slots never hold object pointers that
// could go stale.
type ObjectLookup func(ObjectHandle) *CollisionObject

type objectKey struct {
	a, b ObjectHandle
}

func makeObjectKey(a, b ObjectHandle) objectKey {
	if b < a {
		a, b = b, a
	}
	return objectKey{a: a, b: b}
}

type slotKind uint8

const (
	slotContact slotKind = iota
	slotProximity
	// slotUnsupported marks pairs the dispatcher knows no algorithm for,
	// so dispatch is not retried every tick
	slotUnsupported
)

// narrowSlot is the persistent narrow-phase state of one accepted pair
type narrowSlot struct {
	h1, h2 ObjectHandle
	kind   slotKind

	contactGen   ContactGenerator
	proximityDet ProximityDetector

	// effective prediction (contacts) or margin (proximity) of the pair
	effective float64

	numContacts int
	proximity   Proximity
}

// NarrowPhase owns one persistent algorithm per broad-phase pair, runs them
// on every update, diffs the results against the previous tick, and emits
// the edge-triggered contact and proximity events.
type NarrowPhase struct {
	contactDispatcher   *ContactDispatcher
	proximityDispatcher *ProximityDispatcher

	slots map[objectKey]*narrowSlot
	// insertion order of the live slots, for deterministic event ordering
	order []objectKey

	pendingContacts    []ContactEvent
	pendingProximities []ProximityEvent

	logger     *log.Logger
	generation uint64

	unsupportedPairs  int
	numericalFailures int
}

// NewNarrowPhase creates a narrow phase using the given dispatchers
func NewNarrowPhase(contacts *ContactDispatcher, proximities *ProximityDispatcher, logger *log.Logger) *NarrowPhase {
	return &NarrowPhase{
		contactDispatcher:   contacts,
		proximityDispatcher: proximities,
		slots:               map[objectKey]*narrowSlot{},
		logger:              logger,
	}
}

// UnsupportedPairs returns how many pairs had no algorithm in the dispatcher
func (np *NarrowPhase) UnsupportedPairs() int { return np.unsupportedPairs }

// NumericalFailures returns how many algorithm updates produced non-finite
// output and were discarded
func (np *NarrowPhase) NumericalFailures() int { return np.numericalFailures }

// HandleInteraction reacts to a broad-phase pair edge. On a birth it
// resolves the pair's effective query type, asks the matching dispatcher
// for an algorithm and creates the slot; a dispatch miss is recorded so the
// pair is not retried every tick. On a death it tears the slot down,
// emitting the final Stopped or Disjoint transition if the pair was active.
func (np *NarrowPhase) HandleInteraction(objs ObjectLookup, h1, h2 ObjectHandle, started bool) {
	key := makeObjectKey(h1, h2)

	if !started {
		np.killSlot(key)
		return
	}

	if _, exists := np.slots[key]; exists {
		// Already tracked: recompute-all re-reports live pairs as new
		return
	}

	o1 := objs(key.a)
	o2 := objs(key.b)
	if o1 == nil || o2 == nil {
		panic("plume: narrow phase interaction with unknown handle")
	}

	effective := o1.queryType.effectiveWith(o2.queryType)

	slot := &narrowSlot{
		h1:        key.a,
		h2:        key.b,
		effective: effective.Value(),
		proximity: Disjoint,
	}

	if effective.IsContacts() {
		slot.kind = slotContact
		slot.contactGen = np.contactDispatcher.Lookup(o1.shape.Type(), o2.shape.Type())
		if slot.contactGen == nil {
			slot.kind = slotUnsupported
			np.unsupportedPairs++
		}
	} else {
		slot.kind = slotProximity
		slot.proximityDet = np.proximityDispatcher.Lookup(o1.shape.Type(), o2.shape.Type())
		if slot.proximityDet == nil {
			slot.kind = slotUnsupported
			np.unsupportedPairs++
		}
	}

	np.slots[key] = slot
	np.order = append(np.order, key)
}

// HandleRemoval tears the slot down unconditionally. Used when an object is
// removed from the world, so the slot cannot dereference stale payloads.
func (np *NarrowPhase) HandleRemoval(objs ObjectLookup, h1, h2 ObjectHandle) {
	np.killSlot(makeObjectKey(h1, h2))
}

func (np *NarrowPhase) killSlot(key objectKey) {
	slot, ok := np.slots[key]
	if !ok {
		return
	}

	if slot.numContacts > 0 {
		np.pendingContacts = append(np.pendingContacts, ContactEvent{
			Kind: ContactStopped,
			H1:   slot.h1,
			H2:   slot.h2,
		})
	}
	if slot.proximity != Disjoint {
		np.pendingProximities = append(np.pendingProximities, ProximityEvent{
			H1:   slot.h1,
			H2:   slot.h2,
			Prev: slot.proximity,
			New:  Disjoint,
		})
	}

	delete(np.slots, key)
}

// Update runs every live slot's algorithm against the objects' current
// positions, diffs the results, and appends the resulting events.
//
// An algorithm failing or producing non-finite output leaves its slot's
// last-known state untouched for the tick; this is never fatal.
func (np *NarrowPhase) Update(objs ObjectLookup, contactsOut *[]ContactEvent, proximitiesOut *[]ProximityEvent) {
	np.generation++

	*contactsOut = append(*contactsOut, np.pendingContacts...)
	*proximitiesOut = append(*proximitiesOut, np.pendingProximities...)
	np.pendingContacts = np.pendingContacts[:0]
	np.pendingProximities = np.pendingProximities[:0]

	live := np.order[:0]
	for _, key := range np.order {
		slot, ok := np.slots[key]
		if !ok {
			continue // torn down since last tick
		}
		live = append(live, key)

		o1 := objs(slot.h1)
		o2 := objs(slot.h2)

		switch slot.kind {
		case slotContact:
			np.updateContactSlot(slot, o1, o2, contactsOut)
		case slotProximity:
			np.updateProximitySlot(slot, o1, o2, proximitiesOut)
		}
	}
	np.order = live
}

func (np *NarrowPhase) updateContactSlot(slot *narrowSlot, o1, o2 *CollisionObject, out *[]ContactEvent) {
	ctx := ContactContext{
		ShapeA:     o1.shape,
		PosA:       o1.position,
		ShapeB:     o2.shape,
		PosB:       o2.position,
		Prediction: slot.effective,
		Dispatcher: np.contactDispatcher,
	}

	if !slot.contactGen.Update(ctx) {
		np.numericalFailures++
		np.logger.Warn("contact algorithm failed, keeping previous manifold",
			"pair", [2]ObjectHandle{slot.h1, slot.h2})
		return
	}

	contacts := slot.contactGen.Contacts()
	for _, contact := range contacts {
		if !contact.finite() {
			np.numericalFailures++
			np.logger.Warn("contact algorithm produced non-finite output",
				"pair", [2]ObjectHandle{slot.h1, slot.h2})
			return
		}
	}

	count := len(contacts)
	if slot.numContacts == 0 && count > 0 {
		*out = append(*out, ContactEvent{
			Kind:      ContactStarted,
			H1:        slot.h1,
			H2:        slot.h2,
			Generator: slot.contactGen,
		})
	} else if slot.numContacts > 0 && count == 0 {
		*out = append(*out, ContactEvent{
			Kind: ContactStopped,
			H1:   slot.h1,
			H2:   slot.h2,
		})
	}
	slot.numContacts = count
}

func (np *NarrowPhase) updateProximitySlot(slot *narrowSlot, o1, o2 *CollisionObject, out *[]ProximityEvent) {
	ctx := ProximityContext{
		ShapeA:     o1.shape,
		PosA:       o1.position,
		ShapeB:     o2.shape,
		PosB:       o2.position,
		Margin:     slot.effective,
		Dispatcher: np.proximityDispatcher,
	}

	status, ok := slot.proximityDet.Update(ctx)
	if !ok {
		np.numericalFailures++
		np.logger.Warn("proximity algorithm failed, keeping previous status",
			"pair", [2]ObjectHandle{slot.h1, slot.h2})
		return
	}

	if status != slot.proximity {
		*out = append(*out, ProximityEvent{
			H1:   slot.h1,
			H2:   slot.h2,
			Prev: slot.proximity,
			New:  status,
		})
		slot.proximity = status
	}
}

// ContactPair is one narrow-phase pair currently in contact
type ContactPair struct {
	O1, O2    *CollisionObject
	Generator ContactGenerator
}

// ProximityPair is one narrow-phase pair currently closer than its margin
type ProximityPair struct {
	O1, O2 *CollisionObject
	Status Proximity
}

// ContactPairs returns the pairs holding at least one contact point
func (np *NarrowPhase) ContactPairs(objs ObjectLookup) []ContactPair {
	var pairs []ContactPair
	for _, key := range np.order {
		slot, ok := np.slots[key]
		if !ok || slot.kind != slotContact || slot.numContacts == 0 {
			continue
		}
		pairs = append(pairs, ContactPair{
			O1:        objs(slot.h1),
			O2:        objs(slot.h2),
			Generator: slot.contactGen,
		})
	}
	return pairs
}

// ProximityPairs returns the proximity pairs not currently Disjoint
func (np *NarrowPhase) ProximityPairs(objs ObjectLookup) []ProximityPair {
	var pairs []ProximityPair
	for _, key := range np.order {
		slot, ok := np.slots[key]
		if !ok || slot.kind != slotProximity || slot.proximity == Disjoint {
			continue
		}
		pairs = append(pairs, ProximityPair{
			O1:     objs(slot.h1),
			O2:     objs(slot.h2),
			Status: slot.proximity,
		})
	}
	return pairs
}

// Contacts returns every individual contact point of the pairs in contact
func (np *NarrowPhase) Contacts(objs ObjectLookup) []Contact {
	var contacts []Contact
	for _, pair := range np.ContactPairs(objs) {
		contacts = append(contacts, pair.Generator.Contacts()...)
	}
	return contacts
}
