package plume

import (
	"github.com/akmonengine/plume/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// pairKey is an unordered pair of proxy handles, canonicalized so that
// a < b before hashing
type pairKey struct {
	a, b ProxyHandle
}

func makePairKey(a, b ProxyHandle) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

type pairAge uint8

const (
	pairNew pairAge = iota
	pairPersisting
)

// PairFilter decides whether a candidate pair of proxies (given by their
// user payloads) may enter the pair set. It must be pure and time-invariant
// between two calls to DeferredRecomputeAllProximities.
type PairFilter func(a, b any) bool

// PairCallback receives the user payloads of a pair entering or leaving
// the pair set
type PairCallback func(a, b any)

// proxyRecord is the broad-phase bookkeeping for one tracked object
type proxyRecord struct {
	leaf     LeafID
	exact    shape.AABB
	loosened shape.AABB
	data     any

	// false until the deferred insertion is applied by Update
	tracked bool
}

type refitRequest struct {
	handle ProxyHandle
	aabb   shape.AABB
}

type removeRequest struct {
	handle    ProxyHandle
	onRemoved PairCallback
}

// BroadPhase maintains, over a DBVT of loosened AABBs, the set of proxy
// pairs whose volumes overlap and that pass the admission filter.
//
// All mutating operations are deferred: they only record work, and Update
// applies everything in one pass, streaming pair births and deaths to the
// supplied callbacks. The loosening margin absorbs small motions so that
// most refit requests resolve to a containment test and no tree surgery.
type BroadPhase struct {
	tree   *DBVT
	margin float64

	proxies   map[ProxyHandle]*proxyRecord
	nextProxy ProxyHandle

	toInsert []ProxyHandle
	toRefit  []refitRequest
	toRemove []removeRequest

	pairs        map[pairKey]pairAge
	recomputeAll bool
}

// NewBroadPhase creates an empty broad phase with the given loosening margin
func NewBroadPhase(margin float64) *BroadPhase {
	if margin < 0 {
		panic("plume: broad phase margin must be >= 0")
	}
	return &BroadPhase{
		tree:    NewDBVT(),
		margin:  margin,
		proxies: map[ProxyHandle]*proxyRecord{},
		pairs:   map[pairKey]pairAge{},
	}
}

// Margin returns the loosening margin
func (bp *BroadPhase) Margin() float64 { return bp.margin }

// CreateProxy allocates a proxy for the given exact bounding volume and
// payload. The proxy only starts being tracked at the next Update.
func (bp *BroadPhase) CreateProxy(bv shape.AABB, data any) ProxyHandle {
	handle := bp.nextProxy
	bp.nextProxy++

	bp.proxies[handle] = &proxyRecord{
		leaf:     nullNode,
		exact:    bv,
		loosened: bv.Loosened(bp.margin),
		data:     data,
	}
	bp.toInsert = append(bp.toInsert, handle)

	return handle
}

// Remove marks proxies for deletion. At the next Update their leaves are
// removed and onRemoved is invoked for every pair they were part of.
func (bp *BroadPhase) Remove(handles []ProxyHandle, onRemoved PairCallback) {
	for _, handle := range handles {
		if _, ok := bp.proxies[handle]; !ok {
			panic("plume: unknown broad phase proxy")
		}
		bp.toRemove = append(bp.toRemove, removeRequest{handle: handle, onRemoved: onRemoved})
	}
}

// DeferredSetBoundingVolume queues a refit request with a new exact bounding
// volume, effective at the next Update
func (bp *BroadPhase) DeferredSetBoundingVolume(handle ProxyHandle, bv shape.AABB) {
	if _, ok := bp.proxies[handle]; !ok {
		panic("plume: unknown broad phase proxy")
	}
	bp.toRefit = append(bp.toRefit, refitRequest{handle: handle, aabb: bv})
}

// DeferredRecomputeAllProximities forces the next Update to re-evaluate
// every pair against the admission filter and to re-report the accepted
// ones as new. Call it after the filter semantics changed.
func (bp *BroadPhase) DeferredRecomputeAllProximities() {
	bp.recomputeAll = true
}

// NumInterferences returns the current size of the pair set
func (bp *BroadPhase) NumInterferences() int { return len(bp.pairs) }

// Update applies every deferred operation and refreshes the pair set.
//
// filter is consulted once per candidate pair; accepted births are streamed
// to onNew, and deaths caused by separation or by a filter change are
// streamed to onRemoved (deaths caused by proxy removal go to the callback
// supplied to Remove).
func (bp *BroadPhase) Update(filter PairFilter, onNew, onRemoved PairCallback) {
	dirty := map[ProxyHandle]bool{}

	// 1. Removals: drop the leaf, then kill every pair involving the proxy
	for _, req := range bp.toRemove {
		record, ok := bp.proxies[req.handle]
		if !ok {
			continue // removed twice in the same tick
		}

		for key := range bp.pairs {
			if key.a != req.handle && key.b != req.handle {
				continue
			}
			other := key.b
			if other == req.handle {
				other = key.a
			}
			if req.onRemoved != nil {
				bp.rememberPayloads(req.handle, other, req.onRemoved, key)
			}
			delete(bp.pairs, key)
		}

		if record.tracked {
			bp.tree.RemoveLeaf(record.leaf)
		}
		delete(bp.proxies, req.handle)
		delete(dirty, req.handle)
	}
	bp.toRemove = bp.toRemove[:0]

	// 2. Insertions
	for _, handle := range bp.toInsert {
		record, ok := bp.proxies[handle]
		if !ok {
			continue // created and removed before any update
		}
		record.leaf = bp.tree.Insert(record.loosened, handle)
		record.tracked = true
		dirty[handle] = true
	}
	bp.toInsert = bp.toInsert[:0]

	// 3. Refits: a new exact volume still inside the stored loosened one is
	// free; anything else re-inserts the leaf with a fresh loosened volume
	for _, req := range bp.toRefit {
		record, ok := bp.proxies[req.handle]
		if !ok || !record.tracked {
			if ok {
				record.exact = req.aabb
				record.loosened = req.aabb.Loosened(bp.margin)
			}
			continue
		}

		record.exact = req.aabb
		if record.loosened.Contains(req.aabb) {
			continue
		}

		record.loosened = req.aabb.Loosened(bp.margin)
		bp.tree.Refit(record.leaf, record.loosened)
		dirty[req.handle] = true
	}
	bp.toRefit = bp.toRefit[:0]

	if bp.recomputeAll {
		for handle, record := range bp.proxies {
			if record.tracked {
				dirty[handle] = true
			}
		}
	}

	// 4. Candidate discovery around every dirty proxy
	seen := map[pairKey]bool{}
	for handle := range dirty {
		record := bp.proxies[handle]

		bp.tree.QueryAABB(record.loosened, func(data any) bool {
			other := data.(ProxyHandle)
			if other == handle {
				return true
			}

			key := makePairKey(handle, other)
			if seen[key] {
				return true
			}
			seen[key] = true

			otherData := bp.proxies[other].data

			if _, exists := bp.pairs[key]; exists {
				if bp.recomputeAll {
					// The filter may have changed: re-run it and
					// re-report survivors as new births
					if filter == nil || filter(record.data, otherData) {
						if onNew != nil {
							onNew(record.data, otherData)
						}
						bp.pairs[key] = pairNew
					} else {
						if onRemoved != nil {
							onRemoved(record.data, otherData)
						}
						delete(bp.pairs, key)
					}
				}
				return true
			}

			if filter == nil || filter(record.data, otherData) {
				bp.pairs[key] = pairNew
				if onNew != nil {
					onNew(record.data, otherData)
				}
			}
			return true
		})
	}

	// 5. Separation clean-up: pairs touching a dirty proxy whose loosened
	// volumes no longer overlap are dead
	for key := range bp.pairs {
		if !dirty[key.a] && !dirty[key.b] {
			continue
		}
		if seen[key] {
			continue
		}

		recordA := bp.proxies[key.a]
		recordB := bp.proxies[key.b]
		if recordA.loosened.Overlaps(recordB.loosened) {
			continue
		}

		if onRemoved != nil {
			onRemoved(recordA.data, recordB.data)
		}
		delete(bp.pairs, key)
	}

	// 6. Promote the newborns
	for key, age := range bp.pairs {
		if age == pairNew {
			bp.pairs[key] = pairPersisting
		}
	}
	bp.recomputeAll = false
}

// rememberPayloads fires cb with the payloads of both sides of a dying pair
func (bp *BroadPhase) rememberPayloads(removed, other ProxyHandle, cb PairCallback, key pairKey) {
	removedData := bp.proxies[removed].data

	otherRecord, ok := bp.proxies[other]
	if !ok {
		return // the other side was already removed this tick
	}

	if key.a == removed {
		cb(removedData, otherRecord.data)
	} else {
		cb(otherRecord.data, removedData)
	}
}

// InterferencesWithAABB visits the payload of every tracked proxy whose
// loosened volume overlaps the given AABB
func (bp *BroadPhase) InterferencesWithAABB(aabb shape.AABB, visit Visitor) {
	bp.tree.QueryAABB(aabb, bp.payloadVisitor(visit))
}

// InterferencesWithRay visits the payload of every tracked proxy whose
// loosened volume is hit by the ray
func (bp *BroadPhase) InterferencesWithRay(ray shape.Ray, visit Visitor) {
	bp.tree.QueryRay(ray, bp.payloadVisitor(visit))
}

// InterferencesWithPoint visits the payload of every tracked proxy whose
// loosened volume contains the point
func (bp *BroadPhase) InterferencesWithPoint(point mgl64.Vec3, visit Visitor) {
	bp.tree.QueryPoint(point, bp.payloadVisitor(visit))
}

func (bp *BroadPhase) payloadVisitor(visit Visitor) Visitor {
	return func(data any) bool {
		return visit(bp.proxies[data.(ProxyHandle)].data)
	}
}

// ProxyBoundingVolume returns the loosened volume currently stored for a
// proxy, mostly useful to tests and debug overlays
func (bp *BroadPhase) ProxyBoundingVolume(handle ProxyHandle) (shape.AABB, bool) {
	record, ok := bp.proxies[handle]
	if !ok || !record.tracked {
		return shape.AABB{}, false
	}
	return bp.tree.LeafAABB(record.leaf), true
}
