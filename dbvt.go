package plume

import (
	"github.com/akmonengine/plume/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// LeafID identifies a leaf of a DBVT. Ids are indices into the tree's node
// arena and stay valid until RemoveLeaf.
type LeafID int32

const nullNode LeafID = -1

// dbvtNode is one slot of the node arena. Parent, children and the free-list
// link are arena indices, never pointers, so the ownership graph stays
// acyclic even though logical links go both ways.
type dbvtNode struct {
	aabb shape.AABB
	data any

	parent LeafID
	child1 LeafID
	child2 LeafID

	// next free slot when the node is on the free list
	next LeafID

	// -1 = free, 0 = leaf, > 0 = internal
	height int32
}

func (n *dbvtNode) isLeaf() bool {
	return n.child1 == nullNode
}

// DBVT is a dynamic bounding-volume tree: a binary tree of AABBs whose
// leaves carry opaque payloads. It supports incremental insertion and
// removal, containment-guarded refits, and pruned spatial queries.
//
// Invariants: the root has no parent, every other node has exactly one,
// and every internal AABB encloses the AABBs of its two children.
type DBVT struct {
	nodes    []dbvtNode
	root     LeafID
	freeList LeafID
	count    int
}

// NewDBVT creates an empty tree
func NewDBVT() *DBVT {
	return &DBVT{
		root:     nullNode,
		freeList: nullNode,
	}
}

// Len returns the number of leaves in the tree
func (t *DBVT) Len() int { return t.count }

func (t *DBVT) allocNode() LeafID {
	if t.freeList == nullNode {
		t.nodes = append(t.nodes, dbvtNode{})
		return LeafID(len(t.nodes) - 1)
	}
	id := t.freeList
	t.freeList = t.nodes[id].next
	return id
}

func (t *DBVT) freeNode(id LeafID) {
	t.nodes[id] = dbvtNode{
		parent: nullNode,
		child1: nullNode,
		child2: nullNode,
		next:   t.freeList,
		height: -1,
	}
	t.freeList = id
}

func (t *DBVT) leaf(id LeafID) *dbvtNode {
	if id < 0 || int(id) >= len(t.nodes) || t.nodes[id].height != 0 {
		panic("plume: unknown DBVT leaf id")
	}
	return &t.nodes[id]
}

// Insert adds a leaf with the given AABB and payload and returns its id
func (t *DBVT) Insert(aabb shape.AABB, data any) LeafID {
	id := t.allocNode()
	t.nodes[id] = dbvtNode{
		aabb:   aabb,
		data:   data,
		parent: nullNode,
		child1: nullNode,
		child2: nullNode,
		next:   nullNode,
	}
	t.count++
	t.insertLeaf(id)
	return id
}

// insertLeaf descends from the root choosing, at every internal node, the
// child whose union with the new leaf grows the least in surface area,
// ties broken by the smaller resulting surface area. The new leaf is then
// paired with the chosen leaf under a fresh internal node, and ancestor
// AABBs are refitted bottom-up.
func (t *DBVT) insertLeaf(leaf LeafID) {
	if t.root == nullNode {
		t.root = leaf
		t.nodes[leaf].parent = nullNode
		return
	}

	leafAABB := t.nodes[leaf].aabb

	sibling := t.root
	for !t.nodes[sibling].isLeaf() {
		child1 := t.nodes[sibling].child1
		child2 := t.nodes[sibling].child2

		area1 := t.nodes[child1].aabb.SurfaceArea()
		area2 := t.nodes[child2].aabb.SurfaceArea()
		merged1 := t.nodes[child1].aabb.Merged(leafAABB).SurfaceArea()
		merged2 := t.nodes[child2].aabb.Merged(leafAABB).SurfaceArea()

		cost1 := merged1 - area1
		cost2 := merged2 - area2

		switch {
		case cost1 < cost2:
			sibling = child1
		case cost2 < cost1:
			sibling = child2
		case merged1 <= merged2:
			sibling = child1
		default:
			sibling = child2
		}
	}

	// Create a new internal node parenting the old leaf and the new one
	oldParent := t.nodes[sibling].parent
	newParent := t.allocNode()
	t.nodes[newParent] = dbvtNode{
		aabb:   leafAABB.Merged(t.nodes[sibling].aabb),
		parent: oldParent,
		child1: sibling,
		child2: leaf,
		next:   nullNode,
		height: 1,
	}
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent == nullNode {
		t.root = newParent
	} else if t.nodes[oldParent].child1 == sibling {
		t.nodes[oldParent].child1 = newParent
	} else {
		t.nodes[oldParent].child2 = newParent
	}

	t.refitAncestors(newParent)
}

// refitAncestors walks up from the given node, re-merging child AABBs and
// recomputing heights
func (t *DBVT) refitAncestors(id LeafID) {
	for id != nullNode {
		n := &t.nodes[id]
		c1 := &t.nodes[n.child1]
		c2 := &t.nodes[n.child2]
		n.aabb = c1.aabb.Merged(c2.aabb)
		n.height = 1 + max(c1.height, c2.height)
		id = n.parent
	}
}

// detachLeaf removes a leaf from the tree structure without freeing its
// slot: its parent is replaced by its sibling and the ancestors refitted.
func (t *DBVT) detachLeaf(leaf LeafID) {
	if t.root == leaf {
		t.root = nullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent

	var sibling LeafID
	if t.nodes[parent].child1 == leaf {
		sibling = t.nodes[parent].child2
	} else {
		sibling = t.nodes[parent].child1
	}

	if grandParent == nullNode {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
	} else {
		if t.nodes[grandParent].child1 == parent {
			t.nodes[grandParent].child1 = sibling
		} else {
			t.nodes[grandParent].child2 = sibling
		}
		t.nodes[sibling].parent = grandParent
		t.refitAncestors(grandParent)
	}

	t.freeNode(parent)
	t.nodes[leaf].parent = nullNode
}

// RemoveLeaf detaches a leaf and frees its slot. Panics on an unknown leaf id.
func (t *DBVT) RemoveLeaf(leaf LeafID) {
	t.leaf(leaf)
	t.detachLeaf(leaf)
	t.freeNode(leaf)
	t.count--
}

// Refit updates the AABB of a leaf. When the new AABB is already contained
// in the stored one nothing happens and Refit returns false (the temporal
// coherence win); otherwise the leaf is detached and re-inserted with the
// new AABB, keeping its id, and Refit returns true.
func (t *DBVT) Refit(leaf LeafID, aabb shape.AABB) bool {
	n := t.leaf(leaf)
	if n.aabb.Contains(aabb) {
		return false
	}

	t.detachLeaf(leaf)
	t.nodes[leaf].aabb = aabb
	t.insertLeaf(leaf)
	return true
}

// LeafAABB returns the AABB stored for a leaf
func (t *DBVT) LeafAABB(leaf LeafID) shape.AABB {
	return t.leaf(leaf).aabb
}

// LeafData returns the payload stored for a leaf
func (t *DBVT) LeafData(leaf LeafID) any {
	return t.leaf(leaf).data
}

// Visitor receives matching leaf payloads during a query.
// Returning false stops the query early.
type Visitor func(data any) bool

// QueryAABB visits every leaf whose AABB overlaps the given one
func (t *DBVT) QueryAABB(aabb shape.AABB, visit Visitor) {
	t.query(func(node shape.AABB) bool { return node.Overlaps(aabb) }, visit)
}

// QueryRay visits every leaf whose AABB is hit by the ray
func (t *DBVT) QueryRay(ray shape.Ray, visit Visitor) {
	t.query(func(node shape.AABB) bool { return node.IntersectsRay(ray) }, visit)
}

// QueryPoint visits every leaf whose AABB contains the point
func (t *DBVT) QueryPoint(point mgl64.Vec3, visit Visitor) {
	t.query(func(node shape.AABB) bool { return node.ContainsPoint(point) }, visit)
}

// query descends the tree, pruning subtrees whose AABB fails the predicate
func (t *DBVT) query(overlaps func(shape.AABB) bool, visit Visitor) {
	if t.root == nullNode {
		return
	}

	stack := make([]LeafID, 0, 64)
	stack = append(stack, t.root)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[id]
		if !overlaps(n.aabb) {
			continue
		}

		if n.isLeaf() {
			if !visit(n.data) {
				return
			}
		} else {
			stack = append(stack, n.child1, n.child2)
		}
	}
}

// checkInvariants walks the whole tree verifying parent links and AABB
// enclosure. Used by tests.
func (t *DBVT) checkInvariants() bool {
	if t.root == nullNode {
		return t.count == 0
	}
	if t.nodes[t.root].parent != nullNode {
		return false
	}

	leaves := 0
	ok := true
	var walk func(id LeafID)
	walk = func(id LeafID) {
		n := &t.nodes[id]
		if n.isLeaf() {
			leaves++
			return
		}
		for _, child := range []LeafID{n.child1, n.child2} {
			if t.nodes[child].parent != id {
				ok = false
			}
			if !n.aabb.Contains(t.nodes[child].aabb) {
				ok = false
			}
			walk(child)
		}
	}
	walk(t.root)

	return ok && leaves == t.count
}
