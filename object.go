// Package plume is a two-stage collision detection pipeline.
//
// A World owns a population of collision objects. A broad phase over a
// dynamic bounding-volume tree maintains the set of pairs whose loosened
// AABBs overlap; a narrow phase runs a persistent contact or proximity
// algorithm for each accepted pair and emits edge-triggered events when
// pairs start or stop touching. All mutations are deferred and applied
// atomically by World.Update.
package plume

import (
	"github.com/akmonengine/plume/shape"
)

// ObjectHandle identifies a collision object inside its world. Handles are
// stable for the whole life of the object and are never reused.
type ObjectHandle int

// ProxyHandle identifies an object inside the broad phase. It is distinct
// from the world-level handle and only meaningful to the broad phase.
type ProxyHandle int

// CollisionObject is one entry of the world: a posed shape with its
// filtering groups and the kind of geometric query requested for it.
type CollisionObject struct {
	handle ObjectHandle
	proxy  ProxyHandle

	position  shape.Transform
	shape     shape.Shape
	groups    CollisionGroups
	queryType QueryType

	data any
}

// Handle returns the world-scoped handle of the object
func (co *CollisionObject) Handle() ObjectHandle { return co.handle }

// Proxy returns the broad-phase handle of the object
func (co *CollisionObject) Proxy() ProxyHandle { return co.proxy }

// Position returns the current isometry of the object
func (co *CollisionObject) Position() shape.Transform { return co.position }

// Shape returns the shared shape of the object
func (co *CollisionObject) Shape() shape.Shape { return co.shape }

// Groups returns the collision groups of the object
func (co *CollisionObject) Groups() CollisionGroups { return co.groups }

// QueryType returns the geometric query requested for the object
func (co *CollisionObject) QueryType() QueryType { return co.queryType }

// Data returns the opaque user data attached to the object
func (co *CollisionObject) Data() any { return co.data }

// SetData replaces the user data. The pipeline itself never touches it.
func (co *CollisionObject) SetData(data any) { co.data = data }
