package plume

// Proximity is the three-state result of a proximity query
type Proximity int

const (
	// Disjoint: the objects are further apart than the sum of their margins
	Disjoint Proximity = iota
	// WithinMargin: the objects do not touch but are closer than the sum
	// of their margins
	WithinMargin
	// Intersecting: the objects are touching or penetrating
	Intersecting
)

func (p Proximity) String() string {
	switch p {
	case Intersecting:
		return "Intersecting"
	case WithinMargin:
		return "WithinMargin"
	default:
		return "Disjoint"
	}
}

type queryKind int

const (
	queryContacts queryKind = iota
	queryProximity
)

// QueryType selects the geometric query the narrow phase runs for an object.
//
// ContactsQuery requests full contact manifolds; the prediction distance
// extends the band within which the pair is considered in contact, so
// manifolds are available slightly before penetration. ProximityQuery
// requests only the three-state Proximity result relative to its margin.
//
// When the two objects of a pair request different query types, the pair is
// downgraded to the weaker one: any proximity side forces proximity
// semantics, with an effective margin equal to the sum of both values.
type QueryType struct {
	kind  queryKind
	value float64
}

// ContactsQuery requests full contact manifolds within the prediction band
func ContactsQuery(prediction float64) QueryType {
	return QueryType{kind: queryContacts, value: prediction}
}

// ProximityQuery requests a three-state proximity status within the margin
func ProximityQuery(margin float64) QueryType {
	return QueryType{kind: queryProximity, value: margin}
}

// IsContacts reports whether the query requests contact manifolds
func (q QueryType) IsContacts() bool { return q.kind == queryContacts }

// Value returns the prediction or margin distance of the query
func (q QueryType) Value() float64 { return q.value }

// effectiveWith combines the query types of the two objects of a pair:
// contacts only if both sides request contacts, the distances always add up.
func (q QueryType) effectiveWith(other QueryType) QueryType {
	kind := queryContacts
	if q.kind == queryProximity || other.kind == queryProximity {
		kind = queryProximity
	}
	return QueryType{kind: kind, value: q.value + other.value}
}
