package shape

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a rigid isometry: a rotation followed by a translation
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
	}
}

// Translation creates a transform with no rotation
func Translation(x, y, z float64) Transform {
	return Transform{
		Position: mgl64.Vec3{x, y, z},
		Rotation: mgl64.QuatIdent(),
	}
}

// Apply transforms a point from local to world space
func (t Transform) Apply(point mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(point).Add(t.Position)
}

// ApplyVector rotates a vector from local to world space, ignoring the translation
func (t Transform) ApplyVector(v mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(v)
}

// Inverse returns the transform mapping world space back to local space
func (t Transform) Inverse() Transform {
	inv := t.Rotation.Conjugate()
	return Transform{
		Position: inv.Rotate(t.Position.Mul(-1)),
		Rotation: inv,
	}
}

// Mul composes two transforms: (t * other) applies other first, then t
func (t Transform) Mul(other Transform) Transform {
	return Transform{
		Position: t.Apply(other.Position),
		Rotation: t.Rotation.Mul(other.Rotation).Normalize(),
	}
}
