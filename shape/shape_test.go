package shape

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func vecNear(a, b mgl64.Vec3, tol float64) bool {
	return a.Sub(b).Len() <= tol
}

func TestBallComputeAABB(t *testing.T) {
	ball := &Ball{Radius: 2}
	aabb := ball.ComputeAABB(Translation(1, -1, 3))

	wantMin := mgl64.Vec3{-1, -3, 1}
	wantMax := mgl64.Vec3{3, 1, 5}
	if !vecNear(aabb.Min, wantMin, 1e-12) || !vecNear(aabb.Max, wantMax, 1e-12) {
		t.Errorf("ComputeAABB() = %v, want [%v, %v]", aabb, wantMin, wantMax)
	}
}

func TestBallSupport(t *testing.T) {
	ball := &Ball{Radius: 1.5}

	support := ball.Support(mgl64.Vec3{0, 10, 0})
	if !vecNear(support, mgl64.Vec3{0, 1.5, 0}, 1e-12) {
		t.Errorf("Support(+y) = %v, want (0, 1.5, 0)", support)
	}

	diag := ball.Support(mgl64.Vec3{1, 1, 1})
	if math.Abs(diag.Len()-1.5) > 1e-12 {
		t.Errorf("Support(diagonal) should be on the sphere, |s| = %v", diag.Len())
	}
}

func TestCuboidComputeAABB(t *testing.T) {
	cuboid := &Cuboid{HalfExtents: mgl64.Vec3{1, 2, 3}}

	t.Run("axis aligned", func(t *testing.T) {
		aabb := cuboid.ComputeAABB(Translation(10, 0, 0))
		if !vecNear(aabb.Min, mgl64.Vec3{9, -2, -3}, 1e-12) ||
			!vecNear(aabb.Max, mgl64.Vec3{11, 2, 3}, 1e-12) {
			t.Errorf("ComputeAABB() = %v", aabb)
		}
	})

	t.Run("rotated 90 degrees", func(t *testing.T) {
		// Quart de tour autour de z : les extents x et y s'échangent
		transform := Transform{
			Position: mgl64.Vec3{0, 0, 0},
			Rotation: mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}),
		}
		aabb := cuboid.ComputeAABB(transform)
		if !vecNear(aabb.Min, mgl64.Vec3{-2, -1, -3}, 1e-9) ||
			!vecNear(aabb.Max, mgl64.Vec3{2, 1, 3}, 1e-9) {
			t.Errorf("rotated ComputeAABB() = %v", aabb)
		}
	})
}

func TestCuboidSupport(t *testing.T) {
	cuboid := &Cuboid{HalfExtents: mgl64.Vec3{1, 2, 3}}

	support := cuboid.Support(mgl64.Vec3{1, -1, 0.5})
	want := mgl64.Vec3{1, -2, 3}
	if !vecNear(support, want, 1e-12) {
		t.Errorf("Support() = %v, want %v", support, want)
	}
}

func TestConvexHullSupportAndAABB(t *testing.T) {
	// Tétraèdre
	hull := &ConvexHull{Points: []mgl64.Vec3{
		{0, 0, 0},
		{2, 0, 0},
		{0, 2, 0},
		{0, 0, 2},
	}}

	support := hull.Support(mgl64.Vec3{1, 0.1, 0.1})
	if !vecNear(support, mgl64.Vec3{2, 0, 0}, 1e-12) {
		t.Errorf("Support(+x) = %v, want (2, 0, 0)", support)
	}

	aabb := hull.ComputeAABB(NewTransform())
	if !vecNear(aabb.Min, mgl64.Vec3{0, 0, 0}, 1e-12) ||
		!vecNear(aabb.Max, mgl64.Vec3{2, 2, 2}, 1e-12) {
		t.Errorf("ComputeAABB() = %v", aabb)
	}
}

func TestPlaneWorldNormal(t *testing.T) {
	plane := &Plane{Normal: mgl64.Vec3{0, 1, 0}, Offset: 0}

	transform := Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}),
	}
	normal := plane.WorldNormal(transform)
	if !vecNear(normal, mgl64.Vec3{-1, 0, 0}, 1e-9) {
		t.Errorf("WorldNormal() = %v, want (-1, 0, 0)", normal)
	}
}

func TestCompound(t *testing.T) {
	compound := NewCompound([]Part{
		{Delta: Translation(-2, 0, 0), Shape: &Ball{Radius: 1}},
		{Delta: Translation(2, 0, 0), Shape: &Ball{Radius: 1}},
	})

	if compound.Type() != TypeCompound {
		t.Errorf("Type() = %v, want TypeCompound", compound.Type())
	}

	aabb := compound.ComputeAABB(NewTransform())
	if !vecNear(aabb.Min, mgl64.Vec3{-3, -1, -1}, 1e-12) ||
		!vecNear(aabb.Max, mgl64.Vec3{3, 1, 1}, 1e-12) {
		t.Errorf("ComputeAABB() = %v", aabb)
	}

	// Les AABB locales des parties sont précalculées
	part0 := compound.PartAABB(0)
	if !vecNear(part0.Min, mgl64.Vec3{-3, -1, -1}, 1e-12) ||
		!vecNear(part0.Max, mgl64.Vec3{-1, 1, 1}, 1e-12) {
		t.Errorf("PartAABB(0) = %v", part0)
	}
}

func TestTransformInverse(t *testing.T) {
	transform := Transform{
		Position: mgl64.Vec3{1, 2, 3},
		Rotation: mgl64.QuatRotate(0.7, mgl64.Vec3{0, 1, 0}),
	}

	point := mgl64.Vec3{4, -5, 6}
	roundTrip := transform.Inverse().Apply(transform.Apply(point))
	if !vecNear(roundTrip, point, 1e-9) {
		t.Errorf("inverse round trip = %v, want %v", roundTrip, point)
	}
}

func TestTransformMul(t *testing.T) {
	a := Translation(1, 0, 0)
	b := Transform{
		Position: mgl64.Vec3{0, 2, 0},
		Rotation: mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}),
	}

	// (a * b) applique b d'abord, puis a
	point := mgl64.Vec3{1, 0, 0}
	got := a.Mul(b).Apply(point)
	want := a.Apply(b.Apply(point))
	if !vecNear(got, want, 1e-9) {
		t.Errorf("Mul().Apply() = %v, want %v", got, want)
	}
}
