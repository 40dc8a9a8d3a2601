package gjk

import (
	"testing"

	"github.com/akmonengine/plume/shape"
	"github.com/go-gl/mathgl/mgl64"
)

func ballProbe(centerA mgl64.Vec3, radiusA float64, centerB mgl64.Vec3, radiusB float64) Probe {
	return NewProbe(
		&shape.Ball{Radius: radiusA}, shape.Transform{Position: centerA, Rotation: mgl64.QuatIdent()},
		&shape.Ball{Radius: radiusB}, shape.Transform{Position: centerB, Rotation: mgl64.QuatIdent()},
	)
}

func TestIntersectBalls(t *testing.T) {
	tests := []struct {
		name    string
		centerB mgl64.Vec3
		want    bool
	}{
		{"overlapping", mgl64.Vec3{1.5, 0, 0}, true},
		{"deeply overlapping", mgl64.Vec3{0.1, 0, 0}, true},
		{"separated", mgl64.Vec3{3, 0, 0}, false},
		{"far apart diagonally", mgl64.Vec3{5, 5, 5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := ballProbe(mgl64.Vec3{0, 0, 0}, 1, tt.centerB, 1)
			var simplex Simplex
			if got := probe.Intersect(&simplex); got != tt.want {
				t.Errorf("Intersect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntersectIdenticalCenters(t *testing.T) {
	probe := ballProbe(mgl64.Vec3{1, 1, 1}, 1, mgl64.Vec3{1, 1, 1}, 1)
	var simplex Simplex
	if !probe.Intersect(&simplex) {
		t.Error("coincident balls must intersect")
	}
}

func TestIntersectDilated(t *testing.T) {
	// Gap de 1 entre les surfaces
	base := ballProbe(mgl64.Vec3{0, 0, 0}, 1, mgl64.Vec3{3, 0, 0}, 1)

	var simplex Simplex
	if base.Intersect(&simplex) {
		t.Fatal("raw probe should be separated")
	}

	simplex.Reset()
	if !base.Dilated(0.6, 0.6).Intersect(&simplex) {
		t.Error("dilation larger than the gap should make the probe intersect")
	}

	simplex.Reset()
	if base.Dilated(0.2, 0.2).Intersect(&simplex) {
		t.Error("dilation smaller than the gap should stay separated")
	}
}

func TestIntersectCuboids(t *testing.T) {
	cuboid := &shape.Cuboid{HalfExtents: mgl64.Vec3{1, 1, 1}}

	t.Run("overlapping", func(t *testing.T) {
		probe := NewProbe(
			cuboid, shape.Translation(0, 0, 0),
			cuboid, shape.Translation(1.5, 0.5, 0),
		)
		var simplex Simplex
		if !probe.Intersect(&simplex) {
			t.Error("overlapping cuboids must intersect")
		}
		if simplex.Count != 4 {
			t.Errorf("simplex.Count = %d, want a full tetrahedron for EPA", simplex.Count)
		}
	})

	t.Run("separated", func(t *testing.T) {
		probe := NewProbe(
			cuboid, shape.Translation(0, 0, 0),
			cuboid, shape.Translation(0, 2.5, 0),
		)
		var simplex Simplex
		if probe.Intersect(&simplex) {
			t.Error("separated cuboids must not intersect")
		}
	})
}

func TestIntersectCuboidBall(t *testing.T) {
	probe := NewProbe(
		&shape.Cuboid{HalfExtents: mgl64.Vec3{1, 1, 1}}, shape.Translation(0, 0, 0),
		&shape.Ball{Radius: 0.5}, shape.Translation(1.2, 0, 0),
	)
	var simplex Simplex
	if !probe.Intersect(&simplex) {
		t.Error("ball poking into the cuboid face must intersect")
	}

	far := NewProbe(
		&shape.Cuboid{HalfExtents: mgl64.Vec3{1, 1, 1}}, shape.Translation(0, 0, 0),
		&shape.Ball{Radius: 0.5}, shape.Translation(2, 0, 0),
	)
	simplex.Reset()
	if far.Intersect(&simplex) {
		t.Error("ball past the face must not intersect")
	}
}

func TestSupportTracksWitnesses(t *testing.T) {
	probe := ballProbe(mgl64.Vec3{0, 0, 0}, 1, mgl64.Vec3{4, 0, 0}, 1)
	vertex := probe.Support(mgl64.Vec3{1, 0, 0})

	if vertex.A.Sub(mgl64.Vec3{1, 0, 0}).Len() > 1e-9 {
		t.Errorf("witness A = %v, want (1, 0, 0)", vertex.A)
	}
	if vertex.B.Sub(mgl64.Vec3{3, 0, 0}).Len() > 1e-9 {
		t.Errorf("witness B = %v, want (3, 0, 0)", vertex.B)
	}
	if vertex.P.Sub(vertex.A.Sub(vertex.B)).Len() > 1e-12 {
		t.Error("P must equal A - B")
	}
}
