package epa

import (
	"math"
	"testing"

	"github.com/akmonengine/plume/gjk"
	"github.com/akmonengine/plume/shape"
	"github.com/go-gl/mathgl/mgl64"
)

func penetrate(t *testing.T, probe gjk.Probe) Result {
	t.Helper()

	var simplex gjk.Simplex
	if !probe.Intersect(&simplex) {
		t.Fatal("probe does not intersect, EPA is meaningless")
	}

	result, err := Penetration(probe, &simplex)
	if err != nil {
		t.Fatalf("Penetration() error: %v", err)
	}
	return result
}

func TestPenetrationBalls(t *testing.T) {
	probe := gjk.NewProbe(
		&shape.Ball{Radius: 1}, shape.Translation(0, 0, 0),
		&shape.Ball{Radius: 1}, shape.Translation(1, 0, 0),
	)
	result := penetrate(t, probe)

	// Profondeur attendue : 1 + 1 - 1 = 1
	if math.Abs(result.Depth-1) > 1e-2 {
		t.Errorf("Depth = %v, want 1", result.Depth)
	}
	if result.Normal.Sub(mgl64.Vec3{1, 0, 0}).Len() > 1e-2 {
		t.Errorf("Normal = %v, want (1, 0, 0)", result.Normal)
	}
	if result.WitnessA.Sub(mgl64.Vec3{1, 0, 0}).Len() > 5e-2 {
		t.Errorf("WitnessA = %v, want (1, 0, 0)", result.WitnessA)
	}
	if result.WitnessB.Sub(mgl64.Vec3{0, 0, 0}).Len() > 5e-2 {
		t.Errorf("WitnessB = %v, want (0, 0, 0)", result.WitnessB)
	}
}

func TestPenetrationCuboids(t *testing.T) {
	cuboid := &shape.Cuboid{HalfExtents: mgl64.Vec3{1, 1, 1}}
	probe := gjk.NewProbe(
		cuboid, shape.Translation(0, 0, 0),
		cuboid, shape.Translation(1.8, 0, 0),
	)
	result := penetrate(t, probe)

	// Deux cubes unitaires se recouvrant de 0.2 sur x
	if math.Abs(result.Depth-0.2) > 1e-6 {
		t.Errorf("Depth = %v, want 0.2", result.Depth)
	}
	if result.Normal.Sub(mgl64.Vec3{1, 0, 0}).Len() > 1e-6 {
		t.Errorf("Normal = %v, want (1, 0, 0)", result.Normal)
	}

	// Les témoins doivent être sur les faces en vis-à-vis
	if math.Abs(result.WitnessA.X()-1) > 1e-6 {
		t.Errorf("WitnessA.X = %v, want 1", result.WitnessA.X())
	}
	if math.Abs(result.WitnessB.X()-0.8) > 1e-6 {
		t.Errorf("WitnessB.X = %v, want 0.8", result.WitnessB.X())
	}
}

func TestPenetrationDepthMatchesSeparation(t *testing.T) {
	// Après séparation de Depth le long de Normal, les objets doivent être
	// tout juste disjoints
	probe := gjk.NewProbe(
		&shape.Ball{Radius: 1}, shape.Translation(0, 0, 0),
		&shape.Cuboid{HalfExtents: mgl64.Vec3{1, 1, 1}}, shape.Translation(1.5, 0.3, 0),
	)
	result := penetrate(t, probe)

	if result.Depth <= 0 {
		t.Fatalf("Depth = %v, want > 0", result.Depth)
	}

	separated := gjk.NewProbe(
		&shape.Ball{Radius: 1}, shape.Translation(0, 0, 0),
		&shape.Cuboid{HalfExtents: mgl64.Vec3{1, 1, 1}},
		shape.Transform{
			Position: mgl64.Vec3{1.5, 0.3, 0}.Add(result.Normal.Mul(result.Depth + 1e-3)),
			Rotation: mgl64.QuatIdent(),
		},
	)
	var simplex gjk.Simplex
	if separated.Intersect(&simplex) {
		t.Error("translating B by Normal*Depth should separate the shapes")
	}
}

func TestPenetrationDilated(t *testing.T) {
	// Surfaces séparées de 0.5, dilatation de 0.5 par côté : la profondeur
	// dilatée doit valoir environ 1 - 0.5 = 0.5
	probe := gjk.NewProbe(
		&shape.Ball{Radius: 1}, shape.Translation(0, 0, 0),
		&shape.Ball{Radius: 1}, shape.Translation(2.5, 0, 0),
	).Dilated(0.5, 0.5)
	result := penetrate(t, probe)

	if math.Abs(result.Depth-0.5) > 1e-2 {
		t.Errorf("dilated Depth = %v, want 0.5", result.Depth)
	}
}

func TestPenetrationDegenerateSimplexIsInflated(t *testing.T) {
	// Un simplexe incomplet (contact coïncident) doit être regonflé en
	// tétraèdre plutôt que d'échouer
	probe := gjk.NewProbe(
		&shape.Ball{Radius: 1}, shape.Translation(0, 0, 0),
		&shape.Ball{Radius: 1}, shape.Translation(0, 0, 0),
	)
	var simplex gjk.Simplex
	if !probe.Intersect(&simplex) {
		t.Fatal("coincident balls must intersect")
	}

	result, err := Penetration(probe, &simplex)
	if err != nil {
		t.Fatalf("Penetration() error: %v", err)
	}
	if math.Abs(result.Depth-2) > 5e-2 {
		t.Errorf("Depth = %v, want 2 for coincident unit balls", result.Depth)
	}
}
