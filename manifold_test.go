package plume

import (
	"math"
	"testing"

	"github.com/akmonengine/plume/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// stubPointGen replays a scripted single contact, like an analytic
// single-point generator would
type stubPointGen struct {
	out []Contact
}

func (s *stubPointGen) Update(ContactContext) bool { return true }
func (s *stubPointGen) Contacts() []Contact        { return s.out }

func identityCtx(prediction float64) ContactContext {
	return ContactContext{
		PosA:       shape.NewTransform(),
		PosB:       shape.NewTransform(),
		Prediction: prediction,
	}
}

func pointContact(x, z, depth float64) Contact {
	// Normale +y : World1 au-dessus, World2 en-dessous de depth
	return Contact{
		World1: mgl64.Vec3{x, 0, z},
		World2: mgl64.Vec3{x, -depth, z},
		Normal: mgl64.Vec3{0, 1, 0},
		Depth:  depth,
	}
}

func TestIncrementalManifoldAccumulates(t *testing.T) {
	stub := &stubPointGen{}
	manifold := NewIncrementalManifold(stub)
	ctx := identityCtx(0.1)

	points := []Contact{
		pointContact(0, 0, 0.05),
		pointContact(1, 0, 0.04),
		pointContact(0, 1, 0.03),
	}
	for _, c := range points {
		stub.out = []Contact{c}
		if !manifold.Update(ctx) {
			t.Fatal("Update() failed")
		}
	}

	if len(manifold.Contacts()) != 3 {
		t.Errorf("len(Contacts()) = %d, want 3", len(manifold.Contacts()))
	}
}

func TestIncrementalManifoldReplacesNearbyPoint(t *testing.T) {
	stub := &stubPointGen{}
	manifold := NewIncrementalManifold(stub)
	ctx := identityCtx(0.1)

	stub.out = []Contact{pointContact(0, 0, 0.05)}
	manifold.Update(ctx)
	// Presque au même endroit : doit remplacer, pas s'ajouter
	stub.out = []Contact{pointContact(0.001, 0, 0.06)}
	manifold.Update(ctx)

	if len(manifold.Contacts()) != 1 {
		t.Errorf("len(Contacts()) = %d, want 1 after replacement", len(manifold.Contacts()))
	}
}

func TestIncrementalManifoldReduction(t *testing.T) {
	stub := &stubPointGen{}
	manifold := NewIncrementalManifold(stub)
	ctx := identityCtx(0.2)

	// Six points d'appui, dont un nettement plus profond
	contacts := []Contact{
		pointContact(0, 0, 0.02),
		pointContact(1, 0, 0.03),
		pointContact(1, 1, 0.15), // le plus profond
		pointContact(0, 1, 0.04),
		pointContact(0.5, 0.5, 0.01),
		pointContact(0.2, 0.8, 0.02),
	}
	for _, c := range contacts {
		stub.out = []Contact{c}
		if !manifold.Update(ctx) {
			t.Fatal("Update() failed")
		}
	}

	got := manifold.Contacts()
	if len(got) != maxManifoldPoints {
		t.Fatalf("len(Contacts()) = %d, want %d", len(got), maxManifoldPoints)
	}

	// Le contact le plus profond est toujours conservé
	deepestKept := false
	for _, c := range got {
		if math.Abs(c.World1.X()-1) < 1e-9 && math.Abs(c.World1.Z()-1) < 1e-9 {
			deepestKept = true
		}
	}
	if !deepestKept {
		t.Error("the deepest contact must survive the reduction")
	}
}

func TestIncrementalManifoldDropsSeparatedPoints(t *testing.T) {
	stub := &stubPointGen{}
	manifold := NewIncrementalManifold(stub)
	ctx := identityCtx(0.05)

	stub.out = []Contact{pointContact(0, 0, 0.02)}
	manifold.Update(ctx)
	if len(manifold.Contacts()) != 1 {
		t.Fatal("expected one retained contact")
	}

	// L'objet B s'éloigne au-delà de la bande de prédiction
	stub.out = nil
	separated := ctx
	separated.PosB = shape.Translation(0, 0.2, 0)
	manifold.Update(separated)

	if len(manifold.Contacts()) != 0 {
		t.Errorf("len(Contacts()) = %d, want 0 after separation", len(manifold.Contacts()))
	}
}

func TestOneShotManifoldSamplesThenBehavesIncrementally(t *testing.T) {
	stub := &stubPointGen{out: []Contact{pointContact(0, 0, 0.05)}}
	manifold := NewOneShotManifold(stub)
	ctx := identityCtx(0.1)

	if !manifold.Update(ctx) {
		t.Fatal("Update() failed")
	}
	if len(manifold.Contacts()) == 0 {
		t.Fatal("one-shot must report the seed contact")
	}
	if manifold.armed {
		t.Error("one-shot must disarm after the first manifold")
	}

	// Séparation totale : l'état one-shot se réarme
	stub.out = nil
	separated := ctx
	separated.PosB = shape.Translation(0, 1, 0)
	manifold.Update(separated)

	if len(manifold.Contacts()) != 0 {
		t.Error("contacts should be gone after full separation")
	}
	if !manifold.armed {
		t.Error("one-shot must re-arm after full separation")
	}
}

func TestOneShotManifoldOnCuboids(t *testing.T) {
	// Deux cubes face contre face : l'échantillonnage par perturbation doit
	// produire un manifold multi-points dès le premier tick
	manifold := NewOneShotManifold(&convexConvexContact{})

	ctx := ContactContext{
		ShapeA:     &shape.Cuboid{HalfExtents: mgl64.Vec3{1, 1, 1}},
		PosA:       shape.Translation(0, 0, 0),
		ShapeB:     &shape.Cuboid{HalfExtents: mgl64.Vec3{1, 1, 1}},
		PosB:       shape.Translation(0, 1.95, 0),
		Prediction: 0.05,
	}

	if !manifold.Update(ctx) {
		t.Fatal("Update() failed")
	}

	contacts := manifold.Contacts()
	if len(contacts) < 2 {
		t.Errorf("len(Contacts()) = %d, want >= 2 for a conforming contact", len(contacts))
	}
	for _, c := range contacts {
		if math.Abs(c.Normal.Y()) < 0.9 {
			t.Errorf("contact normal %v should be close to ±y", c.Normal)
		}
	}
}
