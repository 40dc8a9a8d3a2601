package shape

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestOverlaps(t *testing.T) {
	a := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{2, 2, 2}}

	tests := []struct {
		name  string
		other AABB
		want  bool
	}{
		{"identical", a, true},
		{"contained", AABB{Min: mgl64.Vec3{0.5, 0.5, 0.5}, Max: mgl64.Vec3{1, 1, 1}}, true},
		{"partial overlap", AABB{Min: mgl64.Vec3{1, 1, 1}, Max: mgl64.Vec3{3, 3, 3}}, true},
		{"touching face", AABB{Min: mgl64.Vec3{2, 0, 0}, Max: mgl64.Vec3{4, 2, 2}}, true},
		{"touching edge", AABB{Min: mgl64.Vec3{2, 2, 0}, Max: mgl64.Vec3{4, 4, 2}}, true},
		{"separated x", AABB{Min: mgl64.Vec3{2.1, 0, 0}, Max: mgl64.Vec3{4, 2, 2}}, false},
		{"separated y", AABB{Min: mgl64.Vec3{0, 5, 0}, Max: mgl64.Vec3{2, 6, 2}}, false},
		{"separated z", AABB{Min: mgl64.Vec3{0, 0, -3}, Max: mgl64.Vec3{2, 2, -1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.other); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			// La relation est symétrique
			if got := tt.other.Overlaps(a); got != tt.want {
				t.Errorf("reverse Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	a := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{4, 4, 4}}

	inner := AABB{Min: mgl64.Vec3{1, 1, 1}, Max: mgl64.Vec3{3, 3, 3}}
	if !a.Contains(inner) {
		t.Error("Contains() should be true for a strictly inner box")
	}
	if !a.Contains(a) {
		t.Error("Contains() should be true for itself")
	}

	poking := AABB{Min: mgl64.Vec3{1, 1, 1}, Max: mgl64.Vec3{5, 3, 3}}
	if a.Contains(poking) {
		t.Error("Contains() should be false when the other box pokes out")
	}
}

func TestLoosened(t *testing.T) {
	a := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}
	loose := a.Loosened(0.5)

	want := AABB{Min: mgl64.Vec3{-0.5, -0.5, -0.5}, Max: mgl64.Vec3{1.5, 1.5, 1.5}}
	if loose != want {
		t.Errorf("Loosened(0.5) = %v, want %v", loose, want)
	}
	if !loose.Contains(a) {
		t.Error("a loosened AABB must contain the original")
	}
}

func TestMergedAndSurfaceArea(t *testing.T) {
	a := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}
	b := AABB{Min: mgl64.Vec3{2, 0, 0}, Max: mgl64.Vec3{3, 1, 1}}

	merged := a.Merged(b)
	want := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{3, 1, 1}}
	if merged != want {
		t.Errorf("Merged() = %v, want %v", merged, want)
	}

	// Boîte 3x1x1 : 2*(3 + 1 + 3) = 14
	if got := merged.SurfaceArea(); math.Abs(got-14) > 1e-12 {
		t.Errorf("SurfaceArea() = %v, want 14", got)
	}
}

func TestContainsPoint(t *testing.T) {
	a := AABB{Min: mgl64.Vec3{-1, -1, -1}, Max: mgl64.Vec3{1, 1, 1}}

	if !a.ContainsPoint(mgl64.Vec3{0, 0, 0}) {
		t.Error("center should be contained")
	}
	if !a.ContainsPoint(mgl64.Vec3{1, 1, 1}) {
		t.Error("corner should be contained")
	}
	if a.ContainsPoint(mgl64.Vec3{1.01, 0, 0}) {
		t.Error("outside point should not be contained")
	}
}

func TestIntersectsRay(t *testing.T) {
	a := AABB{Min: mgl64.Vec3{1, -1, -1}, Max: mgl64.Vec3{3, 1, 1}}

	tests := []struct {
		name string
		ray  Ray
		want bool
	}{
		{"straight hit", Ray{Origin: mgl64.Vec3{0, 0, 0}, Direction: mgl64.Vec3{1, 0, 0}}, true},
		{"pointing away", Ray{Origin: mgl64.Vec3{0, 0, 0}, Direction: mgl64.Vec3{-1, 0, 0}}, false},
		{"miss above", Ray{Origin: mgl64.Vec3{0, 2, 0}, Direction: mgl64.Vec3{1, 0, 0}}, false},
		{"diagonal hit", Ray{Origin: mgl64.Vec3{0, -0.5, 0}, Direction: mgl64.Vec3{2, 1, 0}}, true},
		{"starting inside", Ray{Origin: mgl64.Vec3{2, 0, 0}, Direction: mgl64.Vec3{0, 1, 0}}, true},
		{"parallel outside slab", Ray{Origin: mgl64.Vec3{0, 3, 0}, Direction: mgl64.Vec3{1, 0, 0}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.IntersectsRay(tt.ray); got != tt.want {
				t.Errorf("IntersectsRay() = %v, want %v", got, tt.want)
			}
		})
	}
}
