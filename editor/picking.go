package editor

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/rtx/component"
	"github.com/plus3/rtx/ecs"
	"github.com/plus3/rtx/resource"
)

// Ray is a half line in world space. Dir is normalized.
type Ray struct {
	Origin mgl32.Vec3
	Dir    mgl32.Vec3
}

// ScreenRay unprojects the viewport pixel (x, y), measured from the top left,
// into a world space ray through the near and far planes.
func ScreenRay(view, projection mgl32.Mat4, x, y, width, height float32) (Ray, bool) {
	winY := height - y
	near, err := mgl32.UnProject(mgl32.Vec3{x, winY, 0}, view, projection, 0, 0, int(width), int(height))
	if err != nil {
		return Ray{}, false
	}
	far, err := mgl32.UnProject(mgl32.Vec3{x, winY, 1}, view, projection, 0, 0, int(width), int(height))
	if err != nil {
		return Ray{}, false
	}
	dir := far.Sub(near)
	if dir.Len() == 0 {
		return Ray{}, false
	}
	return Ray{Origin: near, Dir: dir.Normalize()}, true
}

// WorldToScreen projects p to viewport pixels measured from the top left. It
// fails for points behind the camera.
func WorldToScreen(viewProjection mgl32.Mat4, p mgl32.Vec3, width, height float32) (float32, float32, bool) {
	clip := viewProjection.Mul4x1(p.Vec4(1))
	if clip.W() <= 1e-6 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	return (ndc.X() + 1) / 2 * width, (1 - ndc.Y()) / 2 * height, true
}

// unitBounds stands in for entities without a model.
var unitBounds = resource.Bounds{Min: mgl32.Vec3{-0.5, -0.5, -0.5}, Max: mgl32.Vec3{0.5, 0.5, 0.5}}

// WorldBounds returns the world space box of an entity with a transform: its
// model's bounds when it has one, a unit box around its origin otherwise.
func WorldBounds(e *ecs.Entity) (resource.Bounds, bool) {
	t, ok := ecs.GetComponent[*component.Transform](e)
	if !ok {
		return resource.Bounds{}, false
	}
	local := unitBounds
	if m, ok := ecs.GetComponent[*component.Model](e); ok && m.Resource() != nil && len(m.Resource().Meshes()) > 0 {
		local = m.Resource().Bounds()
	}
	return transformBounds(local, t.World()), true
}

func transformBounds(b resource.Bounds, m mgl32.Mat4) resource.Bounds {
	inf := float32(math.Inf(1))
	out := resource.Bounds{Min: mgl32.Vec3{inf, inf, inf}, Max: mgl32.Vec3{-inf, -inf, -inf}}
	for i := range 8 {
		corner := mgl32.Vec3{b.Min.X(), b.Min.Y(), b.Min.Z()}
		if i&1 != 0 {
			corner[0] = b.Max.X()
		}
		if i&2 != 0 {
			corner[1] = b.Max.Y()
		}
		if i&4 != 0 {
			corner[2] = b.Max.Z()
		}
		p := mgl32.TransformCoordinate(corner, m)
		for axis := range 3 {
			out.Min[axis] = min(out.Min[axis], p[axis])
			out.Max[axis] = max(out.Max[axis], p[axis])
		}
	}
	return out
}

// Intersect returns the distance along r to the box, using the slab test.
func (r Ray) Intersect(b resource.Bounds) (float32, bool) {
	tmin, tmax := float32(math.Inf(-1)), float32(math.Inf(1))
	for axis := range 3 {
		if r.Dir[axis] == 0 {
			if r.Origin[axis] < b.Min[axis] || r.Origin[axis] > b.Max[axis] {
				return 0, false
			}
			continue
		}
		inv := 1 / r.Dir[axis]
		t1 := (b.Min[axis] - r.Origin[axis]) * inv
		t2 := (b.Max[axis] - r.Origin[axis]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 {
		return 0, false
	}
	return max(tmin, 0), true
}

// Pick returns the nearest gameplay entity hit by r. Editor-only entities are
// never picked.
func Pick(storage *ecs.Storage, r Ray) (*ecs.Entity, bool) {
	var best *ecs.Entity
	bestDist := float32(math.Inf(1))
	for e := range storage.Entities() {
		if e.EditorOnly() {
			continue
		}
		bounds, ok := WorldBounds(e)
		if !ok {
			continue
		}
		if d, ok := r.Intersect(bounds); ok && d > 0 && d < bestDist {
			best, bestDist = e, d
		}
	}
	return best, best != nil
}
