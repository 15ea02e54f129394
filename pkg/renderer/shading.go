package renderer

import (
	"math"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/geometry"
)

// specularExponent is the Phong shininess shared by all materials
const specularExponent = 50

// nextRayID starts a new stamp generation, clearing the stamps on wrap-around
func (w *Worker) nextRayID() uint32 {
	w.rayID++
	if w.rayID == 0 {
		for i := range w.stamps {
			w.stamps[i] = 0
		}
		w.rayID = 1
	}
	w.rays++
	return w.rayID
}

// RayCast returns the nearest hit along the ray, skipping primitive exclude
// (-1 for none). Cells are visited front to back and the walk stops once the
// best hit lies within the current cell.
func (w *Worker) RayCast(ray core.Ray, exclude int) (geometry.HitRecord, bool) {
	f := w.frame
	tr, ok := f.grid.SetupRay(ray)
	if !ok {
		return geometry.HitRecord{}, false
	}

	id := w.nextRayID()
	best := geometry.HitRecord{T: math.Inf(1)}
	found := false
	for {
		for _, idx := range tr.Cell() {
			if int(idx) == exclude || w.stamps[idx] == id {
				continue
			}
			w.stamps[idx] = id
			w.tests++
			if hit, ok := f.primitives[idx].Hit(ray, f.epsilon, best.T); ok {
				best = hit
				best.Primitive = int(idx)
				found = true
			}
		}
		if found && best.T <= tr.TMax() {
			break
		}
		if !tr.Advance() {
			break
		}
	}
	return best, found
}

// occluded reports whether anything other than exclude blocks the ray before maxT
func (w *Worker) occluded(ray core.Ray, maxT float64, exclude int) bool {
	f := w.frame
	tr, ok := f.grid.SetupRay(ray)
	if !ok {
		return false
	}

	id := w.nextRayID()
	for {
		for _, idx := range tr.Cell() {
			if int(idx) == exclude || w.stamps[idx] == id {
				continue
			}
			w.stamps[idx] = id
			w.tests++
			if _, ok := f.primitives[idx].Hit(ray, f.epsilon, maxT); ok {
				return true
			}
		}
		if tr.TMax() >= maxT || !tr.Advance() {
			return false
		}
	}
}

// trace returns the color seen along a ray at the given recursion depth
func (w *Worker) trace(ray core.Ray, exclude, depth int) core.Vec3 {
	f := w.frame
	if depth > f.opts.MaxDepth {
		return f.background
	}
	hit, ok := w.RayCast(ray, exclude)
	if !ok {
		return f.background
	}
	return w.shade(ray, hit, depth)
}

// shade applies ambient, diffuse and specular lighting at a hit, then blends
// in transmission and reflection rays
func (w *Worker) shade(ray core.Ray, hit geometry.HitRecord, depth int) core.Vec3 {
	f := w.frame
	material := hit.Material
	if material == nil {
		material = geometry.DefaultMaterial()
	}

	view := ray.Direction.Normalize()
	normal := hit.Normal
	if normal.Dot(view) > 0 {
		normal = normal.Negate()
	}

	ao := 1.0
	if depth == 0 {
		ao = w.ambientOcclusion(hit.Point, normal, hit.Primitive)
	}
	lighting := material.Ambient * ao

	toLight := f.light.Subtract(hit.Point)
	distance := toLight.Length()
	lit := distance > 0
	var l core.Vec3
	if lit {
		l = toLight.Multiply(1 / distance)
		if f.opts.Shadows {
			lit = !w.occluded(core.NewRay(hit.Point, l), distance, hit.Primitive)
		}
	}
	if lit {
		nl := normal.Dot(l)
		lighting += material.Diffuse * math.Max(0, nl)

		r := normal.Multiply(2 * nl).Subtract(l)
		if s := -r.Dot(view); s > 0 && material.Specular > 0 {
			lighting += material.Specular * math.Pow(s, specularExponent)
		}
	}

	color := hit.Color.Multiply(lighting)

	if hit.Alpha < 1 {
		behind := w.trace(core.NewRay(hit.Point, ray.Direction), hit.Primitive, depth+1)
		color = color.Multiply(hit.Alpha).Add(behind.Multiply(1 - hit.Alpha))
	}

	if material.Reflection > 0 {
		mirror := core.NewRay(hit.Point, view.Reflect(normal))
		reflected := w.trace(mirror, hit.Primitive, depth+1)
		color = color.Lerp(reflected, material.Reflection)
	}

	return color
}

// ambientOcclusion returns the fraction of hemisphere samples around normal
// that escape the scene
func (w *Worker) ambientOcclusion(point, normal core.Vec3, exclude int) float64 {
	count := w.sampler.AOCount()
	if count == 0 {
		return 1
	}
	open := 0
	for i := 0; i < count; i++ {
		direction := core.ToWorld(w.sampler.AODirection(i), normal)
		if !w.occluded(core.NewRay(point, direction), math.Inf(1), exclude) {
			open++
		}
	}
	return float64(open) / float64(count)
}
