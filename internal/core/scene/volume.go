package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Volume is a bounding volume used by the narrow-phase overlap check.
// Sphere volumes use Radius; box volumes use HalfExtents. Disc meshes are
// approximated by their bounding sphere.
type Volume struct {
	Kind        ShapeKind
	Center      mgl64.Vec3
	Radius      float64
	HalfExtents mgl64.Vec3
}

// Contact describes a confirmed geometric overlap.
type Contact struct {
	Point  mgl64.Vec3
	Normal mgl64.Vec3 // from a toward b, unit length
	Depth  float64
}

// Intersect is the backend's precise overlap test between two bounding
// volumes. It returns the contact and true when the volumes overlap.
func Intersect(a, b Volume) (Contact, bool) {
	switch {
	case a.Kind != ShapeBox && b.Kind != ShapeBox:
		return intersectSpheres(a, b)
	case a.Kind == ShapeBox && b.Kind == ShapeBox:
		return intersectBoxes(a, b)
	case a.Kind == ShapeBox:
		c, ok := intersectSphereBox(b, a)
		if ok {
			c.Normal = c.Normal.Mul(-1)
		}
		return c, ok
	default:
		return intersectSphereBox(a, b)
	}
}

func intersectSpheres(a, b Volume) (Contact, bool) {
	delta := b.Center.Sub(a.Center)
	dist := delta.Len()
	sum := a.Radius + b.Radius
	if dist > sum {
		return Contact{}, false
	}
	normal := mgl64.Vec3{0, 1, 0}
	if dist > 1e-12 {
		normal = delta.Mul(1 / dist)
	}
	return Contact{
		Point:  a.Center.Add(normal.Mul(a.Radius)),
		Normal: normal,
		Depth:  sum - dist,
	}, true
}

func intersectSphereBox(s, b Volume) (Contact, bool) {
	// Closest point on the box to the sphere center.
	var closest mgl64.Vec3
	for i := 0; i < 3; i++ {
		closest[i] = clamp(s.Center[i], b.Center[i]-b.HalfExtents[i], b.Center[i]+b.HalfExtents[i])
	}
	delta := closest.Sub(s.Center)
	dist := delta.Len()
	if dist > s.Radius {
		return Contact{}, false
	}
	normal := mgl64.Vec3{0, 1, 0}
	if dist > 1e-12 {
		normal = delta.Mul(1 / dist)
	}
	return Contact{
		Point:  closest,
		Normal: normal,
		Depth:  s.Radius - dist,
	}, true
}

func intersectBoxes(a, b Volume) (Contact, bool) {
	var overlap [3]float64
	for i := 0; i < 3; i++ {
		overlap[i] = a.HalfExtents[i] + b.HalfExtents[i] - math.Abs(b.Center[i]-a.Center[i])
		if overlap[i] < 0 {
			return Contact{}, false
		}
	}
	// Separate along the axis of least penetration.
	axis := 0
	for i := 1; i < 3; i++ {
		if overlap[i] < overlap[axis] {
			axis = i
		}
	}
	var normal mgl64.Vec3
	if b.Center[axis] >= a.Center[axis] {
		normal[axis] = 1
	} else {
		normal[axis] = -1
	}
	mid := a.Center.Add(b.Center.Sub(a.Center).Mul(0.5))
	return Contact{Point: mid, Normal: normal, Depth: overlap[axis]}, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
