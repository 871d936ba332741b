package scene

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

var _ MeshFactory = (*inMemoryMeshFactory)(nil)

// inMemoryMeshFactory produces headless meshes. The server binary has no
// renderer; a mesh here is just a named transform the simulation can move and
// dispose.
type inMemoryMeshFactory struct {
	mu      sync.Mutex
	created uint64
}

// NewMeshFactory creates the headless mesh factory.
func NewMeshFactory() MeshFactory {
	return &inMemoryMeshFactory{}
}

func (f *inMemoryMeshFactory) create(name string, kind ShapeKind, radius float64, halfExtents mgl64.Vec3, at mgl64.Vec3) Mesh {
	f.mu.Lock()
	f.created++
	f.mu.Unlock()
	return &inMemoryMesh{
		name:        name,
		kind:        kind,
		radius:      radius,
		halfExtents: halfExtents,
		position:    at,
	}
}

func (f *inMemoryMeshFactory) CreateSphere(name string, radius float64, at mgl64.Vec3) Mesh {
	return f.create(name, ShapeSphere, radius, mgl64.Vec3{radius, radius, radius}, at)
}

func (f *inMemoryMeshFactory) CreateBox(name string, halfExtents mgl64.Vec3, at mgl64.Vec3) Mesh {
	return f.create(name, ShapeBox, halfExtents.Len(), halfExtents, at)
}

func (f *inMemoryMeshFactory) CreateDisc(name string, radius float64, at mgl64.Vec3) Mesh {
	return f.create(name, ShapeDisc, radius, mgl64.Vec3{radius, 0.01, radius}, at)
}

type inMemoryMesh struct {
	name        string
	kind        ShapeKind
	radius      float64
	halfExtents mgl64.Vec3
	position    mgl64.Vec3
	disposed    bool
}

func (m *inMemoryMesh) Name() string             { return m.name }
func (m *inMemoryMesh) Position() mgl64.Vec3     { return m.position }
func (m *inMemoryMesh) SetPosition(p mgl64.Vec3) { m.position = p }
func (m *inMemoryMesh) Dispose()                 { m.disposed = true }
func (m *inMemoryMesh) Disposed() bool           { return m.disposed }

// BoundingVolume derives a Volume from a mesh created by this factory.
// Meshes from other factories fall back to a unit bounding sphere.
func BoundingVolume(m Mesh) Volume {
	if mm, ok := m.(*inMemoryMesh); ok {
		return Volume{
			Kind:        mm.kind,
			Center:      mm.position,
			Radius:      mm.radius,
			HalfExtents: mm.halfExtents,
		}
	}
	return Volume{Kind: ShapeSphere, Center: m.Position(), Radius: 1}
}
