package constructor

import (
	"github.com/pkg/errors"
)

// SectionBuilder bakes created sections into a host-specific static mesh
// resource. The export packages implement it (binary gltf documents, fbx
// documents); the handle they return is opaque to the constructor.
type SectionBuilder interface {
	BuildFromSections(name string, sections []*ProceduralMeshSection, fastBuild bool) (interface{}, error)
}

// StaticMeshComponent holds baked, non-editable geometry. Collision boxes
// and material slots are copied from the transient sections in section
// order.
type StaticMeshComponent struct {
	SceneComponent

	mesh       interface{}
	collisions []*CollisionBox
	materials  []*MaterialInstance
}

func NewStaticMeshComponent(name string) *StaticMeshComponent {
	return &StaticMeshComponent{SceneComponent: *NewSceneComponent(name)}
}

func (s *StaticMeshComponent) Mesh() interface{}              { return s.mesh }
func (s *StaticMeshComponent) Collisions() []*CollisionBox    { return s.collisions }
func (s *StaticMeshComponent) Materials() []*MaterialInstance { return s.materials }

// StaticRepresentation bakes every node through a SectionBuilder.
type StaticRepresentation struct {
	Builder SectionBuilder
}

func (r StaticRepresentation) BuildNode(transient *ProceduralMeshComponent, fastBuild bool) (Component, error) {
	mesh, err := r.Builder.BuildFromSections(transient.Name(), transient.Sections(), fastBuild)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to bake static mesh for %q", transient.Name())
	}

	c := NewStaticMeshComponent(transient.Name())
	c.SetRelativeTransform(transient.RelativeTransform())
	c.mesh = mesh
	for _, section := range transient.Sections() {
		c.collisions = append(c.collisions, section.Collision)
		c.materials = append(c.materials, section.Material)
	}
	return c, nil
}

// ProceduralRepresentation keeps the transient component as the result.
type ProceduralRepresentation struct{}

func (ProceduralRepresentation) BuildNode(transient *ProceduralMeshComponent, fastBuild bool) (Component, error) {
	return transient, nil
}
