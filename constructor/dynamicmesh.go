package constructor

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/assetimport/utils"
)

// DynamicMesh is a single editable vertex/index pool. Sections become
// triangle ranges tagged with a material slot, channels stay per vertex.
type DynamicMesh struct {
	Vertices []mgl32.Vec3
	Normals  []mgl32.Vec3
	UV0      []mgl32.Vec2
	Colors   []utils.ColorFloat
	Tangents []mgl32.Vec4

	Triangles []int32
	Ranges    []DynamicMeshRange
}

type DynamicMeshRange struct {
	FirstTriangle int
	TriangleCount int
	MaterialSlot  int
}

// AppendSection merges a created section into the pool, remapping its
// indices past the existing vertices.
func (dm *DynamicMesh) AppendSection(s *ProceduralMeshSection, materialSlot int) {
	base := int32(len(dm.Vertices))
	dm.Vertices = append(dm.Vertices, s.Vertices...)
	dm.Normals = append(dm.Normals, s.Normals...)
	dm.UV0 = append(dm.UV0, s.UV0...)
	dm.Colors = append(dm.Colors, s.Colors...)
	dm.Tangents = append(dm.Tangents, s.Tangents...)

	dm.Ranges = append(dm.Ranges, DynamicMeshRange{
		FirstTriangle: len(dm.Triangles) / 3,
		TriangleCount: len(s.Triangles) / 3,
		MaterialSlot:  materialSlot,
	})
	for _, i := range s.Triangles {
		dm.Triangles = append(dm.Triangles, base+i)
	}
}

// DynamicMeshComponent wraps a DynamicMesh plus its material slots.
type DynamicMeshComponent struct {
	SceneComponent

	mesh      *DynamicMesh
	materials []*MaterialInstance
}

func NewDynamicMeshComponent(name string) *DynamicMeshComponent {
	return &DynamicMeshComponent{
		SceneComponent: *NewSceneComponent(name),
		mesh:           &DynamicMesh{},
	}
}

func (d *DynamicMeshComponent) Mesh() *DynamicMesh             { return d.mesh }
func (d *DynamicMeshComponent) Materials() []*MaterialInstance { return d.materials }

// DynamicRepresentation converts each node's sections into one editable
// dynamic mesh.
type DynamicRepresentation struct{}

func (DynamicRepresentation) BuildNode(transient *ProceduralMeshComponent, fastBuild bool) (Component, error) {
	c := NewDynamicMeshComponent(transient.Name())
	c.SetRelativeTransform(transient.RelativeTransform())
	for _, section := range transient.Sections() {
		slot := len(c.materials)
		c.materials = append(c.materials, section.Material)
		c.mesh.AppendSection(section, slot)
	}
	return c, nil
}
