package constructor

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/assetimport/utils"
)

// CollisionBox is the axis-aligned bounds computed for a mesh section
// when collision is requested.
type CollisionBox struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func collisionBoxFromVertices(vertices []mgl32.Vec3) *CollisionBox {
	if len(vertices) == 0 {
		return &CollisionBox{}
	}
	box := &CollisionBox{Min: vertices[0], Max: vertices[0]}
	for _, v := range vertices[1:] {
		for i := 0; i < 3; i++ {
			if v[i] < box.Min[i] {
				box.Min[i] = v[i]
			}
			if v[i] > box.Max[i] {
				box.Max[i] = v[i]
			}
		}
	}
	return box
}

// ProceduralMeshSection is one created section of a procedural mesh. All
// per-vertex channels are padded to the vertex count, absent source
// channels become zero-filled here and only here.
type ProceduralMeshSection struct {
	Vertices  []mgl32.Vec3
	Triangles []int32
	Normals   []mgl32.Vec3
	UV0       []mgl32.Vec2
	Colors    []utils.ColorFloat
	Tangents  []mgl32.Vec4

	Collision *CollisionBox
	Material  *MaterialInstance
}

// ProceduralMeshComponent holds editable mesh sections. It doubles as the
// transient build surface for the baked representations.
type ProceduralMeshComponent struct {
	SceneComponent

	sections []*ProceduralMeshSection
}

func NewProceduralMeshComponent(name string) *ProceduralMeshComponent {
	return &ProceduralMeshComponent{SceneComponent: *NewSceneComponent(name)}
}

func (p *ProceduralMeshComponent) NumSections() int { return len(p.sections) }

func (p *ProceduralMeshComponent) Section(index int) *ProceduralMeshSection {
	if index < 0 || index >= len(p.sections) {
		return nil
	}
	return p.sections[index]
}

func (p *ProceduralMeshComponent) Sections() []*ProceduralMeshSection { return p.sections }

func padVec3(channel []mgl32.Vec3, count int) []mgl32.Vec3 {
	if len(channel) == count {
		return channel
	}
	padded := make([]mgl32.Vec3, count)
	copy(padded, channel)
	return padded
}

func padVec2(channel []mgl32.Vec2, count int) []mgl32.Vec2 {
	if len(channel) == count {
		return channel
	}
	padded := make([]mgl32.Vec2, count)
	copy(padded, channel)
	return padded
}

func padVec4(channel []mgl32.Vec4, count int) []mgl32.Vec4 {
	if len(channel) == count {
		return channel
	}
	padded := make([]mgl32.Vec4, count)
	copy(padded, channel)
	return padded
}

func padColors(channel []utils.ColorFloat, count int) []utils.ColorFloat {
	if len(channel) == count {
		return channel
	}
	padded := make([]utils.ColorFloat, count)
	copy(padded, channel)
	return padded
}

// CreateMeshSection creates or replaces the section at index. Channels
// shorter than the vertex count are padded with zero values.
func (p *ProceduralMeshComponent) CreateMeshSection(index int,
	vertices []mgl32.Vec3, triangles []int32,
	normals []mgl32.Vec3, uv0 []mgl32.Vec2,
	colors []utils.ColorFloat, tangents []mgl32.Vec4,
	createCollision bool) {

	if index < 0 {
		log.Panicf("[constructor] Negative section index %d on %q", index, p.Name())
	}
	for len(p.sections) <= index {
		p.sections = append(p.sections, nil)
	}

	section := &ProceduralMeshSection{
		Vertices:  vertices,
		Triangles: triangles,
		Normals:   padVec3(normals, len(vertices)),
		UV0:       padVec2(uv0, len(vertices)),
		Colors:    padColors(colors, len(vertices)),
		Tangents:  padVec4(tangents, len(vertices)),
	}
	if createCollision {
		section.Collision = collisionBoxFromVertices(vertices)
	}
	p.sections[index] = section
}

func (p *ProceduralMeshComponent) SetMaterial(index int, inst *MaterialInstance) {
	if index < 0 || index >= len(p.sections) || p.sections[index] == nil {
		log.Panicf("[constructor] No section %d on %q to set material on", index, p.Name())
	}
	p.sections[index].Material = inst
}

func (p *ProceduralMeshComponent) Materials() []*MaterialInstance {
	materials := make([]*MaterialInstance, len(p.sections))
	for i, s := range p.sections {
		if s != nil {
			materials[i] = s.Material
		}
	}
	return materials
}
