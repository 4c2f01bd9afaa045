// Package meshdata holds the engine-agnostic intermediate representation
// produced by the loader and consumed by the constructor. A loaded asset
// is a flat, pre-ordered node list: NodeList[0] is the root and every
// other node's parent precedes it in the list.
package meshdata

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/assetimport/utils"
)

const (
	// NoParentNodeIndex is valid only for NodeList[0].
	NoParentNodeIndex = -1

	// NoMaterialIndex is valid only when MaterialList is empty.
	NoMaterialIndex = -1
)

type ColorStatus int

const (
	ColorStatusUnset ColorStatus = iota
	ColorIsSet
	TextureIsSet
	TextureLoadError
)

func (cs ColorStatus) String() string {
	switch cs {
	case ColorStatusUnset:
		return "Unset"
	case ColorIsSet:
		return "ColorIsSet"
	case TextureIsSet:
		return "TextureIsSet"
	case TextureLoadError:
		return "TextureLoadError"
	}
	return "Invalid"
}

// LoadedMaterialData carries exactly one payload, selected by ColorStatus:
// Color for ColorIsSet, CompressedTextureData for TextureIsSet, neither
// for TextureLoadError.
type LoadedMaterialData struct {
	ColorStatus           ColorStatus
	Color                 utils.ColorFloat
	CompressedTextureData []byte
}

// LoadedMeshSectionData is one drawable chunk of geometry. Triangles is
// read in strides of three; winding selects the front face. The optional
// channels are either empty or exactly len(Vertices) long, never partial.
type LoadedMeshSectionData struct {
	Vertices      []mgl32.Vec3
	Triangles     []int32
	Normals       []mgl32.Vec3
	UV0           []mgl32.Vec2
	VertexColors0 []utils.ColorFloat
	Tangents      []mgl32.Vec4 // xyz is the tangent direction, w the handedness
	MaterialIndex int
}

type LoadedMeshNode struct {
	// Name is diagnostic only and never participates in addressing.
	Name string

	// RelativeTransform is relative to the parent node's space. The root's
	// parent space is the world.
	RelativeTransform mgl32.Mat4

	Sections []LoadedMeshSectionData

	ParentNodeIndex int
}

type LoadedMeshData struct {
	NodeList     []LoadedMeshNode
	MaterialList []LoadedMaterialData
}

func (md *LoadedMeshData) IsEmpty() bool {
	return len(md.NodeList) == 0
}
