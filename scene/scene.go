// Package scene is the boundary to format decoders. A decoder turns an
// asset file into a Scene: one node tree plus flat mesh, material and
// embedded-texture tables. Decoders are expected to triangulate faces and
// to keep per-vertex channels either absent or complete.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/assetimport/utils"
)

type Scene struct {
	Root      *Node
	Meshes    []*Mesh
	Materials []*Material
	Textures  []*EmbeddedTexture

	// UnitScaleFactor is scene metadata. 0 means the format carries none.
	UnitScaleFactor float32
}

type Node struct {
	Name string

	// Transform is relative to the parent node, mgl32 column convention.
	Transform mgl32.Mat4

	// Meshes are indices into Scene.Meshes.
	Meshes []int

	Children []*Node
}

type Mesh struct {
	Name     string
	Vertices []mgl32.Vec3

	// Faces keeps the source polygon structure. The extractor refuses
	// anything that is not a triangle.
	Faces [][]int32

	Normals  []mgl32.Vec3
	UV0      []mgl32.Vec2
	Colors0  []utils.ColorFloat
	Tangents []mgl32.Vec4

	MaterialIndex int
}

type Material struct {
	Name string

	// DiffuseColor is nil when the format has no color for this material.
	DiffuseColor *utils.ColorFloat

	// DiffuseTextures are texture names, resolved against the embedded
	// texture table at extraction time.
	DiffuseTextures []string
}

type EmbeddedTexture struct {
	Name string
	Data []byte

	// Height == 0 means Data is an already-compressed image (png, jpeg).
	// Otherwise Data is raw BGRA8, Width*Height*4 bytes.
	Width  int
	Height int
}

// EmbeddedTexture resolves a texture reference against the embedded table.
// Returns nil when the texture is not embedded in the asset.
func (s *Scene) EmbeddedTexture(name string) *EmbeddedTexture {
	for _, t := range s.Textures {
		if t.Name == name {
			return t
		}
	}
	return nil
}
