// Package gltfexport bakes reconstructed mesh sections into glTF 2.0
// documents. It implements the constructor's SectionBuilder contract for
// the static representation and also exports whole loaded assets for the
// web viewer and the converter tool.
package gltfexport

import (
	"bytes"
	"image/png"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/assetimport/constructor"
	"github.com/mogaika/assetimport/utils"
)

// Builder accumulates baked meshes into one shared document. Repeated
// materials and textures are written once, cached by source pointer.
type Builder struct {
	Doc *gltf.Document

	cache map[interface{}]interface{}
}

func NewBuilder() *Builder {
	return &Builder{
		Doc:   gltf.NewDocument(),
		cache: make(map[interface{}]interface{}),
	}
}

func (b *Builder) AddCache(key interface{}, val interface{}) {
	b.cache[key] = val
}

func (b *Builder) GetCachedOr(key interface{}, create func() interface{}) interface{} {
	if cached, ok := b.cache[key]; ok {
		return cached
	}
	val := create()
	b.cache[key] = val
	return val
}

// BakedMesh is the opaque handle handed back to StaticMeshComponent.
type BakedMesh struct {
	Doc       *gltf.Document
	MeshIndex uint32
}

func allZeroVec3(channel [][3]float32) bool {
	for _, v := range channel {
		if v != ([3]float32{}) {
			return false
		}
	}
	return true
}

func allZeroVec2(channel [][2]float32) bool {
	for _, v := range channel {
		if v != ([2]float32{}) {
			return false
		}
	}
	return true
}

// BuildFromSections writes one gltf mesh with a primitive per section.
// Channels that were padded from absent sources stay all-zero and are
// not written. fastBuild additionally skips tangents and vertex colors.
func (b *Builder) BuildFromSections(name string, sections []*constructor.ProceduralMeshSection,
	fastBuild bool) (interface{}, error) {

	gltfMesh := &gltf.Mesh{Name: name}

	for iSection, section := range sections {
		if section == nil {
			continue
		}
		primitive, err := b.buildPrimitive(section, fastBuild)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to build primitive for section %d of %q", iSection, name)
		}
		gltfMesh.Primitives = append(gltfMesh.Primitives, primitive)
	}

	meshIndex := uint32(len(b.Doc.Meshes))
	b.Doc.Meshes = append(b.Doc.Meshes, gltfMesh)
	return &BakedMesh{Doc: b.Doc, MeshIndex: meshIndex}, nil
}

func (b *Builder) buildPrimitive(section *constructor.ProceduralMeshSection, fastBuild bool) (*gltf.Primitive, error) {
	doc := b.Doc
	verticesCount := len(section.Vertices)
	attributes := make(map[string]uint32)

	{
		positions := make([][3]float32, verticesCount)
		for iVertex, v := range section.Vertices {
			positions[iVertex] = v
		}
		attributes["POSITION"] = modeler.WritePosition(doc, positions)
	}

	{
		normals := make([][3]float32, verticesCount)
		for iVertex, n := range section.Normals {
			normals[iVertex] = n
		}
		if !allZeroVec3(normals) {
			attributes["NORMAL"] = modeler.WriteNormal(doc, normals)
		}
	}

	{
		uvs := make([][2]float32, verticesCount)
		for iVertex, uv := range section.UV0 {
			uvs[iVertex] = uv
		}
		if !allZeroVec2(uvs) {
			attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(doc, uvs)
		}
	}

	if !fastBuild {
		hasColors := false
		colors := make([][4]uint8, verticesCount)
		for iVertex, color := range section.Colors {
			colors[iVertex] = color.RGBA8()
			if colors[iVertex] != ([4]uint8{}) {
				hasColors = true
			}
		}
		if hasColors {
			attributes["COLOR_0"] = modeler.WriteColor(doc, colors)
		}

		hasTangents := false
		tangents := make([][4]float32, verticesCount)
		for iVertex, t := range section.Tangents {
			tangents[iVertex] = t
			if t != (mgl32.Vec4{}) {
				hasTangents = true
			}
		}
		if hasTangents {
			attributes["TANGENT"] = modeler.WriteTangent(doc, tangents)
		}
	}

	indices := make([]uint32, len(section.Triangles))
	for i, index := range section.Triangles {
		indices[i] = uint32(index)
	}

	primitive := &gltf.Primitive{
		Indices:    gltf.Index(modeler.WriteIndices(doc, indices)),
		Attributes: attributes,
	}

	if section.Material != nil {
		materialIndex, err := b.materialIndex(section.Material)
		if err != nil {
			return nil, err
		}
		primitive.Material = gltf.Index(materialIndex)
	}
	return primitive, nil
}

// materialIndex writes the material instance once per builder and reuses
// the document slot afterwards.
func (b *Builder) materialIndex(inst *constructor.MaterialInstance) (uint32, error) {
	if cached, ok := b.cache[inst]; ok {
		return cached.(uint32), nil
	}

	color := new([4]float32)
	*color = inst.VectorParameter(constructor.ParamBaseColor)

	gltfMaterial := &gltf.Material{
		Name:        inst.Name,
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: color,
		},
	}

	if inst.ScalarParameter(constructor.ParamTextureBlend) > 0.5 {
		if img := inst.TextureParameter(constructor.ParamBaseTexture); img != nil {
			var buf bytes.Buffer
			if err := png.Encode(&buf, img); err != nil {
				return 0, errors.Wrapf(err, "Failed to encode texture of material %q", inst.Name)
			}
			textureIndex, err := b.writeTexture(inst.Name, buf.Bytes())
			if err != nil {
				return 0, err
			}
			gltfMaterial.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{
				Index: textureIndex,
			}
		}
	}

	materialIndex := uint32(len(b.Doc.Materials))
	b.Doc.Materials = append(b.Doc.Materials, gltfMaterial)
	b.cache[inst] = materialIndex
	return materialIndex, nil
}

func (b *Builder) writeTexture(name string, pngBytes []byte) (uint32, error) {
	doc := b.Doc

	imageIndex, err := modeler.WriteImage(doc, name+"_image", "image/png", bytes.NewReader(pngBytes))
	if err != nil {
		return 0, errors.Wrapf(err, "Failed to write gltf image")
	}

	samplerIndex := uint32(len(doc.Samplers))
	doc.Samplers = append(doc.Samplers, &gltf.Sampler{
		Name:      name + "_sampler",
		MinFilter: gltf.MinLinear,
		MagFilter: gltf.MagLinear,
		WrapS:     gltf.WrapRepeat,
		WrapT:     gltf.WrapRepeat,
	})

	textureIndex := uint32(len(doc.Textures))
	doc.Textures = append(doc.Textures, &gltf.Texture{
		Name:    name,
		Source:  gltf.Index(imageIndex),
		Sampler: gltf.Index(samplerIndex),
	})
	return textureIndex, nil
}

// AddNode appends a scene node for a baked mesh. parent == nil makes it
// a scene root.
func (b *Builder) AddNode(name string, transform mgl32.Mat4, parent *uint32, mesh *uint32) uint32 {
	translation, rotation, scale := utils.DecomposeTransform(transform)

	node := &gltf.Node{
		Name:        name,
		Mesh:        mesh,
		Translation: translation,
		Rotation:    [4]float32{rotation.V[0], rotation.V[1], rotation.V[2], rotation.W},
		Scale:       scale,
	}

	nodeIndex := uint32(len(b.Doc.Nodes))
	b.Doc.Nodes = append(b.Doc.Nodes, node)

	if parent != nil {
		b.Doc.Nodes[*parent].Children = append(b.Doc.Nodes[*parent].Children, nodeIndex)
	} else {
		b.Doc.Scenes[0].Nodes = append(b.Doc.Scenes[0].Nodes, nodeIndex)
	}
	return nodeIndex
}

// ExportBinary encodes the document as binary glTF (.glb).
func ExportBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

var _ constructor.SectionBuilder = (*Builder)(nil)
