package gltfexport

import (
	"bytes"
	"image"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/assetimport/constructor"
	"github.com/mogaika/assetimport/meshdata"
	"github.com/mogaika/assetimport/utils"
)

func bareSections(t *testing.T) []*constructor.ProceduralMeshSection {
	transient := constructor.NewProceduralMeshComponent("test")
	transient.CreateMeshSection(0,
		[]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		[]int32{0, 1, 2}, nil, nil, nil, nil, false)
	return transient.Sections()
}

func richSections(t *testing.T) []*constructor.ProceduralMeshSection {
	transient := constructor.NewProceduralMeshComponent("test")
	transient.CreateMeshSection(0,
		[]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		[]int32{0, 1, 2},
		[]mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		[]mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}},
		[]utils.ColorFloat{{1, 0, 0, 1}, {0, 1, 0, 1}, {0, 0, 1, 1}},
		[]mgl32.Vec4{{1, 0, 0, 1}, {1, 0, 0, 1}, {1, 0, 0, 1}},
		false)
	return transient.Sections()
}

func TestBuildFromSectionsOmitsPaddedChannels(t *testing.T) {
	b := NewBuilder()

	baked, err := b.BuildFromSections("bare", bareSections(t), false)
	require.NoError(t, err)

	mesh := b.Doc.Meshes[baked.(*BakedMesh).MeshIndex]
	require.Len(t, mesh.Primitives, 1)
	prim := mesh.Primitives[0]

	assert.Contains(t, prim.Attributes, "POSITION")
	assert.NotContains(t, prim.Attributes, "NORMAL")
	assert.NotContains(t, prim.Attributes, "TEXCOORD_0")
	assert.NotContains(t, prim.Attributes, "COLOR_0")
	assert.NotContains(t, prim.Attributes, "TANGENT")
	assert.NotNil(t, prim.Indices)
	assert.Nil(t, prim.Material)
}

func TestBuildFromSectionsWritesAllChannels(t *testing.T) {
	b := NewBuilder()

	baked, err := b.BuildFromSections("rich", richSections(t), false)
	require.NoError(t, err)

	prim := b.Doc.Meshes[baked.(*BakedMesh).MeshIndex].Primitives[0]
	assert.Contains(t, prim.Attributes, "POSITION")
	assert.Contains(t, prim.Attributes, "NORMAL")
	assert.Contains(t, prim.Attributes, "TEXCOORD_0")
	assert.Contains(t, prim.Attributes, "COLOR_0")
	assert.Contains(t, prim.Attributes, "TANGENT")
}

func TestFastBuildSkipsColorsAndTangents(t *testing.T) {
	b := NewBuilder()

	baked, err := b.BuildFromSections("rich", richSections(t), true)
	require.NoError(t, err)

	prim := b.Doc.Meshes[baked.(*BakedMesh).MeshIndex].Primitives[0]
	assert.Contains(t, prim.Attributes, "NORMAL")
	assert.NotContains(t, prim.Attributes, "COLOR_0")
	assert.NotContains(t, prim.Attributes, "TANGENT")
}

func TestMaterialIsWrittenOncePerInstance(t *testing.T) {
	b := NewBuilder()

	inst := constructor.NewMaterialInstance(constructor.DefaultImportMaterial(), "shared")
	sections := append(bareSections(t), bareSections(t)...)
	for _, s := range sections {
		s.Material = inst
	}

	_, err := b.BuildFromSections("shared", sections, false)
	require.NoError(t, err)

	require.Len(t, b.Doc.Materials, 1)
	prims := b.Doc.Meshes[0].Primitives
	require.Len(t, prims, 2)
	assert.Equal(t, *prims[0].Material, *prims[1].Material)
}

func TestTexturedMaterialWritesImageAndSampler(t *testing.T) {
	b := NewBuilder()

	inst := constructor.NewMaterialInstance(constructor.DefaultImportMaterial(), "textured")
	inst.SetTextureParameter(constructor.ParamBaseTexture, image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	inst.SetScalarParameter(constructor.ParamTextureBlend, 1)

	sections := bareSections(t)
	sections[0].Material = inst

	_, err := b.BuildFromSections("textured", sections, false)
	require.NoError(t, err)

	require.Len(t, b.Doc.Materials, 1)
	require.Len(t, b.Doc.Textures, 1)
	assert.Len(t, b.Doc.Samplers, 1)
	assert.Len(t, b.Doc.Images, 1)
	assert.NotNil(t, b.Doc.Materials[0].PBRMetallicRoughness.BaseColorTexture)
}

func exportFixture() meshdata.LoadedMeshData {
	section := meshdata.LoadedMeshSectionData{
		Vertices:      []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Triangles:     []int32{0, 1, 2},
		MaterialIndex: 0,
	}
	return meshdata.LoadedMeshData{
		NodeList: []meshdata.LoadedMeshNode{
			{
				Name:              "root",
				RelativeTransform: mgl32.Translate3D(10, 0, 0),
				ParentNodeIndex:   meshdata.NoParentNodeIndex,
			},
			{
				Name:              "child",
				RelativeTransform: mgl32.Ident4(),
				Sections:          []meshdata.LoadedMeshSectionData{section},
				ParentNodeIndex:   0,
			},
		},
		MaterialList: []meshdata.LoadedMaterialData{
			{ColorStatus: meshdata.ColorIsSet, Color: utils.ColorFloat{1, 0, 0, 1}},
		},
	}
}

func TestExportMeshDataKeepsHierarchy(t *testing.T) {
	doc, err := ExportMeshData(exportFixture(), false)
	require.NoError(t, err)

	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, "root", doc.Nodes[0].Name)
	assert.Equal(t, [3]float32{10, 0, 0}, doc.Nodes[0].Translation)
	assert.Nil(t, doc.Nodes[0].Mesh)
	assert.Equal(t, []uint32{1}, doc.Nodes[0].Children)

	assert.Equal(t, "child", doc.Nodes[1].Name)
	require.NotNil(t, doc.Nodes[1].Mesh)
	require.Len(t, doc.Meshes, 1)
	require.Len(t, doc.Materials, 1)
	require.NotNil(t, doc.Materials[0].PBRMetallicRoughness.BaseColorFactor)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, *doc.Materials[0].PBRMetallicRoughness.BaseColorFactor)

	// only the root enters the scene list
	assert.Equal(t, []uint32{0}, doc.Scenes[0].Nodes)
}

func TestExportMeshDataEmptyFails(t *testing.T) {
	_, err := ExportMeshData(meshdata.LoadedMeshData{}, false)
	assert.Error(t, err)
}

func TestExportBinaryWritesGlbMagic(t *testing.T) {
	doc, err := ExportMeshData(exportFixture(), true)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportBinary(&buf, doc))
	require.True(t, buf.Len() > 4)
	assert.Equal(t, []byte("glTF"), buf.Bytes()[:4])
}
