package fbxexport

import (
	"image"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mogaika/fbx"
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
		[]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		[]int32{0, 1, 2, 0, 2, 3},
		[]mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		[]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
		[]utils.ColorFloat{{1, 0, 0, 1}, {0, 1, 0, 1}, {0, 0, 1, 1}, {1, 1, 1, 1}},
		nil, false)
	return transient.Sections()
}

func objectId(n *fbx.Node) int64 { return n.Properties[0].(int64) }

func hasConnection(f *FBXBuilder, child, parent int64) bool {
	for _, c := range f.connections.Nodes {
		if c.Properties[1].(int64) == child && c.Properties[2].(int64) == parent {
			return true
		}
	}
	return false
}

func TestBuildFromSectionsCreatesGeometryModelPair(t *testing.T) {
	f := NewFBXBuilder("test.fbx")

	baked, err := f.BuildFromSections("mesh", richSections(t), false)
	require.NoError(t, err)
	require.Len(t, baked.(*BakedModel).ModelIds, 1)

	geometries := f.objects.GetNodes("Geometry")
	models := f.objects.GetNodes("Model")
	require.Len(t, geometries, 1)
	require.Len(t, models, 1)

	geometry := geometries[0]
	vertices := geometry.GetNode("Vertices").Properties[0].([]float64)
	assert.Len(t, vertices, 4*3)

	assert.Equal(t, objectId(models[0]), baked.(*BakedModel).ModelIds[0])
	assert.True(t, hasConnection(f, objectId(geometry), objectId(models[0])))
}

func TestPolygonEndMarkersAreNegated(t *testing.T) {
	f := NewFBXBuilder("test.fbx")

	_, err := f.BuildFromSections("mesh", richSections(t), false)
	require.NoError(t, err)

	geometry := f.objects.GetNodes("Geometry")[0]
	indexes := geometry.GetNode("PolygonVertexIndex").Properties[0].([]int32)
	// last corner of every triangle is bitwise negated
	assert.Equal(t, []int32{0, 1, -3, 0, 2, -4}, indexes)
}

func TestBuildFromSectionsOmitsPaddedLayers(t *testing.T) {
	f := NewFBXBuilder("test.fbx")

	_, err := f.BuildFromSections("bare", bareSections(t), false)
	require.NoError(t, err)

	geometry := f.objects.GetNodes("Geometry")[0]
	assert.Nil(t, geometry.GetNode("LayerElementNormal"))
	assert.Nil(t, geometry.GetNode("LayerElementUV"))
	assert.Nil(t, geometry.GetNode("LayerElementColor"))
	// material layer is always present
	assert.NotNil(t, geometry.GetNode("LayerElementMaterial"))
}

func TestFastBuildSkipsColorLayer(t *testing.T) {
	f := NewFBXBuilder("test.fbx")

	_, err := f.BuildFromSections("mesh", richSections(t), true)
	require.NoError(t, err)

	geometry := f.objects.GetNodes("Geometry")[0]
	assert.NotNil(t, geometry.GetNode("LayerElementNormal"))
	assert.NotNil(t, geometry.GetNode("LayerElementUV"))
	assert.Nil(t, geometry.GetNode("LayerElementColor"))
}

func TestMaterialIsWrittenOncePerInstance(t *testing.T) {
	f := NewFBXBuilder("test.fbx")

	inst := constructor.NewMaterialInstance(constructor.DefaultImportMaterial(), "shared")
	sections := append(bareSections(t), bareSections(t)...)
	for _, s := range sections {
		s.Material = inst
	}

	baked, err := f.BuildFromSections("shared", sections, false)
	require.NoError(t, err)

	materials := f.objects.GetNodes("Material")
	require.Len(t, materials, 1)
	for _, modelId := range baked.(*BakedModel).ModelIds {
		assert.True(t, hasConnection(f, objectId(materials[0]), modelId))
	}
}

func TestTexturedMaterialExportsSidecarFile(t *testing.T) {
	f := NewFBXBuilder("test.fbx")

	inst := constructor.NewMaterialInstance(constructor.DefaultImportMaterial(), "textured")
	inst.SetTextureParameter(constructor.ParamBaseTexture, image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	inst.SetScalarParameter(constructor.ParamTextureBlend, 1)

	sections := bareSections(t)
	sections[0].Material = inst

	_, err := f.BuildFromSections("textured", sections, false)
	require.NoError(t, err)

	assert.NotEmpty(t, f.files["textured.png"])
	assert.Len(t, f.objects.GetNodes("Material"), 1)
}

func TestCountDefinitions(t *testing.T) {
	f := NewFBXBuilder("test.fbx")

	inst := constructor.NewMaterialInstance(constructor.DefaultImportMaterial(), "mat")
	sections := richSections(t)
	sections[0].Material = inst

	_, err := f.BuildFromSections("mesh", sections, false)
	require.NoError(t, err)

	f.countDefinitions()

	definitions := f.Root().GetNode("Definitions")
	require.NotNil(t, definitions)
	// geometry + model + material, plus one for GlobalSettings
	assert.Equal(t, int32(4), definitions.GetNode("Count").Properties[0])

	counts := make(map[string]int32)
	for _, ot := range definitions.GetNodes("ObjectType") {
		counts[ot.Properties[0].(string)] = ot.GetNode("Count").Properties[0].(int32)
	}
	assert.Equal(t, int32(1), counts["Geometry"])
	assert.Equal(t, int32(1), counts["Model"])
	assert.Equal(t, int32(1), counts["Material"])
	assert.Equal(t, int32(0), counts["NodeAttribute"])
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

func modelByName(f *FBXBuilder, name string) *fbx.Node {
	for _, m := range f.objects.GetNodes("Model") {
		if m.Properties[1].(string) == name+"\x00\x01Model" {
			return m
		}
	}
	return nil
}

func TestExportMeshDataConnectsHierarchy(t *testing.T) {
	f, err := ExportMeshData("scene", exportFixture(), false)
	require.NoError(t, err)

	// two null node models plus one mesh model for the child's section
	require.Len(t, f.objects.GetNodes("Model"), 3)
	assert.Len(t, f.objects.GetNodes("NodeAttribute"), 2)

	root := modelByName(f, "root")
	child := modelByName(f, "child")
	require.NotNil(t, root)
	require.NotNil(t, child)
	assert.Equal(t, "Null", root.Properties[2].(string))

	// root hangs off the document root, child off the root model
	assert.True(t, hasConnection(f, objectId(root), 0))
	assert.True(t, hasConnection(f, objectId(child), objectId(root)))

	geometry := f.objects.GetNodes("Geometry")[0]
	var meshModel *fbx.Node
	for _, m := range f.objects.GetNodes("Model") {
		if m.Properties[2].(string) == "Mesh" {
			meshModel = m
		}
	}
	require.NotNil(t, meshModel)
	assert.True(t, hasConnection(f, objectId(meshModel), objectId(child)))
	assert.True(t, hasConnection(f, objectId(geometry), objectId(meshModel)))

	materials := f.objects.GetNodes("Material")
	require.Len(t, materials, 1)
	assert.True(t, hasConnection(f, objectId(materials[0]), objectId(meshModel)))
}

func TestExportMeshDataEmptyFails(t *testing.T) {
	_, err := ExportMeshData("scene", meshdata.LoadedMeshData{}, false)
	assert.Error(t, err)
}
