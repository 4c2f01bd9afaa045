package loader

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/assetimport/config"
	"github.com/mogaika/assetimport/meshdata"
	"github.com/mogaika/assetimport/scene"
	"github.com/mogaika/assetimport/utils"
)

func resetConfig() {
	config.SetTargetUpAxis(config.UpAxisZ)
	config.SetUnitScaleOverride(0)
}

func testTriangleMesh(name string, materialIndex int) *scene.Mesh {
	return &scene.Mesh{
		Name: name,
		Vertices: []mgl32.Vec3{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
		},
		Faces:         [][]int32{{0, 1, 2}},
		MaterialIndex: materialIndex,
	}
}

func testScene() *scene.Scene {
	color := utils.ColorFloat{1, 0, 0, 1}
	return &scene.Scene{
		Root: &scene.Node{
			Name:      "root",
			Transform: mgl32.Ident4(),
			Meshes:    []int{0},
			Children: []*scene.Node{
				{
					Name:      "left",
					Transform: mgl32.Translate3D(1, 0, 0),
					Meshes:    []int{1},
					Children: []*scene.Node{
						{
							Name:      "left_leaf",
							Transform: mgl32.Ident4(),
						},
					},
				},
				{
					Name:      "right",
					Transform: mgl32.Translate3D(-1, 0, 0),
				},
			},
		},
		Meshes: []*scene.Mesh{
			testTriangleMesh("m0", 0),
			testTriangleMesh("m1", 0),
		},
		Materials: []*scene.Material{
			{Name: "red", DiffuseColor: &color},
		},
	}
}

func TestNodeListIsPreOrderedParentsFirst(t *testing.T) {
	resetConfig()
	md := ConstructMeshDataFromScene(testScene())

	require.Len(t, md.NodeList, 4)
	assert.Equal(t, meshdata.NoParentNodeIndex, md.NodeList[0].ParentNodeIndex)
	for iNode := 1; iNode < len(md.NodeList); iNode++ {
		parent := md.NodeList[iNode].ParentNodeIndex
		assert.GreaterOrEqual(t, parent, 0, "node %d", iNode)
		assert.Less(t, parent, iNode, "node %d", iNode)
	}

	assert.Equal(t, "root", md.NodeList[0].Name)
	assert.Equal(t, "left", md.NodeList[1].Name)
	assert.Equal(t, "left_leaf", md.NodeList[2].Name)
	assert.Equal(t, "right", md.NodeList[3].Name)
	assert.Equal(t, 1, md.NodeList[2].ParentNodeIndex)
}

func TestChannelsAreEmptyOrFullLength(t *testing.T) {
	resetConfig()
	s := testScene()
	s.Meshes[0].Normals = []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}
	// partial channel must be dropped, not carried
	s.Meshes[1].UV0 = []mgl32.Vec2{{0, 0}}

	md := ConstructMeshDataFromScene(s)

	for _, node := range md.NodeList {
		for _, section := range node.Sections {
			for _, length := range []int{
				len(section.Normals), len(section.UV0),
				len(section.VertexColors0), len(section.Tangents),
			} {
				if length != 0 {
					assert.Equal(t, len(section.Vertices), length)
				}
			}
		}
	}
	assert.Len(t, md.NodeList[0].Sections[0].Normals, 3)
	assert.Empty(t, md.NodeList[1].Sections[0].UV0)
}

func TestMaterialPayloadMatchesStatus(t *testing.T) {
	resetConfig()
	s := testScene()
	s.Materials = append(s.Materials,
		&scene.Material{Name: "textured", DiffuseTextures: []string{"tex.png"}},
		&scene.Material{Name: "missing", DiffuseTextures: []string{"nope.png"}},
	)
	s.Textures = []*scene.EmbeddedTexture{
		{Name: "tex.png", Data: []byte{0x89, 'P', 'N', 'G'}, Width: 4, Height: 0},
	}

	md := ConstructMeshDataFromScene(s)
	require.Len(t, md.MaterialList, 3)

	for _, mat := range md.MaterialList {
		switch mat.ColorStatus {
		case meshdata.ColorIsSet:
			assert.Empty(t, mat.CompressedTextureData)
		case meshdata.TextureIsSet:
			assert.NotEmpty(t, mat.CompressedTextureData)
		case meshdata.TextureLoadError:
			assert.Empty(t, mat.CompressedTextureData)
			assert.Equal(t, utils.ColorFloat{}, mat.Color)
		default:
			t.Errorf("unexpected status %v", mat.ColorStatus)
		}
	}
	assert.Equal(t, meshdata.ColorIsSet, md.MaterialList[0].ColorStatus)
	assert.Equal(t, meshdata.TextureIsSet, md.MaterialList[1].ColorStatus)
	assert.Equal(t, meshdata.TextureLoadError, md.MaterialList[2].ColorStatus)
}

func TestRawTextureIsRecompressed(t *testing.T) {
	resetConfig()
	s := testScene()
	s.Materials[0] = &scene.Material{Name: "raw", DiffuseTextures: []string{"raw"}}
	// 2x1 BGRA: blue and green pixels
	s.Textures = []*scene.EmbeddedTexture{
		{Name: "raw", Width: 2, Height: 1, Data: []byte{
			255, 0, 0, 255,
			0, 255, 0, 255,
		}},
	}

	md := ConstructMeshDataFromScene(s)
	require.Equal(t, meshdata.TextureIsSet, md.MaterialList[0].ColorStatus)
	// png magic
	require.Greater(t, len(md.MaterialList[0].CompressedTextureData), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, md.MaterialList[0].CompressedTextureData[:4])
}

func TestTruncatedRawTextureBecomesLoadError(t *testing.T) {
	resetConfig()
	s := testScene()
	s.Materials[0] = &scene.Material{Name: "truncated", DiffuseTextures: []string{"raw"}}
	// claims 2x2 but carries a single pixel
	s.Textures = []*scene.EmbeddedTexture{
		{Name: "raw", Width: 2, Height: 2, Data: []byte{255, 0, 0, 255}},
	}

	md := ConstructMeshDataFromScene(s)
	require.Len(t, md.MaterialList, 1)
	assert.Equal(t, meshdata.TextureLoadError, md.MaterialList[0].ColorStatus)
	assert.Empty(t, md.MaterialList[0].CompressedTextureData)
}

func TestNormalizationScalesAndRotatesRootOnly(t *testing.T) {
	resetConfig()
	s := testScene()
	s.UnitScaleFactor = 2
	childBefore := s.Root.Children[0].Transform

	md := ConstructMeshDataFromScene(s)

	expected := mgl32.Scale3D(2, 2, 2).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(90))).
		Mul4(mgl32.Ident4())
	assert.InDeltaSlice(t, expected[:], md.NodeList[0].RelativeTransform[:], 1e-5)
	assert.Equal(t, childBefore, md.NodeList[1].RelativeTransform)
}

func TestUnitScaleOverrideWinsOverSceneMetadata(t *testing.T) {
	resetConfig()
	defer resetConfig()
	config.SetUnitScaleOverride(10)

	s := testScene()
	s.UnitScaleFactor = 2
	md := ConstructMeshDataFromScene(s)

	expected := mgl32.Scale3D(10, 10, 10).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(90)))
	assert.InDeltaSlice(t, expected[:], md.NodeList[0].RelativeTransform[:], 1e-5)
}

func TestNonTriangleFacePanics(t *testing.T) {
	resetConfig()
	s := testScene()
	s.Meshes[0].Faces = [][]int32{{0, 1, 2, 2}}

	assert.Panics(t, func() {
		ConstructMeshDataFromScene(s)
	})
}

func TestTwoDiffuseTexturesPanics(t *testing.T) {
	resetConfig()
	s := testScene()
	s.Materials[0].DiffuseTextures = []string{"a.png", "b.png"}

	assert.Panics(t, func() {
		ConstructMeshDataFromScene(s)
	})
}

func TestUnnamedNodesGetDiagnosticNames(t *testing.T) {
	resetConfig()
	s := testScene()
	s.Root.Children[0].Name = ""
	s.Root.Children[1].Name = ""

	md := ConstructMeshDataFromScene(s)
	assert.NotEmpty(t, md.NodeList[1].Name)
	assert.NotEmpty(t, md.NodeList[3].Name)
	assert.NotEqual(t, md.NodeList[1].Name, md.NodeList[3].Name)
}

func TestNoMaterialsUsesSentinelIndex(t *testing.T) {
	resetConfig()
	s := testScene()
	s.Materials = nil

	md := ConstructMeshDataFromScene(s)
	assert.Empty(t, md.MaterialList)
	assert.Equal(t, meshdata.NoMaterialIndex, md.NodeList[0].Sections[0].MaterialIndex)
}

func TestLoadFromUnreadablePathReturnsEmpty(t *testing.T) {
	resetConfig()
	md, err := LoadMeshFromAssetFile("/nonexistent/model.gltf")
	assert.Error(t, err)
	assert.True(t, md.IsEmpty())
}

func TestLoadUnknownFormatReturnsEmpty(t *testing.T) {
	resetConfig()
	md, err := LoadMeshFromAssetData([]byte("whatever"), ".step")
	assert.Error(t, err)
	assert.True(t, md.IsEmpty())
}
