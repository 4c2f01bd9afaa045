package gltfscene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument(t *testing.T) *gltf.Document {
	doc := gltf.NewDocument()

	positions := modeler.WritePosition(doc, [][3]float32{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
	})
	normals := modeler.WriteNormal(doc, [][3]float32{
		{0, 0, 1}, {0, 0, 1}, {0, 0, 1},
	})
	indices := modeler.WriteIndices(doc, []uint32{0, 1, 2})

	color := new([4]float32)
	*color = [4]float32{1, 0, 0, 1}
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name: "red",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: color,
		},
	})

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "tri",
		Primitives: []*gltf.Primitive{
			{
				Indices: gltf.Index(indices),
				Attributes: map[string]uint32{
					"POSITION": positions,
					"NORMAL":   normals,
				},
				Material: gltf.Index(0),
			},
		},
	})

	doc.Nodes = append(doc.Nodes,
		&gltf.Node{
			Name:        "root",
			Translation: [3]float32{1, 2, 3},
			Rotation:    [4]float32{0, 0, 0, 1},
			Scale:       [3]float32{1, 1, 1},
			Children:    []uint32{1},
		},
		&gltf.Node{
			Name: "child",
			Mesh: gltf.Index(0),
		},
	)
	doc.Scenes[0].Nodes = []uint32{0}

	return doc
}

func TestConvertDocument(t *testing.T) {
	s, err := convertDocument(testDocument(t))
	require.NoError(t, err)

	require.NotNil(t, s.Root)
	assert.Equal(t, "root", s.Root.Name)
	assert.Empty(t, s.Root.Meshes)

	expected := mgl32.Translate3D(1, 2, 3)
	assert.InDeltaSlice(t, expected[:], s.Root.Transform[:], 1e-6)

	require.Len(t, s.Root.Children, 1)
	child := s.Root.Children[0]
	assert.Equal(t, "child", child.Name)
	assert.Equal(t, mgl32.Ident4(), child.Transform)
	assert.Equal(t, []int{0}, child.Meshes)

	require.Len(t, s.Meshes, 1)
	m := s.Meshes[0]
	assert.Equal(t, []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, m.Vertices)
	assert.Len(t, m.Normals, 3)
	assert.Equal(t, [][]int32{{0, 1, 2}}, m.Faces)
	assert.Equal(t, 0, m.MaterialIndex)

	require.Len(t, s.Materials, 1)
	require.NotNil(t, s.Materials[0].DiffuseColor)
	assert.Equal(t, float32(1), (*s.Materials[0].DiffuseColor)[0])
}

func TestConvertDocumentMultipleRootsGetSynthesizedParent(t *testing.T) {
	doc := testDocument(t)
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "floating"})
	doc.Scenes[0].Nodes = []uint32{0, 2}

	s, err := convertDocument(doc)
	require.NoError(t, err)

	assert.Equal(t, "RootNode", s.Root.Name)
	assert.Equal(t, mgl32.Ident4(), s.Root.Transform)
	require.Len(t, s.Root.Children, 2)
	assert.Equal(t, "root", s.Root.Children[0].Name)
	assert.Equal(t, "floating", s.Root.Children[1].Name)
}

func TestConvertDocumentWithoutSceneNodesFails(t *testing.T) {
	doc := gltf.NewDocument()
	_, err := convertDocument(doc)
	assert.Error(t, err)
}

func TestConvertDocumentMatrixNode(t *testing.T) {
	doc := testDocument(t)
	m := mgl32.Translate3D(5, 0, 0)
	doc.Nodes[0].Matrix = [16]float32(m)
	doc.Nodes[0].Translation = [3]float32{}
	doc.Nodes[0].Rotation = [4]float32{}
	doc.Nodes[0].Scale = [3]float32{}

	s, err := convertDocument(doc)
	require.NoError(t, err)
	assert.InDeltaSlice(t, m[:], s.Root.Transform[:], 1e-6)
}

func TestConvertDocumentEmbeddedDataURI(t *testing.T) {
	doc := testDocument(t)
	doc.Images = append(doc.Images, &gltf.Image{
		Name: "tex",
		URI:  "data:image/png;base64,iVBORw0KGgo=",
	})

	s, err := convertDocument(doc)
	require.NoError(t, err)
	require.Len(t, s.Textures, 1)
	assert.Equal(t, "tex", s.Textures[0].Name)
	assert.Equal(t, 0, s.Textures[0].Height)
	assert.NotEmpty(t, s.Textures[0].Data)
}
