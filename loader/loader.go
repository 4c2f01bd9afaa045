// Package loader turns a decoded source scene into the intermediate mesh
// representation: normalize the root transform, extract materials, then
// walk the node tree depth first into a flat parent-indexed node list.
package loader

import (
	"log"

	"github.com/pkg/errors"

	"github.com/mogaika/assetimport/meshdata"
	"github.com/mogaika/assetimport/scene"
	"github.com/mogaika/assetimport/status"
	"github.com/mogaika/assetimport/utils"
)

// LoadMeshFromAssetFile imports an asset file and extracts its mesh data.
// On error the returned mesh data is empty, never partially populated.
func LoadMeshFromAssetFile(path string) (meshdata.LoadedMeshData, error) {
	status.Info(status.StageImport, "Importing %q", path)

	s, err := scene.OpenFile(path)
	if err != nil {
		status.Error(status.StageImport, "Failed to import %q: %v", path, err)
		return meshdata.LoadedMeshData{}, errors.Wrapf(err, "Failed to import asset %q", path)
	}
	return ConstructMeshDataFromScene(s), nil
}

// LoadMeshFromAssetData imports an in-memory asset. formatHint is the
// extension of the original file including the dot (".glb", ".obj", ...).
// Formats with external sidecar files lose them on this path.
func LoadMeshFromAssetData(data []byte, formatHint string) (meshdata.LoadedMeshData, error) {
	status.Info(status.StageImport, "Importing %d bytes of %q data", len(data), formatHint)

	s, err := scene.DecodeData(data, formatHint)
	if err != nil {
		status.Error(status.StageImport, "Failed to import %q data: %v", formatHint, err)
		return meshdata.LoadedMeshData{}, errors.Wrapf(err, "Failed to import %q asset data", formatHint)
	}
	return ConstructMeshDataFromScene(s), nil
}

// ConstructMeshDataFromScene normalizes the scene and extracts every node
// into the flat representation. NodeList[0] is the root; every node's
// parent index refers to an earlier list entry.
func ConstructMeshDataFromScene(s *scene.Scene) meshdata.LoadedMeshData {
	normalizeScene(s)

	md := meshdata.LoadedMeshData{
		MaterialList: extractMaterials(s),
	}

	e := &extractor{s: s}
	e.extractNode(s.Root, meshdata.NoParentNodeIndex, &md)

	status.Progress(status.StageExtract, 1.0,
		"Extracted %d nodes, %d materials", len(md.NodeList), len(md.MaterialList))
	return md
}

type extractor struct {
	s     *scene.Scene
	names utils.RandomNameGenerator
}

func (e *extractor) extractNode(n *scene.Node, parentIndex int, md *meshdata.LoadedMeshData) {
	name := n.Name
	if name == "" {
		// diagnostic only, addressing is always by index
		name = e.names.RandomName()
	}

	node := meshdata.LoadedMeshNode{
		Name:              name,
		RelativeTransform: n.Transform,
		ParentNodeIndex:   parentIndex,
	}
	for _, iMesh := range n.Meshes {
		if iMesh < 0 || iMesh >= len(e.s.Meshes) {
			log.Panicf("[loader] Node %q references mesh %d out of %d", name, iMesh, len(e.s.Meshes))
		}
		node.Sections = append(node.Sections, e.extractSection(e.s.Meshes[iMesh]))
	}

	iNode := len(md.NodeList)
	md.NodeList = append(md.NodeList, node)

	// parent is appended before any of its children, so child entries
	// always point backwards
	for _, child := range n.Children {
		e.extractNode(child, iNode, md)
	}
}

func (e *extractor) extractSection(m *scene.Mesh) meshdata.LoadedMeshSectionData {
	section := meshdata.LoadedMeshSectionData{
		Vertices:      m.Vertices,
		MaterialIndex: m.MaterialIndex,
	}
	if len(e.s.Materials) == 0 {
		section.MaterialIndex = meshdata.NoMaterialIndex
	} else if m.MaterialIndex < 0 || m.MaterialIndex >= len(e.s.Materials) {
		log.Panicf("[loader] Mesh %q references material %d out of %d",
			m.Name, m.MaterialIndex, len(e.s.Materials))
	}

	section.Triangles = make([]int32, 0, len(m.Faces)*3)
	for iFace, face := range m.Faces {
		if len(face) != 3 {
			log.Panicf("[loader] Mesh %q face %d has %d corners, importer must triangulate",
				m.Name, iFace, len(face))
		}
		section.Triangles = append(section.Triangles, face[0], face[1], face[2])
	}

	// optional channels are carried only when complete
	vertexCount := len(m.Vertices)
	if len(m.Normals) == vertexCount {
		section.Normals = m.Normals
	} else if len(m.Normals) != 0 {
		log.Printf("[loader] Mesh %q has %d normals for %d vertices, dropping channel",
			m.Name, len(m.Normals), vertexCount)
	}
	if len(m.UV0) == vertexCount {
		section.UV0 = m.UV0
	} else if len(m.UV0) != 0 {
		log.Printf("[loader] Mesh %q has %d uvs for %d vertices, dropping channel",
			m.Name, len(m.UV0), vertexCount)
	}
	if len(m.Colors0) == vertexCount {
		section.VertexColors0 = m.Colors0
	} else if len(m.Colors0) != 0 {
		log.Printf("[loader] Mesh %q has %d colors for %d vertices, dropping channel",
			m.Name, len(m.Colors0), vertexCount)
	}
	if len(m.Tangents) == vertexCount {
		section.Tangents = m.Tangents
	} else if len(m.Tangents) != 0 {
		log.Printf("[loader] Mesh %q has %d tangents for %d vertices, dropping channel",
			m.Name, len(m.Tangents), vertexCount)
	}

	return section
}
