package gltfexport

import (
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/assetimport/constructor"
	"github.com/mogaika/assetimport/meshdata"
)

// ExportMeshData turns a whole loaded asset into a document, preserving
// the node hierarchy. Sections pass through the same transient surface
// the constructor uses, so padding and material assignment behave
// identically to reconstruction.
func ExportMeshData(md meshdata.LoadedMeshData, fastBuild bool) (*gltf.Document, error) {
	if md.IsEmpty() {
		return nil, errors.Errorf("Cannot export empty mesh data")
	}

	b := NewBuilder()
	instances := constructor.GenerateMaterialInstances(md.MaterialList, constructor.DefaultImportMaterial())

	nodeIndices := make([]uint32, len(md.NodeList))
	for iNode, node := range md.NodeList {
		transient := constructor.NewProceduralMeshComponent(node.Name)
		for iSection, section := range node.Sections {
			transient.CreateMeshSection(iSection,
				section.Vertices, section.Triangles,
				section.Normals, section.UV0,
				section.VertexColors0, section.Tangents, false)
			if section.MaterialIndex != meshdata.NoMaterialIndex {
				transient.SetMaterial(iSection, instances[section.MaterialIndex])
			}
		}

		var meshIndex *uint32
		if transient.NumSections() > 0 {
			baked, err := b.BuildFromSections(node.Name, transient.Sections(), fastBuild)
			if err != nil {
				return nil, errors.Wrapf(err, "Failed to bake node %d %q", iNode, node.Name)
			}
			meshIndex = gltf.Index(baked.(*BakedMesh).MeshIndex)
		}

		var parent *uint32
		if node.ParentNodeIndex != meshdata.NoParentNodeIndex {
			parent = &nodeIndices[node.ParentNodeIndex]
		}
		nodeIndices[iNode] = b.AddNode(node.Name, node.RelativeTransform, parent, meshIndex)
	}

	return b.Doc, nil
}
