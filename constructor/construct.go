package constructor

import (
	"log"

	"github.com/pkg/errors"

	"github.com/mogaika/assetimport/loader"
	"github.com/mogaika/assetimport/meshdata"
	"github.com/mogaika/assetimport/status"
)

// TargetRepresentation turns the transient per-node build surface into
// the final component. Implementations decide what "final" means:
// keep it editable, bake it static, or convert to a dynamic mesh.
type TargetRepresentation interface {
	BuildNode(transient *ProceduralMeshComponent, fastBuild bool) (Component, error)
}

// ConstructMeshComponentFromMeshData rebuilds the loaded node hierarchy
// as components on the owner. Returns the component built for the root
// node; the rest of the hierarchy hangs off it. On error the partial
// hierarchy is discarded and nil is returned.
func ConstructMeshComponentFromMeshData(owner *Actor, md meshdata.LoadedMeshData,
	baseMaterial *BaseMaterial, target TargetRepresentation,
	replicate, register, fastBuild bool) (Component, error) {

	if owner == nil {
		log.Panicf("[constructor] Cannot construct components without an owner actor")
	}
	if md.IsEmpty() {
		log.Panicf("[constructor] Cannot construct components from empty mesh data")
	}

	instances := GenerateMaterialInstances(md.MaterialList, baseMaterial)

	built := make([]Component, len(md.NodeList))
	for iNode, node := range md.NodeList {
		transient := NewProceduralMeshComponent(node.Name)
		transient.SetRelativeTransform(node.RelativeTransform)

		for iSection, section := range node.Sections {
			transient.CreateMeshSection(iSection,
				section.Vertices, section.Triangles,
				section.Normals, section.UV0,
				section.VertexColors0, section.Tangents, true)

			if section.MaterialIndex == meshdata.NoMaterialIndex {
				continue
			}
			if section.MaterialIndex < 0 || section.MaterialIndex >= len(instances) {
				log.Panicf("[constructor] Node %q section %d references material %d out of %d",
					node.Name, iSection, section.MaterialIndex, len(instances))
			}
			transient.SetMaterial(iSection, instances[section.MaterialIndex])
		}

		component, err := target.BuildNode(transient, fastBuild)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to build node %d %q", iNode, node.Name)
		}
		component.Base().SetIsReplicated(replicate)
		built[iNode] = component

		switch {
		case node.ParentNodeIndex == meshdata.NoParentNodeIndex:
			if iNode != 0 {
				log.Panicf("[constructor] Node %d %q has no parent, only the root may", iNode, node.Name)
			}
			if root := owner.RootComponent(); root != nil {
				component.Base().AttachToComponent(root)
			} else {
				owner.SetRootComponent(component.Base())
			}
		case node.ParentNodeIndex < 0 || node.ParentNodeIndex >= iNode:
			log.Panicf("[constructor] Node %d %q parent %d was not built before it",
				iNode, node.Name, node.ParentNodeIndex)
		default:
			component.Base().AttachToComponent(built[node.ParentNodeIndex].Base())
		}

		if register {
			owner.RegisterComponent(component)
		}

		status.Progress(status.StageConstruct, float32(iNode+1)/float32(len(md.NodeList)),
			"Constructed node %q", node.Name)
	}

	return built[0], nil
}

func ConstructProceduralMeshComponentFromMeshData(owner *Actor, md meshdata.LoadedMeshData,
	baseMaterial *BaseMaterial, replicate, register bool) *ProceduralMeshComponent {

	// procedural target cannot fail
	component, err := ConstructMeshComponentFromMeshData(owner, md, baseMaterial,
		ProceduralRepresentation{}, replicate, register, false)
	if err != nil {
		log.Panicf("[constructor] Procedural build failed: %v", err)
	}
	return component.(*ProceduralMeshComponent)
}

func ConstructStaticMeshComponentFromMeshData(owner *Actor, md meshdata.LoadedMeshData,
	baseMaterial *BaseMaterial, builder SectionBuilder,
	replicate, register, fastBuild bool) (*StaticMeshComponent, error) {

	component, err := ConstructMeshComponentFromMeshData(owner, md, baseMaterial,
		StaticRepresentation{Builder: builder}, replicate, register, fastBuild)
	if err != nil {
		return nil, err
	}
	return component.(*StaticMeshComponent), nil
}

func ConstructDynamicMeshComponentFromMeshData(owner *Actor, md meshdata.LoadedMeshData,
	baseMaterial *BaseMaterial, replicate, register bool) (*DynamicMeshComponent, error) {

	component, err := ConstructMeshComponentFromMeshData(owner, md, baseMaterial,
		DynamicRepresentation{}, replicate, register, false)
	if err != nil {
		return nil, err
	}
	return component.(*DynamicMeshComponent), nil
}

func ConstructProceduralMeshComponentFromAssetFile(owner *Actor, path string,
	baseMaterial *BaseMaterial, replicate, register bool) (*ProceduralMeshComponent, error) {

	md, err := loader.LoadMeshFromAssetFile(path)
	if err != nil {
		return nil, err
	}
	return ConstructProceduralMeshComponentFromMeshData(owner, md, baseMaterial, replicate, register), nil
}

func ConstructStaticMeshComponentFromAssetFile(owner *Actor, path string,
	baseMaterial *BaseMaterial, builder SectionBuilder,
	replicate, register, fastBuild bool) (*StaticMeshComponent, error) {

	md, err := loader.LoadMeshFromAssetFile(path)
	if err != nil {
		return nil, err
	}
	return ConstructStaticMeshComponentFromMeshData(owner, md, baseMaterial, builder,
		replicate, register, fastBuild)
}

func ConstructDynamicMeshComponentFromAssetFile(owner *Actor, path string,
	baseMaterial *BaseMaterial, replicate, register bool) (*DynamicMeshComponent, error) {

	md, err := loader.LoadMeshFromAssetFile(path)
	if err != nil {
		return nil, err
	}
	return ConstructDynamicMeshComponentFromMeshData(owner, md, baseMaterial, replicate, register)
}
