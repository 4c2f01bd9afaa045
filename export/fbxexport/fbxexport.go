package fbxexport

import (
	"bytes"
	"fmt"
	"image/png"
	"log"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mogaika/fbx/builders/bfbx73"
	"github.com/pkg/errors"

	"github.com/mogaika/assetimport/constructor"
	"github.com/mogaika/assetimport/meshdata"
	"github.com/mogaika/assetimport/utils"
)

// BakedModel is the handle for one baked component: a model node per
// section, already connected to its geometry and material.
type BakedModel struct {
	ModelIds []int64
}

func (f *FBXBuilder) buildGeometry(name string, section *constructor.ProceduralMeshSection,
	fastBuild bool) (*BakedModel, error) {

	vertices := make([]float64, 0, len(section.Vertices)*3)
	for _, v := range section.Vertices {
		vertices = append(vertices, float64(v.X()), float64(v.Y()), float64(v.Z()))
	}

	// last corner of every polygon is marked by bitwise negation
	indexes := make([]int32, 0, len(section.Triangles))
	for i := 0; i+2 < len(section.Triangles); i += 3 {
		indexes = append(indexes,
			section.Triangles[i],
			section.Triangles[i+1],
			-(section.Triangles[i+2])-1)
	}

	geometryId := f.GenerateId()
	geometryLayer := bfbx73.Layer(0).AddNodes(
		bfbx73.Version(100),
	)
	geometry := bfbx73.Geometry(geometryId, "\x00\x01Geometry", "Mesh").AddNodes(
		bfbx73.Properties70().AddNodes(
			bfbx73.P("Color", "ColorRGB", "Color", "", float64(1), float64(1), float64(1)),
		),
		bfbx73.GeometryVersion(124),
		bfbx73.Vertices(vertices),
		bfbx73.PolygonVertexIndex(indexes),
		geometryLayer,
	)

	if haveNormals(section.Normals) {
		normals := make([]float64, 0, len(section.Normals)*3)
		for _, n := range section.Normals {
			normals = append(normals, float64(n.X()), float64(n.Y()), float64(n.Z()))
		}
		geometry.AddNode(
			bfbx73.LayerElementNormal(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByVertice"),
				bfbx73.ReferenceInformationType("Direct"),
				bfbx73.Normals(normals),
			),
		)
		geometryLayer.AddNode(
			bfbx73.LayerElement().AddNodes(
				bfbx73.Type("LayerElementNormal"),
				bfbx73.TypedIndex(0),
			),
		)
	}

	if haveUVs(section.UV0) {
		// fbx uv origin is bottom-left
		uv := make([]float64, 0, len(section.UV0)*2)
		for _, u := range section.UV0 {
			uv = append(uv, float64(u.X()), float64(1.0-u.Y()))
		}
		geometry.AddNode(
			bfbx73.LayerElementUV(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByVertice"),
				bfbx73.ReferenceInformationType("Direct"),
				bfbx73.UV(uv),
			),
		)
		geometryLayer.AddNode(
			bfbx73.LayerElement().AddNodes(
				bfbx73.Type("LayerElementUV"),
				bfbx73.TypedIndex(0),
			),
		)
	}

	if !fastBuild && haveColors(section.Colors) {
		rgba := make([]float64, 0, len(section.Colors)*4)
		for _, c := range section.Colors {
			rgba = append(rgba, float64(c[0]), float64(c[1]), float64(c[2]), float64(c[3]))
		}
		geometry.AddNode(
			bfbx73.LayerElementColor(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByVertice"),
				bfbx73.ReferenceInformationType("Direct"),
				bfbx73.Colors(rgba),
			),
		)
		geometryLayer.AddNode(
			bfbx73.LayerElement().AddNodes(
				bfbx73.Type("LayerElementColor"),
				bfbx73.TypedIndex(0),
			),
		)
	}

	geometry.AddNode(
		bfbx73.LayerElementMaterial(0).AddNodes(
			bfbx73.Version(101),
			bfbx73.Name(""),
			bfbx73.MappingInformationType("AllSame"),
			bfbx73.ReferenceInformationType("IndexToDirect"),
			bfbx73.Materials([]int32{0}),
		),
	)
	geometryLayer.AddNode(
		bfbx73.LayerElement().AddNodes(
			bfbx73.Type("LayerElementMaterial"),
			bfbx73.TypedIndex(0),
		),
	)

	modelId := f.GenerateId()
	model := bfbx73.Model(modelId, name+"\x00\x01Model", "Mesh").AddNodes(
		bfbx73.Version(232),
		bfbx73.Properties70().AddNodes(
			bfbx73.P("InheritType", "enum", "", "", int32(1)),
			bfbx73.P("DefaultAttributeIndex", "int", "Integer", "", int32(0)),
			bfbx73.P("Lcl Translation", "Lcl Translation", "", "A", float64(0), float64(0), float64(0)),
			bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A", float64(0), float64(0), float64(0)),
			bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A", float64(1), float64(1), float64(1)),
		),
		bfbx73.Shading(true),
		bfbx73.Culling("CullingOff"),
	)

	f.AddObjects(model, geometry)
	f.AddConnections(bfbx73.C("OO", geometryId, modelId))

	if section.Material != nil {
		materialId, err := f.materialId(section.Material)
		if err != nil {
			return nil, err
		}
		f.AddConnections(bfbx73.C("OO", materialId, modelId))
	}

	return &BakedModel{ModelIds: []int64{modelId}}, nil
}

// padded channels that were absent in the source stay all-zero and are
// left out of the document
func haveNormals(normals []mgl32.Vec3) bool {
	for _, n := range normals {
		if n != (mgl32.Vec3{}) {
			return true
		}
	}
	return false
}

func haveUVs(uvs []mgl32.Vec2) bool {
	for _, uv := range uvs {
		if uv != (mgl32.Vec2{}) {
			return true
		}
	}
	return false
}

func haveColors(colors []utils.ColorFloat) bool {
	for _, c := range colors {
		if c != (utils.ColorFloat{}) {
			return true
		}
	}
	return false
}

// BuildFromSections bakes a geometry and model node pair per section.
// The models are not connected to any parent; callers wire the hierarchy
// (ConnectToRoot for standalone meshes).
func (f *FBXBuilder) BuildFromSections(name string, sections []*constructor.ProceduralMeshSection,
	fastBuild bool) (interface{}, error) {

	baked := &BakedModel{}
	for iSection, section := range sections {
		if section == nil {
			continue
		}
		sectionName := name
		if len(sections) > 1 {
			sectionName = fmt.Sprintf("%s_s%d", name, iSection)
		}
		m, err := f.buildGeometry(sectionName, section, fastBuild)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to bake section %d of %q", iSection, name)
		}
		baked.ModelIds = append(baked.ModelIds, m.ModelIds...)
	}
	return baked, nil
}

func (f *FBXBuilder) ConnectToRoot(modelIds ...int64) {
	for _, id := range modelIds {
		f.AddConnections(bfbx73.C("OO", id, 0))
	}
}

// materialId writes a surface material for the instance once and reuses
// it afterwards. There is no texture object support in the builder;
// textured instances export their image as a sidecar file and keep the
// surface white.
func (f *FBXBuilder) materialId(inst *constructor.MaterialInstance) (int64, error) {
	if cached := f.GetCached(inst); cached != nil {
		return cached.(int64), nil
	}

	color := inst.VectorParameter(constructor.ParamBaseColor)

	if inst.ScalarParameter(constructor.ParamTextureBlend) > 0.5 {
		if img := inst.TextureParameter(constructor.ParamBaseTexture); img != nil {
			var buf bytes.Buffer
			if err := png.Encode(&buf, img); err != nil {
				return 0, errors.Wrapf(err, "Failed to encode texture of material %q", inst.Name)
			}
			f.AddExportFile(inst.Name+".png", buf.Bytes())
			log.Printf("[fbxexport] Material %q texture exported as sidecar file", inst.Name)
			color = utils.ColorFloat{1, 1, 1, 1}
		}
	}

	materialId := f.GenerateId()
	material := bfbx73.Material(materialId, inst.Name+"\x00\x01Material", "").AddNodes(
		bfbx73.Version(102),
		bfbx73.ShadingModel("lambert"),
		bfbx73.MultiLayer(0),
		bfbx73.Properties70().AddNodes(
			bfbx73.P("AmbientColor", "Color", "", "A", float64(0), float64(0), float64(0)),
			bfbx73.P("DiffuseColor", "Color", "", "A", float64(color[0]), float64(color[1]), float64(color[2])),
			bfbx73.P("Emissive", "Vector3D", "Vector", "", float64(0), float64(0), float64(0)),
			bfbx73.P("Ambient", "Vector3D", "Vector", "", float64(0), float64(0), float64(0)),
			bfbx73.P("Diffuse", "Vector3D", "Vector", "", float64(color[0]), float64(color[1]), float64(color[2])),
			bfbx73.P("Opacity", "double", "Number", "", float64(color[3])),
		),
	)
	f.AddObjects(material)
	f.AddCache(inst, materialId)
	return materialId, nil
}

// ExportMeshData builds a whole document from a loaded asset: one null
// model per node carrying the local transform, mesh models per section
// attached under it.
func ExportMeshData(name string, md meshdata.LoadedMeshData, fastBuild bool) (*FBXBuilder, error) {
	if md.IsEmpty() {
		return nil, errors.Errorf("Cannot export empty mesh data")
	}

	f := NewFBXBuilder(name)
	instances := constructor.GenerateMaterialInstances(md.MaterialList, constructor.DefaultImportMaterial())

	nodeModelIds := make([]int64, len(md.NodeList))
	for iNode, node := range md.NodeList {
		modelId := f.GenerateId()
		nodeModelIds[iNode] = modelId

		translation, rotation, scale := utils.DecomposeTransform(node.RelativeTransform)
		euler := utils.RadiansToDegreeV3(utils.QuatToEuler(rotation))

		model := bfbx73.Model(modelId, node.Name+"\x00\x01Model", "Null").AddNodes(
			bfbx73.Version(232),
			bfbx73.Properties70().AddNodes(
				bfbx73.P("InheritType", "enum", "", "", int32(1)),
				bfbx73.P("DefaultAttributeIndex", "int", "Integer", "", int32(0)),
				bfbx73.P("Lcl Translation", "Lcl Translation", "", "A",
					float64(translation[0]), float64(translation[1]), float64(translation[2])),
				bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A",
					float64(euler[0]), float64(euler[1]), float64(euler[2])),
				bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A",
					float64(scale[0]), float64(scale[1]), float64(scale[2])),
			),
			bfbx73.Shading(true),
			bfbx73.Culling("CullingOff"),
		)
		nodeAttributeId := f.GenerateId()
		nodeAttribute := bfbx73.NodeAttribute(
			nodeAttributeId, node.Name+"\x00\x01NodeAttribute", "Null").AddNodes(
			bfbx73.TypeFlags("Null"),
		)
		f.AddObjects(model, nodeAttribute)
		f.AddConnections(bfbx73.C("OO", nodeAttributeId, modelId))

		if node.ParentNodeIndex == meshdata.NoParentNodeIndex {
			f.ConnectToRoot(modelId)
		} else {
			f.AddConnections(bfbx73.C("OO", modelId, nodeModelIds[node.ParentNodeIndex]))
		}

		if len(node.Sections) == 0 {
			continue
		}

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

		bakedI, err := f.BuildFromSections(node.Name, transient.Sections(), fastBuild)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to bake node %d %q", iNode, node.Name)
		}
		for _, id := range bakedI.(*BakedModel).ModelIds {
			f.AddConnections(bfbx73.C("OO", id, modelId))
		}
	}

	return f, nil
}

var _ constructor.SectionBuilder = (*FBXBuilder)(nil)
