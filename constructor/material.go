package constructor

import (
	"bytes"
	"fmt"
	"image"
	"log"

	// texture payloads are png or jpeg
	_ "image/jpeg"
	_ "image/png"

	"github.com/mogaika/assetimport/meshdata"
	"github.com/mogaika/assetimport/utils"
)

// Parameter names every base material used for imported meshes must
// declare. The blend intensity selects between the flat color (0) and
// the texture (1).
const (
	ParamBaseColor    = "BaseColor4"
	ParamBaseTexture  = "BaseColorTexture"
	ParamTextureBlend = "TextureBlendIntensityForBaseColor"
)

// BaseMaterial is a host material template: a set of declared parameters
// with default values. Instances override parameters per mesh section.
type BaseMaterial struct {
	Name string

	scalarDefaults  map[string]float32
	vectorDefaults  map[string]utils.ColorFloat
	textureDefaults map[string]image.Image
}

func NewBaseMaterial(name string) *BaseMaterial {
	return &BaseMaterial{
		Name:            name,
		scalarDefaults:  make(map[string]float32),
		vectorDefaults:  make(map[string]utils.ColorFloat),
		textureDefaults: make(map[string]image.Image),
	}
}

// DefaultImportMaterial declares the three parameters the importer
// assigns.
func DefaultImportMaterial() *BaseMaterial {
	m := NewBaseMaterial("ImportBaseMaterial")
	m.DeclareVectorParameter(ParamBaseColor, utils.ColorFloat{1, 1, 1, 1})
	m.DeclareScalarParameter(ParamTextureBlend, 0)
	m.DeclareTextureParameter(ParamBaseTexture, nil)
	return m
}

func (m *BaseMaterial) DeclareScalarParameter(name string, def float32) {
	m.scalarDefaults[name] = def
}

func (m *BaseMaterial) DeclareVectorParameter(name string, def utils.ColorFloat) {
	m.vectorDefaults[name] = def
}

func (m *BaseMaterial) DeclareTextureParameter(name string, def image.Image) {
	m.textureDefaults[name] = def
}

func (m *BaseMaterial) HasScalarParameter(name string) bool {
	_, ok := m.scalarDefaults[name]
	return ok
}

func (m *BaseMaterial) HasVectorParameter(name string) bool {
	_, ok := m.vectorDefaults[name]
	return ok
}

func (m *BaseMaterial) HasTextureParameter(name string) bool {
	_, ok := m.textureDefaults[name]
	return ok
}

// MaterialInstance is one parameterization of a base material.
type MaterialInstance struct {
	Base *BaseMaterial
	Name string

	scalars  map[string]float32
	vectors  map[string]utils.ColorFloat
	textures map[string]image.Image
}

func NewMaterialInstance(base *BaseMaterial, name string) *MaterialInstance {
	if base == nil {
		log.Panicf("[constructor] Material instance %q created without a base material", name)
	}
	return &MaterialInstance{
		Base:     base,
		Name:     name,
		scalars:  make(map[string]float32),
		vectors:  make(map[string]utils.ColorFloat),
		textures: make(map[string]image.Image),
	}
}

func (mi *MaterialInstance) SetScalarParameter(name string, v float32) {
	if !mi.Base.HasScalarParameter(name) {
		log.Panicf("[constructor] Base material %q has no scalar parameter %q", mi.Base.Name, name)
	}
	mi.scalars[name] = v
}

func (mi *MaterialInstance) SetVectorParameter(name string, v utils.ColorFloat) {
	if !mi.Base.HasVectorParameter(name) {
		log.Panicf("[constructor] Base material %q has no vector parameter %q", mi.Base.Name, name)
	}
	mi.vectors[name] = v
}

func (mi *MaterialInstance) SetTextureParameter(name string, img image.Image) {
	if !mi.Base.HasTextureParameter(name) {
		log.Panicf("[constructor] Base material %q has no texture parameter %q", mi.Base.Name, name)
	}
	mi.textures[name] = img
}

func (mi *MaterialInstance) ScalarParameter(name string) float32 {
	if v, ok := mi.scalars[name]; ok {
		return v
	}
	return mi.Base.scalarDefaults[name]
}

func (mi *MaterialInstance) VectorParameter(name string) utils.ColorFloat {
	if v, ok := mi.vectors[name]; ok {
		return v
	}
	return mi.Base.vectorDefaults[name]
}

func (mi *MaterialInstance) TextureParameter(name string) image.Image {
	if v, ok := mi.textures[name]; ok {
		return v
	}
	return mi.Base.textureDefaults[name]
}

// GenerateMaterialInstances creates one instance per loaded material,
// index-aligned with the material list. The base material must declare
// the import parameters; a missing declaration is a setup error, not a
// data error.
func GenerateMaterialInstances(materials []meshdata.LoadedMaterialData, base *BaseMaterial) []*MaterialInstance {
	if base == nil {
		log.Panicf("[constructor] Cannot generate material instances without a base material")
	}
	if !base.HasVectorParameter(ParamBaseColor) ||
		!base.HasScalarParameter(ParamTextureBlend) ||
		!base.HasTextureParameter(ParamBaseTexture) {
		log.Panicf("[constructor] Base material %q does not declare %q, %q and %q",
			base.Name, ParamBaseColor, ParamTextureBlend, ParamBaseTexture)
	}

	instances := make([]*MaterialInstance, len(materials))
	for iMat, mat := range materials {
		inst := NewMaterialInstance(base, fmt.Sprintf("%s_%d", base.Name, iMat))

		switch mat.ColorStatus {
		case meshdata.ColorIsSet:
			inst.SetVectorParameter(ParamBaseColor, mat.Color)
			inst.SetScalarParameter(ParamTextureBlend, 0)
		case meshdata.TextureIsSet:
			img, format, err := image.Decode(bytes.NewReader(mat.CompressedTextureData))
			if err != nil {
				log.Printf("[constructor] Failed to decode texture of material %d: %v, keeping base parameters", iMat, err)
				break
			}
			log.Printf("[constructor] Material %d texture decoded as %s %v", iMat, format, img.Bounds().Size())
			inst.SetTextureParameter(ParamBaseTexture, img)
			inst.SetScalarParameter(ParamTextureBlend, 1)
		case meshdata.TextureLoadError:
			log.Printf("[constructor] Material %d failed to load its texture, keeping base parameters", iMat)
		default:
			log.Printf("[constructor] Material %d carries no color data, keeping base parameters", iMat)
		}

		instances[iMat] = inst
	}
	return instances
}
