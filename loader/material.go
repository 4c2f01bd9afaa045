package loader

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"log"

	"github.com/pkg/errors"

	"github.com/mogaika/assetimport/meshdata"
	"github.com/mogaika/assetimport/scene"
)

// extractMaterials maps scene materials onto loaded material data,
// index-aligned with the source list. At most one diffuse texture per
// material is supported; more is an importer contract violation.
func extractMaterials(s *scene.Scene) []meshdata.LoadedMaterialData {
	if len(s.Materials) == 0 {
		return nil
	}

	materials := make([]meshdata.LoadedMaterialData, len(s.Materials))
	for iMat, mat := range s.Materials {
		materials[iMat] = extractMaterial(s, mat)
	}
	return materials
}

func extractMaterial(s *scene.Scene, mat *scene.Material) meshdata.LoadedMaterialData {
	if len(mat.DiffuseTextures) > 1 {
		log.Panicf("[loader] Material %q has %d diffuse textures, only one is supported",
			mat.Name, len(mat.DiffuseTextures))
	}

	if len(mat.DiffuseTextures) == 1 {
		return extractTextureMaterial(s, mat)
	}

	// flat color path, best effort
	md := meshdata.LoadedMaterialData{ColorStatus: meshdata.ColorIsSet}
	if mat.DiffuseColor != nil {
		md.Color = *mat.DiffuseColor
	} else {
		log.Printf("[loader] Material %q has no diffuse color, using zero color", mat.Name)
	}
	return md
}

func extractTextureMaterial(s *scene.Scene, mat *scene.Material) meshdata.LoadedMaterialData {
	name := mat.DiffuseTextures[0]
	texture := s.EmbeddedTexture(name)
	if texture == nil {
		log.Printf("[loader] Material %q references texture %q that is not embedded", mat.Name, name)
		return meshdata.LoadedMaterialData{ColorStatus: meshdata.TextureLoadError}
	}

	data, err := compressedTextureData(texture)
	if err != nil {
		log.Printf("[loader] Material %q texture %q: %v", mat.Name, name, err)
		return meshdata.LoadedMaterialData{ColorStatus: meshdata.TextureLoadError}
	}
	return meshdata.LoadedMaterialData{
		ColorStatus:           meshdata.TextureIsSet,
		CompressedTextureData: data,
	}
}

// compressedTextureData returns the texture payload in a compressed image
// format. Raw BGRA payloads are re-encoded to png so the intermediate
// representation never carries uncompressed pixels.
func compressedTextureData(t *scene.EmbeddedTexture) ([]byte, error) {
	if t.Height == 0 {
		return t.Data, nil
	}
	if len(t.Data) < t.Width*t.Height*4 {
		return nil, errors.Errorf("Raw texture payload is %d bytes, expected %d for %dx%d bgra",
			len(t.Data), t.Width*t.Height*4, t.Width, t.Height)
	}

	img := image.NewNRGBA(image.Rect(0, 0, t.Width, t.Height))
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			o := (y*t.Width + x) * 4
			img.SetNRGBA(x, y, color.NRGBA{
				R: t.Data[o+2],
				G: t.Data[o+1],
				B: t.Data[o+0],
				A: t.Data[o+3]})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
