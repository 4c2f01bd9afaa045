// Package gltfscene decodes glTF 2.0 assets (both .gltf and binary .glb)
// into the scene model.
package gltfscene

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/assetimport/scene"
	"github.com/mogaika/assetimport/utils"
)

type Format struct{}

func (Format) DecodeFile(path string) (*scene.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open gltf")
	}
	return convertDocument(doc)
}

func (Format) DecodeData(data []byte) (*scene.Scene, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode gltf")
	}
	return convertDocument(doc)
}

func init() {
	scene.SetFormatHandler(Format{}, ".gltf", ".glb")
}

type converter struct {
	doc *gltf.Document
	s   *scene.Scene

	// gltf meshes are split per primitive; meshRanges[i] lists the
	// scene mesh indices produced from doc.Meshes[i].
	meshRanges [][]int
}

func convertDocument(doc *gltf.Document) (*scene.Scene, error) {
	c := &converter{
		doc: doc,
		s:   &scene.Scene{},
	}

	if err := c.convertMeshes(); err != nil {
		return nil, err
	}
	c.convertMaterials()
	c.convertTextures()

	if err := c.convertNodeTree(); err != nil {
		return nil, err
	}

	return c.s, nil
}

func (c *converter) rootNodeIndices() []uint32 {
	iScene := 0
	if c.doc.Scene != nil {
		iScene = int(*c.doc.Scene)
	}
	if iScene >= len(c.doc.Scenes) {
		return nil
	}
	return c.doc.Scenes[iScene].Nodes
}

func (c *converter) convertNodeTree() error {
	roots := c.rootNodeIndices()
	if len(roots) == 0 {
		return errors.Errorf("Document has no scene nodes")
	}

	if len(roots) == 1 {
		root, err := c.convertNode(roots[0])
		if err != nil {
			return err
		}
		c.s.Root = root
		return nil
	}

	// several scene roots: synthesize a shared one, the way importer
	// libraries present multi-root files
	root := &scene.Node{
		Name:      "RootNode",
		Transform: mgl32.Ident4(),
	}
	for _, iNode := range roots {
		child, err := c.convertNode(iNode)
		if err != nil {
			return err
		}
		root.Children = append(root.Children, child)
	}
	c.s.Root = root
	return nil
}

func (c *converter) convertNode(iNode uint32) (*scene.Node, error) {
	if int(iNode) >= len(c.doc.Nodes) {
		return nil, errors.Errorf("Node index %d out of range", iNode)
	}
	gn := c.doc.Nodes[iNode]

	n := &scene.Node{
		Name:      gn.Name,
		Transform: nodeTransform(gn),
	}

	if gn.Mesh != nil {
		if int(*gn.Mesh) >= len(c.meshRanges) {
			return nil, errors.Errorf("Mesh index %d out of range", *gn.Mesh)
		}
		n.Meshes = append(n.Meshes, c.meshRanges[*gn.Mesh]...)
	}

	for _, iChild := range gn.Children {
		child, err := c.convertNode(iChild)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

var identityMatrix = [16]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1}

func nodeTransform(gn *gltf.Node) mgl32.Mat4 {
	if gn.Matrix != identityMatrix && gn.Matrix != [16]float32{} {
		// gltf matrices are column-major, same as mgl32
		return mgl32.Mat4(gn.Matrix)
	}

	rotation := mgl32.Quat{
		W: gn.Rotation[3],
		V: mgl32.Vec3{gn.Rotation[0], gn.Rotation[1], gn.Rotation[2]},
	}
	if rotation.Len() == 0 {
		rotation = mgl32.QuatIdent()
	}
	scale := mgl32.Vec3(gn.Scale)
	if scale.Len() == 0 {
		scale = mgl32.Vec3{1, 1, 1}
	}

	return utils.TRSToMat4(mgl32.Vec3(gn.Translation), rotation, scale)
}

func (c *converter) convertMeshes() error {
	c.meshRanges = make([][]int, len(c.doc.Meshes))

	for iMesh, gm := range c.doc.Meshes {
		for iPrim, prim := range gm.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				return errors.Errorf("Primitive %d of mesh %q is not triangles", iPrim, gm.Name)
			}

			m, err := c.convertPrimitive(gm, prim, iPrim)
			if err != nil {
				return errors.Wrapf(err, "Failed to convert primitive %d of mesh %q", iPrim, gm.Name)
			}

			c.meshRanges[iMesh] = append(c.meshRanges[iMesh], len(c.s.Meshes))
			c.s.Meshes = append(c.s.Meshes, m)
		}
	}
	return nil
}

func (c *converter) convertPrimitive(gm *gltf.Mesh, prim *gltf.Primitive, iPrim int) (*scene.Mesh, error) {
	m := &scene.Mesh{
		Name:          gm.Name,
		MaterialIndex: 0,
	}
	if iPrim > 0 {
		m.Name = fmt.Sprintf("%s_prim%d", gm.Name, iPrim)
	}
	if prim.Material != nil {
		m.MaterialIndex = int(*prim.Material)
	}

	iPosition, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, errors.Errorf("Primitive has no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(c.doc, c.doc.Accessors[iPosition], nil)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read positions")
	}
	m.Vertices = make([]mgl32.Vec3, len(positions))
	for i, p := range positions {
		m.Vertices[i] = mgl32.Vec3(p)
	}

	if iNormal, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := modeler.ReadNormal(c.doc, c.doc.Accessors[iNormal], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read normals")
		}
		m.Normals = make([]mgl32.Vec3, len(normals))
		for i, n := range normals {
			m.Normals[i] = mgl32.Vec3(n)
		}
	}

	if iUV, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err := modeler.ReadTextureCoord(c.doc, c.doc.Accessors[iUV], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read texture coords")
		}
		m.UV0 = make([]mgl32.Vec2, len(uvs))
		for i, uv := range uvs {
			m.UV0[i] = mgl32.Vec2(uv)
		}
	}

	if iColor, ok := prim.Attributes["COLOR_0"]; ok {
		colors, err := modeler.ReadColor(c.doc, c.doc.Accessors[iColor], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read colors")
		}
		m.Colors0 = make([]utils.ColorFloat, len(colors))
		for i, col := range colors {
			m.Colors0[i] = utils.ColorFloat{
				float32(col[0]) / 255.0,
				float32(col[1]) / 255.0,
				float32(col[2]) / 255.0,
				float32(col[3]) / 255.0}
		}
	}

	if iTangent, ok := prim.Attributes["TANGENT"]; ok {
		tangents, err := modeler.ReadTangent(c.doc, c.doc.Accessors[iTangent], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read tangents")
		}
		m.Tangents = make([]mgl32.Vec4, len(tangents))
		for i, t := range tangents {
			m.Tangents[i] = mgl32.Vec4(t)
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(c.doc, c.doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read indices")
		}
	} else {
		indices = make([]uint32, len(m.Vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return nil, errors.Errorf("Index count %d is not a multiple of 3", len(indices))
	}
	m.Faces = make([][]int32, 0, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		m.Faces = append(m.Faces,
			[]int32{int32(indices[i]), int32(indices[i+1]), int32(indices[i+2])})
	}

	return m, nil
}

func (c *converter) convertMaterials() {
	for iMat, gm := range c.doc.Materials {
		mat := &scene.Material{Name: gm.Name}

		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				color := utils.NewColorFloatA((*pbr.BaseColorFactor)[:])
				mat.DiffuseColor = &color
			}
			if pbr.BaseColorTexture != nil {
				mat.DiffuseTextures = append(mat.DiffuseTextures,
					c.textureName(pbr.BaseColorTexture.Index))
			}
		}
		if mat.DiffuseColor == nil && len(mat.DiffuseTextures) == 0 {
			// gltf default base color is opaque white
			color := utils.ColorFloat{1, 1, 1, 1}
			mat.DiffuseColor = &color
		}

		if mat.Name == "" {
			mat.Name = fmt.Sprintf("material_%d", iMat)
		}
		c.s.Materials = append(c.s.Materials, mat)
	}
}

func (c *converter) textureName(iTexture uint32) string {
	if int(iTexture) >= len(c.doc.Textures) {
		return fmt.Sprintf("*%d", iTexture)
	}
	t := c.doc.Textures[iTexture]
	if t.Source == nil || int(*t.Source) >= len(c.doc.Images) {
		return fmt.Sprintf("*%d", iTexture)
	}
	return imageName(c.doc.Images[*t.Source], int(*t.Source))
}

func imageName(img *gltf.Image, iImage int) string {
	if img.Name != "" {
		return img.Name
	}
	if img.URI != "" && !strings.HasPrefix(img.URI, "data:") {
		return img.URI
	}
	return fmt.Sprintf("*%d", iImage)
}

// convertTextures builds the embedded texture table. gltf embeds images
// either as buffer views or as data uris; plain file uris stay external
// and are left out of the table on purpose.
func (c *converter) convertTextures() {
	for iImage, img := range c.doc.Images {
		var data []byte

		switch {
		case img.BufferView != nil:
			bv := c.doc.BufferViews[*img.BufferView]
			buffer := c.doc.Buffers[bv.Buffer]
			if int(bv.ByteOffset+bv.ByteLength) > len(buffer.Data) {
				continue
			}
			data = buffer.Data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength]
		case strings.HasPrefix(img.URI, "data:"):
			iComma := strings.IndexByte(img.URI, ',')
			if iComma < 0 {
				continue
			}
			decoded, err := base64.StdEncoding.DecodeString(img.URI[iComma+1:])
			if err != nil {
				continue
			}
			data = decoded
		default:
			continue
		}

		c.s.Textures = append(c.s.Textures, &scene.EmbeddedTexture{
			Name: imageName(img, iImage),
			Data: data,
			// Height 0: payload is already compressed
			Width:  len(data),
			Height: 0,
		})
	}
}
