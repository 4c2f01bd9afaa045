// Package objscene decodes Wavefront OBJ assets with an optional MTL
// sidecar. OBJ has no hierarchy: every object ("o"/"g" group) becomes a
// child of a synthetic root with an identity transform.
package objscene

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/assetimport/scene"
	"github.com/mogaika/assetimport/utils"
)

type Format struct{}

func (Format) DecodeFile(path string) (*scene.Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open obj")
	}
	defer f.Close()

	p := newParser(filepath.Dir(path))
	return p.parse(f)
}

func (Format) DecodeData(data []byte) (*scene.Scene, error) {
	// no directory: mtllib references cannot be resolved
	p := newParser("")
	return p.parse(bytes.NewReader(data))
}

func init() {
	scene.SetFormatHandler(Format{}, ".obj")
}

type objMaterial struct {
	name       string
	color      *utils.ColorFloat
	textureMap string
}

type parser struct {
	dir string

	positions []mgl32.Vec3
	normals   []mgl32.Vec3
	uvs       []mgl32.Vec2

	materials     []*objMaterial
	materialIndex map[string]int

	s *scene.Scene

	current     *scene.Mesh
	currentNode *scene.Node

	// obj indexes positions/uvs/normals independently; meshes index one
	// vertex stream, so face corners are deduplicated per mesh
	cornerIndex map[[3]int32]int32
}

func newParser(dir string) *parser {
	root := &scene.Node{
		Name:      "RootNode",
		Transform: mgl32.Ident4(),
	}
	return &parser{
		dir:           dir,
		materialIndex: make(map[string]int),
		s:             &scene.Scene{Root: root},
	}
}

func (p *parser) parse(r io.Reader) (*scene.Scene, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	iLine := 0
	for scanner.Scan() {
		iLine++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		ident, val := fields[0], fields[1:]

		var err error
		switch ident {
		case "v":
			err = p.parseVec3(val, &p.positions)
		case "vn":
			err = p.parseVec3(val, &p.normals)
		case "vt":
			err = p.parseVec2(val, &p.uvs)
		case "o", "g":
			p.startObject(strings.Join(val, " "))
		case "usemtl":
			p.useMaterial(strings.Join(val, " "))
		case "mtllib":
			if p.dir != "" {
				if err := p.parseMtl(filepath.Join(p.dir, strings.Join(val, " "))); err != nil {
					return nil, err
				}
			}
		case "f":
			err = p.parseFace(val)
		default:
			// s, l, p and friends are not meaningful for import
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to parse obj line %d %q", iLine, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "Failed to read obj")
	}

	if len(p.s.Meshes) == 0 {
		return nil, errors.Errorf("Obj contains no faces")
	}
	if len(p.s.Materials) == 0 {
		// faces without any usemtl still need a material slot
		color := utils.ColorFloat{0.8, 0.8, 0.8, 1}
		p.s.Materials = append(p.s.Materials, &scene.Material{
			Name:         "default",
			DiffuseColor: &color,
		})
	}
	return p.s, nil
}

func (p *parser) parseVec3(val []string, out *[]mgl32.Vec3) error {
	if len(val) < 3 {
		return errors.Errorf("Expected 3 components, got %d", len(val))
	}
	var v mgl32.Vec3
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(val[i], 32)
		if err != nil {
			return errors.Wrapf(err, "Bad float %q", val[i])
		}
		v[i] = float32(f)
	}
	*out = append(*out, v)
	return nil
}

func (p *parser) parseVec2(val []string, out *[]mgl32.Vec2) error {
	if len(val) < 2 {
		return errors.Errorf("Expected 2 components, got %d", len(val))
	}
	var v mgl32.Vec2
	for i := 0; i < 2; i++ {
		f, err := strconv.ParseFloat(val[i], 32)
		if err != nil {
			return errors.Wrapf(err, "Bad float %q", val[i])
		}
		v[i] = float32(f)
	}
	// obj uv origin is bottom-left, target convention is top-left
	v[1] = 1.0 - v[1]
	*out = append(*out, v)
	return nil
}

func (p *parser) startObject(name string) {
	node := &scene.Node{
		Name:      utils.BytesToString([]byte(name)),
		Transform: mgl32.Ident4(),
	}
	p.s.Root.Children = append(p.s.Root.Children, node)
	p.currentNode = node
	p.current = nil
}

func (p *parser) useMaterial(name string) {
	iMat, ok := p.materialIndex[name]
	if !ok {
		// referenced but not declared: keep the slot, color stays unknown
		iMat = len(p.s.Materials)
		p.materialIndex[name] = iMat
		p.s.Materials = append(p.s.Materials, &scene.Material{
			Name: utils.BytesToString([]byte(name)),
		})
		p.materials = append(p.materials, &objMaterial{name: name})
	}

	if p.current != nil && p.current.MaterialIndex == iMat {
		return
	}
	p.startMesh(iMat)
}

func (p *parser) startMesh(iMat int) {
	node := p.currentNode
	if node == nil {
		p.startObject("default")
		node = p.currentNode
	}

	m := &scene.Mesh{
		Name:          node.Name,
		MaterialIndex: iMat,
	}
	node.Meshes = append(node.Meshes, len(p.s.Meshes))
	p.s.Meshes = append(p.s.Meshes, m)
	p.current = m
	p.cornerIndex = make(map[[3]int32]int32)
}

func (p *parser) parseFace(val []string) error {
	if p.current == nil {
		p.startMesh(0)
	}
	if len(val) < 3 {
		return errors.Errorf("Face with %d corners", len(val))
	}

	corners := make([]int32, len(val))
	for i, s := range val {
		idx, err := p.faceCorner(s)
		if err != nil {
			return err
		}
		corners[i] = idx
	}

	// fan-triangulate, obj allows arbitrary polygons
	for i := 1; i+1 < len(corners); i++ {
		p.current.Faces = append(p.current.Faces,
			[]int32{corners[0], corners[i], corners[i+1]})
	}
	return nil
}

func (p *parser) faceCorner(s string) (int32, error) {
	idx := strings.Split(s, "/")

	pos, err := p.resolveIndex(idx[0], len(p.positions))
	if err != nil {
		return 0, err
	}
	uv, norm := int32(-1), int32(-1)
	if len(idx) > 1 && idx[1] != "" {
		if uv, err = p.resolveIndex(idx[1], len(p.uvs)); err != nil {
			return 0, err
		}
	}
	if len(idx) > 2 && idx[2] != "" {
		if norm, err = p.resolveIndex(idx[2], len(p.normals)); err != nil {
			return 0, err
		}
	}

	key := [3]int32{pos, uv, norm}
	if existing, ok := p.cornerIndex[key]; ok {
		return existing, nil
	}

	m := p.current
	iVertex := int32(len(m.Vertices))
	m.Vertices = append(m.Vertices, p.positions[pos])
	if uv >= 0 {
		m.UV0 = append(m.UV0, p.uvs[uv])
	}
	if norm >= 0 {
		m.Normals = append(m.Normals, p.normals[norm])
	}
	p.cornerIndex[key] = iVertex
	return iVertex, nil
}

func (p *parser) resolveIndex(s string, count int) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "Bad index %q", s)
	}
	if v < 0 {
		// negative indices are relative to the end of the list
		v = int64(count) + v
	} else {
		v-- // obj indices start at 1
	}
	if v < 0 || v >= int64(count) {
		return 0, errors.Errorf("Index %q out of range (have %d)", s, count)
	}
	return int32(v), nil
}

func (p *parser) parseMtl(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to open mtl %q", path)
	}
	defer f.Close()

	var current *objMaterial
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		ident, val := fields[0], fields[1:]

		switch ident {
		case "newmtl":
			name := strings.Join(val, " ")
			current = &objMaterial{name: name}
			p.materials = append(p.materials, current)
			p.materialIndex[name] = len(p.s.Materials)
			p.s.Materials = append(p.s.Materials, &scene.Material{
				Name: utils.BytesToString([]byte(name)),
			})
		case "Kd":
			if current == nil || len(val) < 3 {
				continue
			}
			var c [3]float32
			for i := 0; i < 3; i++ {
				f64, err := strconv.ParseFloat(val[i], 32)
				if err != nil {
					continue
				}
				c[i] = float32(f64)
			}
			color := utils.NewColorFloat(c[:])
			current.color = &color
			p.s.Materials[p.materialIndex[current.name]].DiffuseColor = &color
		case "map_Kd":
			if current == nil || len(val) == 0 {
				continue
			}
			texture := val[len(val)-1]
			current.textureMap = texture
			mat := p.s.Materials[p.materialIndex[current.name]]
			mat.DiffuseTextures = append(mat.DiffuseTextures, texture)
			p.embedTexture(texture)
		}
	}
	return scanner.Err()
}

// embedTexture pulls a map_Kd image file into the embedded texture table
// when it sits next to the asset and is already in a compressed format.
// Anything else stays an external reference.
func (p *parser) embedTexture(name string) {
	if p.s.EmbeddedTexture(name) != nil {
		return
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
	default:
		return
	}
	data, err := os.ReadFile(filepath.Join(p.dir, name))
	if err != nil {
		return
	}
	p.s.Textures = append(p.s.Textures, &scene.EmbeddedTexture{
		Name:   name,
		Data:   data,
		Width:  len(data),
		Height: 0,
	})
}
