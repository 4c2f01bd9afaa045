package web

import (
	"bytes"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/mogaika/assetimport/export/fbxexport"
	"github.com/mogaika/assetimport/export/gltfexport"
	"github.com/mogaika/assetimport/loader"
	"github.com/mogaika/assetimport/meshdata"
	"github.com/mogaika/assetimport/scene"
	"github.com/mogaika/assetimport/status"
	"github.com/mogaika/assetimport/webutils"
)

func isSupportedAsset(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, supported := range scene.SupportedExtensions() {
		if ext == supported {
			return true
		}
	}
	return false
}

// assetPath confines a request file name to the assets directory.
func assetPath(file string) string {
	return filepath.Join(assetsDirectory, filepath.Base(file))
}

func HandlerAjaxAssets(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(assetsDirectory)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	files := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() && isSupportedAsset(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	webutils.WriteJson(w, map[string]interface{}{
		"Files":               files,
		"SupportedExtensions": scene.SupportedExtensions(),
	})
}

type nodeSummary struct {
	Name            string
	ParentNodeIndex int
	Sections        []sectionSummary
}

type sectionSummary struct {
	Vertices      int
	Triangles     int
	MaterialIndex int
	HasNormals    bool
	HasUV0        bool
	HasColors     bool
	HasTangents   bool
}

type assetSummary struct {
	Nodes     []nodeSummary
	Materials []string
}

func summarize(md meshdata.LoadedMeshData) *assetSummary {
	summary := &assetSummary{}
	for _, node := range md.NodeList {
		ns := nodeSummary{
			Name:            node.Name,
			ParentNodeIndex: node.ParentNodeIndex,
		}
		for _, section := range node.Sections {
			ns.Sections = append(ns.Sections, sectionSummary{
				Vertices:      len(section.Vertices),
				Triangles:     len(section.Triangles) / 3,
				MaterialIndex: section.MaterialIndex,
				HasNormals:    len(section.Normals) != 0,
				HasUV0:        len(section.UV0) != 0,
				HasColors:     len(section.VertexColors0) != 0,
				HasTangents:   len(section.Tangents) != 0,
			})
		}
		summary.Nodes = append(summary.Nodes, ns)
	}
	for _, mat := range md.MaterialList {
		summary.Materials = append(summary.Materials, mat.ColorStatus.String())
	}
	return summary
}

func HandlerAjaxAsset(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	md, err := loader.LoadMeshFromAssetFile(assetPath(file))
	if err != nil {
		log.Printf("[web] Error importing asset %q: %v", file, err)
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJson(w, summarize(md))
}

func HandlerActionAssetGltf(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	fastBuild := r.URL.Query().Get("fast") != ""

	md, err := loader.LoadMeshFromAssetFile(assetPath(file))
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	doc, err := gltfexport.ExportMeshData(md, fastBuild)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := gltfexport.ExportBinary(&buf, doc); err != nil {
		webutils.WriteError(w, err)
		return
	}
	status.Info(status.StageExport, "Exported %q as glb (%d bytes)", file, buf.Len())
	webutils.WriteFile(w, &buf, file+".glb")
}

func HandlerActionAssetFbx(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	fastBuild := r.URL.Query().Get("fast") != ""

	md, err := loader.LoadMeshFromAssetFile(assetPath(file))
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	f, err := fbxexport.ExportMeshData(file, md, fastBuild)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := f.WriteZip(&buf, file+".fbx"); err != nil {
		webutils.WriteError(w, err)
		return
	}
	status.Info(status.StageExport, "Exported %q as fbx (%d bytes)", file, buf.Len())
	webutils.WriteFile(w, &buf, file+".zip")
}

// HandlerUploadAsset imports an uploaded asset in the background. The
// result summary arrives over the status websocket.
func HandlerUploadAsset(w http.ResponseWriter, r *http.Request) {
	data, name, err := webutils.ReadUploadFile(r, "asset")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	go func() {
		md, err := loader.LoadMeshFromAssetData(data, strings.ToLower(filepath.Ext(name)))
		if err != nil {
			status.Error(status.StageImport, "Failed to import uploaded %q: %v", name, err)
			return
		}
		status.Info(status.StageImport, "Imported %q: %d nodes, %d materials",
			name, len(md.NodeList), len(md.MaterialList))
	}()

	webutils.WriteJson(w, map[string]interface{}{"Started": true, "File": name})
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func HandlerWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] Failed to upgrade websocket: %v", err)
		return
	}
	status.NewClient(conn)
}
