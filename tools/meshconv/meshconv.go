// meshconv imports an asset file and exports it as binary glTF or FBX.
package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mogaika/assetimport/config"
	"github.com/mogaika/assetimport/export/fbxexport"
	"github.com/mogaika/assetimport/export/gltfexport"
	"github.com/mogaika/assetimport/loader"
	"github.com/mogaika/assetimport/utils"

	_ "github.com/mogaika/assetimport/scene/gltfscene"
	_ "github.com/mogaika/assetimport/scene/objscene"
)

func main() {
	var in, out, upAxis string
	var dump, fast bool
	var unitScale float64
	flag.StringVar(&in, "in", "", "Input asset file (gltf, glb, obj)")
	flag.StringVar(&out, "out", "", "Output file (.glb or .fbx)")
	flag.BoolVar(&dump, "dump", false, "Dump intermediate mesh data to stdout")
	flag.BoolVar(&fast, "fast", false, "Skip optional vertex channels on export")
	flag.StringVar(&upAxis, "upaxis", "", "Up axis of reconstruction target: y or z")
	flag.Float64Var(&unitScale, "unitscale", 0, "Unit scale override, 0 - use scene metadata")
	flag.Parse()

	if in == "" || out == "" {
		flag.PrintDefaults()
		return
	}

	settings := config.DefaultSettings()
	settings.UpAxis = upAxis
	settings.UnitScaleOverride = float32(unitScale)
	if err := settings.Apply(); err != nil {
		logrus.Fatal(err)
	}

	md, err := loader.LoadMeshFromAssetFile(in)
	if err != nil {
		logrus.WithError(err).Fatal("Import failed")
	}
	logrus.WithFields(logrus.Fields{
		"nodes":     len(md.NodeList),
		"materials": len(md.MaterialList),
	}).Info("Imported")

	if dump {
		utils.Dump(md)
	}

	f, err := os.Create(out)
	if err != nil {
		logrus.Fatal(err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))

	switch strings.ToLower(filepath.Ext(out)) {
	case ".glb":
		doc, err := gltfexport.ExportMeshData(md, fast)
		if err != nil {
			logrus.WithError(err).Fatal("Export failed")
		}
		if err := gltfexport.ExportBinary(f, doc); err != nil {
			logrus.WithError(err).Fatal("Export failed")
		}
	case ".fbx":
		builder, err := fbxexport.ExportMeshData(name, md, fast)
		if err != nil {
			logrus.WithError(err).Fatal("Export failed")
		}
		if err := builder.Write(f); err != nil {
			logrus.WithError(err).Fatal("Export failed")
		}
	default:
		logrus.Fatalf("Unsupported output format %q", filepath.Ext(out))
	}

	logrus.WithField("out", out).Info("Done")
}
