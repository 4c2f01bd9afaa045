package main

import (
	"flag"
	"log"
	"os"

	"github.com/mogaika/assetimport/config"
	"github.com/mogaika/assetimport/web"

	_ "github.com/mogaika/assetimport/scene/gltfscene"
	_ "github.com/mogaika/assetimport/scene/objscene"
)

func main() {
	var addr, assetsDir, webDir, settingsPath, encoding, upAxis string
	var unitScale float64
	flag.StringVar(&addr, "i", ":8000", "Address of server")
	flag.StringVar(&assetsDir, "assets", "assets", "Path to folder with asset files")
	flag.StringVar(&webDir, "web", "web", "Path to folder with web viewer files")
	flag.StringVar(&settingsPath, "settings", "", "Path to yaml settings file")
	flag.StringVar(&encoding, "encoding", "", "Text encoding of legacy asset names")
	flag.StringVar(&upAxis, "upaxis", "", "Up axis of reconstruction target: y or z")
	flag.Float64Var(&unitScale, "unitscale", 0, "Unit scale override, 0 - use scene metadata")
	flag.Parse()

	settings := config.DefaultSettings()
	if settingsPath != "" {
		if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
			log.Printf("Settings %q not found, saving defaults", settingsPath)
			if err := config.SaveSettings(settingsPath, settings); err != nil {
				log.Fatal(err)
			}
		} else {
			var err error
			if settings, err = config.LoadSettings(settingsPath); err != nil {
				log.Fatal(err)
			}
		}
	}

	// flags override the settings file
	if addr != "" {
		settings.Addr = addr
	}
	if assetsDir != "" {
		settings.AssetsDirectory = assetsDir
	}
	if webDir != "" {
		settings.WebDirectory = webDir
	}
	if encoding != "" {
		settings.Encoding = encoding
	}
	if upAxis != "" {
		settings.UpAxis = upAxis
	}
	if unitScale != 0 {
		settings.UnitScaleOverride = float32(unitScale)
	}

	if err := settings.Apply(); err != nil {
		log.Fatal(err)
	}

	if err := web.StartServer(settings.Addr, settings.AssetsDirectory, settings.WebDirectory); err != nil {
		log.Fatal(err)
	}
}
