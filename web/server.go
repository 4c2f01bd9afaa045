// Package web serves the asset viewer: asset listing, import to the
// intermediate representation, conversion downloads and a websocket
// channel with live pipeline progress.
package web

import (
	"net/http"
	"os"
	"path"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

var assetsDirectory string

func StartServer(addr string, assetsDir string, webPath string) error {
	assetsDirectory = assetsDir

	r := mux.NewRouter()
	r.HandleFunc("/json/assets", HandlerAjaxAssets)
	r.HandleFunc("/json/asset/{file}", HandlerAjaxAsset)
	r.HandleFunc("/action/asset/{file}/gltf", HandlerActionAssetGltf)
	r.HandleFunc("/action/asset/{file}/fbx", HandlerActionAssetFbx)
	r.HandleFunc("/upload/asset", HandlerUploadAsset)
	r.HandleFunc("/ws", HandlerWebsocket)

	r.PathPrefix("/").Handler(http.FileServer(http.Dir(path.Join(webPath, "data"))))

	h := handlers.RecoveryHandler()(r)
	h = handlers.LoggingHandler(os.Stdout, h)

	logrus.WithFields(logrus.Fields{
		"addr":   addr,
		"assets": assetsDir,
	}).Info("Starting server")

	return http.ListenAndServe(addr, h)
}
