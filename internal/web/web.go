// Package web embeds the HTML templates and static assets.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

// Templates returns the template directory as a file system rooted at
// the templates themselves.
func Templates() fs.FS {
	fsys, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic(err) // the directory is embedded at build time
	}
	return fsys
}

// StaticFileServer serves the embedded static directory.
func StaticFileServer() http.Handler {
	fsys, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(fsys))
}
