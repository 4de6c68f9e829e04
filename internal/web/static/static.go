// Package static embeds the browser dashboard.
package static

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed public
var publicFS embed.FS

// FS returns the dashboard files rooted at public/
func FS() fs.FS {
	fsys, err := fs.Sub(publicFS, "public")
	if err != nil {
		panic(err)
	}
	return fsys
}

// Handler returns an http.Handler that serves the dashboard
func Handler() http.Handler {
	return http.FileServer(http.FS(FS()))
}
