// Package web holds the embedded page templates and static assets.
package web

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed static templates
var assets embed.FS

// Static returns the files served under /static/.
func Static() fs.FS {
	return sub("static")
}

// Templates returns the layout and page templates.
func Templates() fs.FS {
	return sub("templates")
}

func sub(dir string) fs.FS {
	f, err := fs.Sub(assets, dir)
	if err != nil {
		// Both directories are embedded above.
		panic(fmt.Sprintf("embedded directory %s: %v", dir, err))
	}
	return f
}
