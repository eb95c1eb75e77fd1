package httpapi

import (
	"embed"
	"io/fs"
)

//go:embed assets/index.html assets/app.js assets/app.css
var embeddedAssets embed.FS

// assetsFS is the control page rooted at assets/.
var assetsFS = mustSub(embeddedAssets, "assets")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
