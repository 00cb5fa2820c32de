// Package assets looks up optional topic images. A missing or unreadable
// image is reported as unavailable, never as an error.
package assets

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
)

// Image describes the lookup result for one asset name.
type Image struct {
	Name        string
	Available   bool
	ContentType string
	Width       int
	Height      int
}

// Library resolves image names inside one directory.
type Library struct {
	fsys fs.FS
}

// New returns a Library rooted at dir. An empty dir yields a library in which
// nothing is available.
func New(dir string) *Library {
	if dir == "" {
		return &Library{}
	}
	return &Library{fsys: os.DirFS(dir)}
}

// NewFS returns a Library over an fs.FS.
func NewFS(fsys fs.FS) *Library {
	return &Library{fsys: fsys}
}

// Lookup reports whether name can be displayed.
func (l *Library) Lookup(name string) Image {
	img := Image{Name: name}
	data, ok := l.read(name)
	if !ok {
		return img
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		slog.Debug("asset unavailable", "name", name, "reason", "decode", "error", err)
		return img
	}
	img.Available = true
	img.ContentType = http.DetectContentType(data)
	img.Width = cfg.Width
	img.Height = cfg.Height
	return img
}

// Open returns the bytes and content type of an available image.
func (l *Library) Open(name string) ([]byte, string, bool) {
	data, ok := l.read(name)
	if !ok {
		return nil, "", false
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, "", false
	}
	return data, http.DetectContentType(data), true
}

func (l *Library) read(name string) ([]byte, bool) {
	if l.fsys == nil || name == "" {
		return nil, false
	}
	clean := path.Clean(name)
	if !fs.ValidPath(clean) || clean != name {
		slog.Debug("asset unavailable", "name", name, "reason", "invalid path")
		return nil, false
	}
	data, err := fs.ReadFile(l.fsys, clean)
	if err != nil {
		slog.Debug("asset unavailable", "name", name, "reason", "read", "error", err)
		return nil, false
	}
	return data, true
}
