package catalog

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pavelanni/retina/internal/model"
)

//go:embed content/retina.yaml
var contentFS embed.FS

const defaultSource = "builtin:retina.yaml"

// Default returns the built-in retina curriculum.
func Default() (*Catalog, error) {
	data, err := contentFS.ReadFile("content/retina.yaml")
	if err != nil {
		return nil, fmt.Errorf("read builtin catalog: %w", err)
	}
	return parse(data, ".yaml", defaultSource)
}

// Load reads a catalog from a .json, .yaml or .yml file.
// An empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parse(data, strings.ToLower(filepath.Ext(path)), path)
}

func parse(data []byte, ext, source string) (*Catalog, error) {
	var f model.CatalogFile
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", source, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", source, err)
		}
	default:
		return nil, fmt.Errorf("parse %s: unsupported catalog format %q", source, ext)
	}

	c, err := New(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}
	c.hash = sha256sum(data)
	c.source = source

	slog.Debug("catalog loaded", "source", source, "modules", len(c.modules), "cases", len(c.cases))
	return c, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
