package infrastructure

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"dashboardWs/internal/modules/dashboard/domain"
)

// ReadJSONOrYAML returns the JSON encoding of a .json, .yaml or .yml file.
func ReadJSONOrYAML(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlToJSON(raw)
	default:
		return raw, nil
	}
}

func yamlToJSON(raw []byte) ([]byte, error) {
	var tree any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return json.Marshal(tree)
}

// LoadLayoutFile reads a layout envelope, or a bare node list which is taken as v0.
func LoadLayoutFile(path string) (domain.Layout, error) {
	raw, err := ReadJSONOrYAML(path)
	if err != nil {
		return domain.Layout{}, err
	}
	if trimmed := strings.TrimSpace(string(raw)); strings.HasPrefix(trimmed, "[") {
		raw = []byte(`{"version":"v0","layout":` + trimmed + `}`)
	}
	layout, err := domain.DecodeLayout(raw)
	if err != nil {
		return domain.Layout{}, fmt.Errorf("%s: %w", path, err)
	}
	return layout, nil
}

// LoadDocumentFile reads a JSON or YAML data document.
func LoadDocumentFile(path string) (domain.Document, error) {
	raw, err := ReadJSONOrYAML(path)
	if err != nil {
		return domain.Document{}, err
	}
	doc, err := domain.NewDocument(raw)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// LoadPatchFile reads a JSON or YAML RFC 6902 operation list.
func LoadPatchFile(path string) (domain.Patch, error) {
	raw, err := ReadJSONOrYAML(path)
	if err != nil {
		return nil, err
	}
	p, err := domain.DecodePatch(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// LoadLayoutDir loads every layout file in dir, keyed by dashboard id (the file name
// without extension).
func LoadLayoutDir(dir string) (map[string]domain.Layout, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	layouts := make(map[string]domain.Layout, len(names))
	for _, name := range names {
		id := domain.NormalizeDashboardID(strings.TrimSuffix(name, filepath.Ext(name)))
		if _, dup := layouts[id]; dup {
			return nil, fmt.Errorf("dashboard %q defined twice in %s", id, dir)
		}
		layout, err := LoadLayoutFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		layouts[id] = layout
	}
	return layouts, nil
}
