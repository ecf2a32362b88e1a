package stores

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Default string  `yaml:"default"`
	Stores  []Store `yaml:"stores"`
}

// LoadFile reads a YAML catalog. An empty default falls back to the first store.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read store catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse store catalog: %w", err)
	}
	if len(f.Stores) == 0 {
		return nil, fmt.Errorf("store catalog %s has no stores", path)
	}
	if f.Default == "" {
		f.Default = f.Stores[0].ID
	}
	return NewCatalog(f.Default, f.Stores...)
}

// Load returns the catalog at path, or the builtin catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Builtin(), nil
	}
	return LoadFile(path)
}
