package sector

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the startup-resolved sector table: the builtin configuration with
// any display or availability overrides applied. It is immutable once built.
type Catalog struct {
	sectors map[Key]Config
}

// Override adjusts display metadata and availability of one sector. Operation
// kind and base experience are not overridable.
type Override struct {
	Name      *string `yaml:"name"`
	Color     *string `yaml:"color"`
	Available *bool   `yaml:"available"`
}

type overlayFile struct {
	Sectors map[string]Override `yaml:"sectors"`
}

// DefaultCatalog returns the builtin catalog.
func DefaultCatalog() *Catalog {
	c := &Catalog{sectors: make(map[Key]Config, len(Keys))}
	for _, key := range Keys {
		cfg, _ := Builtin(key)
		c.sectors[key] = cfg
	}
	return c
}

// NewCatalog applies overrides to the builtin table. Overrides for unknown
// sectors are rejected.
func NewCatalog(overrides map[Key]Override) (*Catalog, error) {
	c := DefaultCatalog()
	for key, o := range overrides {
		cfg, ok := c.sectors[key]
		if !ok {
			return nil, fmt.Errorf("override for unknown sector %q", key)
		}
		if o.Name != nil {
			name := strings.TrimSpace(*o.Name)
			if name == "" {
				return nil, fmt.Errorf("sector %q: name cannot be blank", key)
			}
			cfg.Name = name
		}
		if o.Color != nil {
			cfg.Color = strings.TrimSpace(*o.Color)
		}
		if o.Available != nil {
			cfg.Available = *o.Available
		}
		c.sectors[key] = cfg
	}
	return c, nil
}

// ParseOverlay decodes a YAML overlay document:
//
//	sectors:
//	  fractions:
//	    available: true
//	    name: "Fractions"
func ParseOverlay(data []byte) (map[Key]Override, error) {
	var file overlayFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sector overlay: %w", err)
	}
	out := make(map[Key]Override, len(file.Sectors))
	for raw, o := range file.Sectors {
		key, err := ParseKey(raw)
		if err != nil {
			return nil, err
		}
		out[key] = o
	}
	return out, nil
}

// LoadCatalog builds the catalog, applying the YAML overlay at path when path
// is not empty.
func LoadCatalog(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sector overlay: %w", err)
	}
	overrides, err := ParseOverlay(data)
	if err != nil {
		return nil, err
	}
	return NewCatalog(overrides)
}

// Lookup returns the configuration for key, available or not.
func (c *Catalog) Lookup(key Key) (Config, bool) {
	if c == nil {
		return Config{}, false
	}
	cfg, ok := c.sectors[key]
	return cfg, ok
}

// Available returns the configuration for key only when the sector is enabled.
func (c *Catalog) Available(key Key) (Config, bool) {
	cfg, ok := c.Lookup(key)
	if !ok || !cfg.Available {
		return Config{}, false
	}
	return cfg, true
}

// List returns every sector in display order.
func (c *Catalog) List() []Config {
	out := make([]Config, 0, len(Keys))
	for _, key := range Keys {
		if cfg, ok := c.Lookup(key); ok {
			out = append(out, cfg)
		}
	}
	return out
}
