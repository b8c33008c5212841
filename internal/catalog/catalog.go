// Package catalog holds the role templates events are created from.
//
// A Catalog is read-only after construction. Templates come either from
// the built-in set or from a YAML or TOML file:
//
//	templates:
//	  - name: Tracking_5P
//	    roles: [Tank, Healer, R-DPS, M-DPS, DPS]
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/alfredjeanlab/muster/internal/model"
)

// ErrNotFound is returned by Lookup when no template has the given name.
var ErrNotFound = errors.New("template not found")

// Catalog maps template names to role templates.
type Catalog struct {
	byKey map[string]*model.RoleTemplate
	order []string
}

// file is the on-disk shape shared by the YAML and TOML loaders.
type file struct {
	Templates []model.RoleTemplate `yaml:"templates" toml:"templates"`
}

// New builds a catalog from the given templates. Names are unique
// case-insensitively; every template must pass model.ValidateTemplate.
func New(templates ...model.RoleTemplate) (*Catalog, error) {
	c := &Catalog{byKey: make(map[string]*model.RoleTemplate, len(templates))}
	for i := range templates {
		t := templates[i]
		if err := model.ValidateTemplate(&t); err != nil {
			return nil, fmt.Errorf("template %q: %w", t.Name, err)
		}
		key := strings.ToLower(t.Name)
		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("duplicate template %q", t.Name)
		}
		roles := make([]string, len(t.Roles))
		copy(roles, t.Roles)
		c.byKey[key] = &model.RoleTemplate{Name: t.Name, Roles: roles}
		c.order = append(c.order, key)
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(builtin...)
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads templates from path. The format is picked by extension:
// .yaml/.yml or .toml.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return nil, errors.New("templates path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}

	var f file
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse templates yaml: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &f); err != nil {
			return nil, fmt.Errorf("parse templates toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported templates file extension %q", ext)
	}

	if len(f.Templates) == 0 {
		return nil, fmt.Errorf("%s: no templates defined", path)
	}
	return New(f.Templates...)
}

// Lookup returns the template with the given name, ignoring case.
// The returned template is a copy.
func (c *Catalog) Lookup(name string) (*model.RoleTemplate, error) {
	t, ok := c.byKey[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	roles := make([]string, len(t.Roles))
	copy(roles, t.Roles)
	return &model.RoleTemplate{Name: t.Name, Roles: roles}, nil
}

// Templates returns copies of all templates, sorted by name.
func (c *Catalog) Templates() []model.RoleTemplate {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	sort.Strings(keys)

	out := make([]model.RoleTemplate, 0, len(keys))
	for _, k := range keys {
		t := c.byKey[k]
		roles := make([]string, len(t.Roles))
		copy(roles, t.Roles)
		out = append(out, model.RoleTemplate{Name: t.Name, Roles: roles})
	}
	return out
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	return len(c.byKey)
}
