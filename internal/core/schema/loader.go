package schema

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/zeusync/eca/internal/core/fields"
	"gopkg.in/yaml.v3"
)

// Document describes component schemas in JSON or YAML:
//
//	components:
//	  - name: position
//	    attributes:
//	      - {name: x, type: float64, default: 0.0}
//	      - {name: y, type: float64, default: 0.0}
//	  - name: inventory
//	    attributes:
//	      - {name: items, type: list, default: []}
type Document struct {
	Components []ComponentDocument `json:"components" yaml:"components"`
}

type ComponentDocument struct {
	Name       string              `json:"name" yaml:"name"`
	ID         string              `json:"id,omitempty" yaml:"id,omitempty"`
	Attributes []AttributeDocument `json:"attributes" yaml:"attributes"`
}

type AttributeDocument struct {
	Name string `json:"name" yaml:"name"`
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	Type string `json:"type" yaml:"type"`
	// Default is optional; the zero value of Type is used when absent.
	Default any `json:"default,omitempty" yaml:"default,omitempty"`
}

// LoadJSON decodes a schema document from JSON.
func LoadJSON(r io.Reader) (*Document, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode schema json: %w", err)
	}
	return &d, nil
}

// LoadYAML decodes a schema document from YAML.
func LoadYAML(r io.Reader) (*Document, error) {
	var d Document
	if err := yaml.NewDecoder(r).Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode schema yaml: %w", err)
	}
	return &d, nil
}

// LoadFile decodes a schema document, choosing YAML for .yaml and .yml files
// and JSON otherwise.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(f)
	default:
		return LoadJSON(f)
	}
}

// Build turns the document into component schemas, in document order.
// Nothing is returned unless every component builds.
func (d *Document) Build() ([]*ComponentSchema, error) {
	out := make([]*ComponentSchema, 0, len(d.Components))
	seen := make(map[string]struct{}, len(d.Components))
	for _, cd := range d.Components {
		if cd.Name == "" {
			return nil, ErrInvalidName
		}
		if _, dup := seen[cd.Name]; dup {
			return nil, fmt.Errorf("%s: %w", cd.Name, ErrDuplicateSchemaName)
		}
		seen[cd.Name] = struct{}{}

		cs, err := cd.build()
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, nil
}

func (cd ComponentDocument) build() (*ComponentSchema, error) {
	id, err := parseID(cd.ID)
	if err != nil {
		return nil, fmt.Errorf("component %q: %w", cd.Name, err)
	}
	cs := NewComponentWithID(id, cd.Name)

	for _, ad := range cd.Attributes {
		typ, err := fields.ParseType(ad.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", cd.Name, ad.Name, err)
		}
		attrID, err := parseID(ad.ID)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", cd.Name, ad.Name, err)
		}
		def := ad.Default
		if def == nil {
			def = fields.Zero(typ)
		} else if err = checkDefault(typ, def); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", cd.Name, ad.Name, err)
		}
		attr, err := NewAttributeWithID(attrID, ad.Name, typ, def)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cd.Name, err)
		}
		if err = cs.AddAttribute(attr); err != nil {
			return nil, err
		}
	}
	return cs, nil
}

// checkDefault rejects a default the conversion table has no path for.
func checkDefault(typ fields.Type, def any) error {
	from, ok := fields.TypeOf(def)
	if !ok {
		return fmt.Errorf("%w: %T cannot become %s", fields.ErrInvalidDefault, def, fields.GoType(typ))
	}
	if !fields.CanConvert(from, typ) {
		return fmt.Errorf("%w: a %s default cannot become %s", fields.ErrInvalidDefault, from, fields.GoType(typ))
	}
	return nil
}

func parseID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(s)
}
