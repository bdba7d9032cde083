// Package schema holds the static parameter declarations for external
// tools: the per-tool ordered lists of typed, constrained parameters that
// drive the parameter store and the on-disk parameter-file codec.
//
// Schemas are data, not logic. They are loaded from YAML assets (or a
// remote provider) and never mutated after registration.
package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// ParamType tags the value type of a declared parameter.
type ParamType string

const (
	TypeBoolean  ParamType = "boolean"
	TypeInteger  ParamType = "integer"
	TypeReal     ParamType = "real"
	TypeString   ParamType = "string"
	TypeFilename ParamType = "filename"
)

// ParseParamType converts a string type tag to a ParamType.
// The historical single-letter tags (b, i, r, s, f) are accepted too.
func ParseParamType(s string) (ParamType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "boolean", "b":
		return TypeBoolean, nil
	case "integer", "i":
		return TypeInteger, nil
	case "real", "r":
		return TypeReal, nil
	case "string", "s":
		return TypeString, nil
	case "filename", "file", "f":
		return TypeFilename, nil
	default:
		return "", fmt.Errorf("unknown parameter type: %q", s)
	}
}

// IsNumeric reports whether the type carries a numeric value.
func (t ParamType) IsNumeric() bool {
	return t == TypeInteger || t == TypeReal
}

// IsStringLike reports whether the type carries a string value.
func (t ParamType) IsStringLike() bool {
	return t == TypeString || t == TypeFilename
}

// Decl is one immutable parameter declaration. Min and Max hold the raw
// bound text: a number, "INDEF" (no bound), or a ")param" redirect into
// the same tool's parameters.
type Decl struct {
	Name    string    `yaml:"name" json:"name" mapstructure:"name"`
	Type    ParamType `yaml:"type" json:"type" mapstructure:"type"`
	Help    string    `yaml:"help,omitempty" json:"help,omitempty" mapstructure:"help"`
	Default string    `yaml:"default,omitempty" json:"default,omitempty" mapstructure:"default"`
	Min     string    `yaml:"min,omitempty" json:"min,omitempty" mapstructure:"min"`
	Max     string    `yaml:"max,omitempty" json:"max,omitempty" mapstructure:"max"`
	Options []string  `yaml:"options,omitempty" json:"options,omitempty" mapstructure:"options"`
}

// HasRange reports whether at least one numeric bound is declared.
func (d *Decl) HasRange() bool {
	return d.Min != "" || d.Max != ""
}

// HasOptions reports whether an enumerated option set is declared.
func (d *Decl) HasOptions() bool {
	return len(d.Options) > 0
}

// Validate checks the declaration for structural problems and normalizes
// a shorthand type tag to its full form.
func (d *Decl) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("parameter name cannot be empty")
	}
	parsed, err := ParseParamType(string(d.Type))
	if err != nil {
		return fmt.Errorf("parameter '%s': %w", d.Name, err)
	}
	d.Type = parsed
	if d.HasRange() && d.HasOptions() {
		return fmt.Errorf("parameter '%s': range and options are mutually exclusive", d.Name)
	}
	if d.HasRange() && !d.Type.IsNumeric() {
		return fmt.Errorf("parameter '%s': range constraint requires a numeric type, got %s", d.Name, d.Type)
	}
	if d.HasOptions() && d.Type.IsNumeric() {
		return fmt.Errorf("parameter '%s': options constraint requires a string type, got %s", d.Name, d.Type)
	}
	for _, bound := range []string{d.Min, d.Max} {
		if bound == "" || bound == "INDEF" || strings.HasPrefix(bound, ")") {
			continue
		}
		if _, err := strconv.ParseFloat(bound, 64); err != nil {
			return fmt.Errorf("parameter '%s': bound %q is not a number, INDEF, or redirect", d.Name, bound)
		}
	}
	return nil
}

// ToolSchema is the full declaration set for one external tool.
// Order within Required and Optional is significant: it defines the
// positional-argument mapping and the parameter-file line order.
type ToolSchema struct {
	Name     string `yaml:"name,omitempty" json:"name,omitempty" mapstructure:"name"`
	Help     string `yaml:"help,omitempty" json:"help,omitempty" mapstructure:"help"`
	Required []Decl `yaml:"required,omitempty" json:"required,omitempty" mapstructure:"required"`
	Optional []Decl `yaml:"optional,omitempty" json:"optional,omitempty" mapstructure:"optional"`

	// NoParFile marks tools that cannot read a "@@file" reference and
	// need every parameter expanded onto the command line.
	NoParFile bool `yaml:"no_par_file,omitempty" json:"no_par_file,omitempty" mapstructure:"no_par_file"`
}

// Decls returns required followed by optional declarations.
func (t *ToolSchema) Decls() []Decl {
	decls := make([]Decl, 0, len(t.Required)+len(t.Optional))
	decls = append(decls, t.Required...)
	decls = append(decls, t.Optional...)
	return decls
}

// FindDecl looks up a declaration by exact name.
func (t *ToolSchema) FindDecl(name string) (*Decl, bool) {
	for i := range t.Required {
		if t.Required[i].Name == name {
			return &t.Required[i], true
		}
	}
	for i := range t.Optional {
		if t.Optional[i].Name == name {
			return &t.Optional[i], true
		}
	}
	return nil, false
}

// Validate checks the whole schema: every declaration is valid, names are
// unique across the required and optional lists, and redirect bounds point
// at declared parameters. Shorthand type tags are normalized in place.
func (t *ToolSchema) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	seen := make(map[string]struct{})
	for _, list := range [][]Decl{t.Required, t.Optional} {
		for i := range list {
			d := &list[i]
			if err := d.Validate(); err != nil {
				return fmt.Errorf("tool '%s': %w", t.Name, err)
			}
			if _, dup := seen[d.Name]; dup {
				return fmt.Errorf("tool '%s': duplicate parameter '%s'", t.Name, d.Name)
			}
			seen[d.Name] = struct{}{}
		}
	}

	for _, d := range t.Decls() {
		for _, bound := range []string{d.Min, d.Max} {
			if target, ok := strings.CutPrefix(bound, ")"); ok {
				if _, declared := seen[target]; !declared {
					return fmt.Errorf("tool '%s': parameter '%s' bound redirects to undeclared parameter '%s'",
						t.Name, d.Name, target)
				}
			}
		}
	}

	return nil
}
