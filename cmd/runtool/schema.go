package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	schemapkg "github.com/astrokit/runtool/pkg/schema"
)

// SchemaCmd generates JSON Schema for the tool schema file format, for
// editor validation of hand-written schema files. Output goes to stdout.
type SchemaCmd struct {
	Compact bool `short:"c" help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&schemapkg.File{})

	schema.ID = "https://astrokit.dev/schemas/runtool-tools.json"
	schema.Title = "Runtool Schema File"
	schema.Description = "Tool parameter declarations consumed by runtool"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}
