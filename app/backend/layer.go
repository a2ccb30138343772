package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Layer describes how a PostGIS table is rendered into a single MVT layer.
type Layer struct {
	Name     string   `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"description=layer name inside the tile"`
	Table    string   `yaml:"table" json:"table" jsonschema:"minLength=1,description=source table with optional schema prefix"`
	Geometry string   `yaml:"geometry,omitempty" json:"geometry,omitempty" jsonschema:"description=geometry column"`
	Columns  []string `yaml:"columns,omitempty" json:"columns,omitempty" jsonschema:"description=attribute columns copied into features"`
	Filter   string   `yaml:"filter,omitempty" json:"filter,omitempty" jsonschema:"description=extra SQL condition on source rows"`
	Extent   int      `yaml:"extent,omitempty" json:"extent,omitempty" jsonschema:"minimum=256,maximum=65536,description=tile extent in screen units"`
	Buffer   int      `yaml:"buffer,omitempty" json:"buffer,omitempty" jsonschema:"minimum=0,description=clip buffer in screen units"`
}

// DefaultLayer returns the layer served when no layer file is given.
func DefaultLayer() Layer {
	return Layer{
		Name:     "default",
		Table:    "projects",
		Geometry: "geometry",
		Columns:  []string{"_id"},
		Filter:   "deleted_at IS NULL",
		Extent:   4096,
		Buffer:   64,
	}
}

// LoadLayer reads the layer yaml file, validates it against LayerSchema and fills unset fields
// from DefaultLayer. Filter is not defaulted, an explicit file describes its own conditions.
func LoadLayer(path string) (Layer, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from CLI flag, controlled by admin
	if err != nil {
		return Layer{}, fmt.Errorf("failed to read layer file: %w", err)
	}

	if err := validateLayer(data); err != nil {
		return Layer{}, err
	}

	var layer Layer
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return Layer{}, fmt.Errorf("failed to parse layer file: %w", err)
	}
	// zero is a valid buffer, so only a missing key gets the default
	var set struct {
		Buffer *int `yaml:"buffer"`
	}
	if err := yaml.Unmarshal(data, &set); err != nil {
		return Layer{}, fmt.Errorf("failed to parse layer file: %w", err)
	}

	def := DefaultLayer()
	if layer.Name == "" {
		layer.Name = def.Name
	}
	if layer.Geometry == "" {
		layer.Geometry = def.Geometry
	}
	if layer.Extent == 0 {
		layer.Extent = def.Extent
	}
	if set.Buffer == nil {
		layer.Buffer = def.Buffer
	}
	return layer, nil
}

// LayerSchema returns the JSON schema of the layer file.
func LayerSchema() ([]byte, error) {
	r := &jsonschema.Reflector{Anonymous: true, ExpandedStruct: true}
	data, err := json.MarshalIndent(r.Reflect(&Layer{}), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal layer schema: %w", err)
	}
	return data, nil
}

// validateLayer checks raw yaml against LayerSchema.
func validateLayer(data []byte) error {
	schema, err := LayerSchema()
	if err != nil {
		return err
	}
	compiler := validator.NewCompiler()
	if err := compiler.AddResource("layer.json", bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("failed to load layer schema: %w", err)
	}
	sch, err := compiler.Compile("layer.json")
	if err != nil {
		return fmt.Errorf("failed to compile layer schema: %w", err)
	}

	// yaml has to be turned into plain json values for the validator
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse layer file: %w", err)
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to convert layer file: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("failed to convert layer file: %w", err)
	}

	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("invalid layer file: %w", err)
	}
	return nil
}

// String returns a short description for logs.
func (l Layer) String() string {
	return fmt.Sprintf("layer %q from %s.%s [%s]", l.Name, l.Table, l.Geometry, strings.Join(l.Columns, ","))
}
