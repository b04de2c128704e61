package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/stacker/internal/game/grid"
)

//go:embed scenario.schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("scenario.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

// yamlScenarioFile wraps the YAML top-level key.
type yamlScenarioFile struct {
	Scenario *Config `yaml:"scenario"`
}

// Parse decodes a YAML scenario document, checks it against the scenario JSON
// Schema, and validates the result. A document without dimensions is laid out
// on dims.
//
// Postcondition: returns a validated Config or a non-nil error.
func Parse(data []byte, dims grid.Dimensions) (Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("scenario.Parse: %w", err)
	}
	// Round-trip through JSON so the schema sees json.Unmarshal value types.
	raw, err := json.Marshal(doc)
	if err != nil {
		return Config{}, fmt.Errorf("scenario.Parse: converting to JSON: %w", err)
	}
	var inst any
	if err := json.Unmarshal(raw, &inst); err != nil {
		return Config{}, fmt.Errorf("scenario.Parse: converting to JSON: %w", err)
	}
	s, err := compiledSchema()
	if err != nil {
		return Config{}, fmt.Errorf("scenario.Parse: compiling schema: %w", err)
	}
	if err := s.Validate(inst); err != nil {
		return Config{}, fmt.Errorf("scenario.Parse: %w", err)
	}

	var f yamlScenarioFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Config{}, fmt.Errorf("scenario.Parse: %w", err)
	}
	cfg := *f.Scenario
	if cfg.Dimensions == (grid.Dimensions{}) {
		cfg.Dimensions = dims
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads and parses the scenario document at path.
//
// Precondition: path must be a readable YAML file.
// Postcondition: returns a validated Config or a non-nil error.
func LoadFile(path string, dims grid.Dimensions) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("scenario.LoadFile: %w", err)
	}
	cfg, err := Parse(data, dims)
	if err != nil {
		return Config{}, fmt.Errorf("scenario.LoadFile %s: %w", path, err)
	}
	return cfg, nil
}

// Marshal encodes cfg as a YAML scenario document that Parse accepts.
func Marshal(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(yamlScenarioFile{Scenario: &cfg}); err != nil {
		return nil, fmt.Errorf("scenario.Marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("scenario.Marshal: %w", err)
	}
	return buf.Bytes(), nil
}
