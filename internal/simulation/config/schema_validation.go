package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

var (
	compiledSchema *jsonschema.Schema
	compileErr     error
	compileOnce    sync.Once
)

// SchemaJSON returns the JSON Schema run files are checked against.
func SchemaJSON() string {
	return schemaJSON
}

func runSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("schema.json", strings.NewReader(schemaJSON)); err != nil {
			compileErr = fmt.Errorf("invalid schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("invalid schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// ValidateSchema checks a YAML or JSON document against the run schema.
// Schema violations are returned as *ValidationErrors, one entry per
// failing location.
func ValidateSchema(data []byte, path string) error {
	schema, err := runSchema()
	if err != nil {
		return err
	}

	doc, err := toJSONValue(data, path)
	if err != nil {
		return err
	}

	err = schema.Validate(doc)
	if err == nil {
		return nil
	}

	var vErr *jsonschema.ValidationError
	if !errors.As(err, &vErr) {
		return err
	}

	errs := &ValidationErrors{}
	collectSchemaErrors(vErr, errs)
	if !errs.HasErrors() {
		errs.Add("", vErr.Message)
	}
	return errs
}

// collectSchemaErrors adds the leaf causes of err, where the actual
// violations are reported.
func collectSchemaErrors(err *jsonschema.ValidationError, errs *ValidationErrors) {
	if len(err.Causes) == 0 {
		errs.Add(instanceField(err.InstanceLocation), err.Message)
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, errs)
	}
}

// instanceField turns a JSON pointer such as /run/latency/min into run.latency.min.
func instanceField(location string) string {
	return strings.ReplaceAll(strings.TrimPrefix(location, "/"), "/", ".")
}

// toJSONValue decodes a document into the generic form the validator
// expects. YAML is round-tripped through JSON so numbers and maps take
// their JSON shapes.
func toJSONValue(data []byte, path string) (interface{}, error) {
	raw := data
	if strings.ToLower(filepath.Ext(path)) != ".json" {
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
		if doc == nil {
			doc = map[string]interface{}{}
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert YAML config: %w", err)
		}
		raw = b
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config: %w", err)
	}
	return v, nil
}
