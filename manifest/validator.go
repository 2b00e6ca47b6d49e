package manifest

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "herald://manifest/schema.json"

var defaultValidator = &Validator{}

// Validator checks manifest documents against the embedded schema. The
// schema is compiled on first use.
type Validator struct {
	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// Validate checks a decoded document. Maps must have string keys.
func (v *Validator) Validate(doc any) error {
	schema, err := v.schema()
	if err != nil {
		return fmt.Errorf("schema compilation error: %w", err)
	}

	value, err := toJSONValue(doc)
	if err != nil {
		return fmt.Errorf("convert document: %w", err)
	}
	return schema.Validate(value)
}

func (v *Validator) schema() (*jsonschema.Schema, error) {
	v.once.Do(func() {
		doc, err := unmarshalJSON(schemaJSON)
		if err != nil {
			v.err = fmt.Errorf("unmarshal schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			v.err = fmt.Errorf("add schema resource: %w", err)
			return
		}
		v.compiled, v.err = c.Compile(schemaURL)
	})
	return v.compiled, v.err
}

func unmarshalJSON(raw []byte) (any, error) {
	return jsonschema.UnmarshalJSON(bytes.NewReader(raw))
}
