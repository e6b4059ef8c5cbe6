package assessment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// decodeObject parses text as a single JSON object, keeping numbers as
// json.Number so integer checks can reject 1.0 or 1e0.
func decodeObject(text string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("not valid JSON: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("not valid JSON: trailing data after top-level value")
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("root is %s, not an object", jsonKind(doc))
	}
	return obj, nil
}

// exactInt returns v as an int when it is a JSON integer literal.
func exactInt(v any) (int, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return int(i), true
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// describe renders a received value for diagnostics.
func describe(v any, present bool) string {
	if !present {
		return "<missing>"
	}
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// compiledSchemas caches compiled contract schemas by name.
var compiledSchemas sync.Map // map[string]*jsonschema.Schema

func contractSchema(name string, def map[string]any) (*jsonschema.Schema, error) {
	if cached, ok := compiledSchemas.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a plain decoded JSON value, not Go maps of typed slices.
	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", name, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}

	compiledSchemas.Store(name, compiled)
	return compiled, nil
}

// checkContract parses text and validates it against the named schema.
// Parse and schema failures are both reported as kind, with distinct detail.
func checkContract(kind error, name string, def map[string]any, text string) (map[string]any, error) {
	obj, err := decodeObject(text)
	if err != nil {
		return nil, &ContractError{Kind: kind, Detail: err.Error()}
	}

	schema, err := contractSchema(name, def)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(obj); err != nil {
		return nil, &ContractError{Kind: kind, Detail: "wrong field type or range: " + err.Error()}
	}
	return obj, nil
}
