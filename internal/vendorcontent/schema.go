package vendorcontent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/goliatone/go-tms/internal/document"
)

// payloadSchema constrains what the vendor may hand back: a JSON object whose
// anchor fields, when present, are strings, and which never carries a
// revision token. Everything else is host-content territory.
const payloadSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"_id": {"type": "string"},
		"_type": {"type": "string"}
	},
	"not": {"required": ["_rev"]}
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("payload.json", bytes.NewReader([]byte(payloadSchema))); err != nil {
			compileErr = err
			return
		}
		compiled, compileErr = compiler.Compile("payload.json")
	})
	return compiled, compileErr
}

func validatePayload(payload []byte) (document.Document, error) {
	s, err := schema()
	if err != nil {
		return nil, err
	}
	var raw any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}
	if err := s.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrPayloadInvalid
	}
	return doc, nil
}
