package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Codec turns snapshots into text and back. Decode yields a generic document
// (maps, lists and scalars) so that validation stays with the importer.
type Codec interface {
	Name() string
	Ext() string
	Encode(v any) ([]byte, error)
	Decode(data []byte) (any, error)
}

// CodecFor returns the codec registered under name ("json" or "yaml").
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown snapshot format: %s", name)
	}
}

type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Ext() string  { return ".json" }

func (JSONCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode keeps numbers as json.Number so 64-bit ids and timestamps survive intact.
func (JSONCodec) Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode json: trailing data after document")
	}
	return doc, nil
}

type YAMLCodec struct{}

func (YAMLCodec) Name() string { return "yaml" }
func (YAMLCodec) Ext() string  { return ".yaml" }

func (YAMLCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func (YAMLCodec) Decode(data []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return doc, nil
}
