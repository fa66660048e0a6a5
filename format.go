// FILE: lixenwraith/setty/format.go
package setty

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format converts between serialized text and normalized values.
type Format interface {
	// Name returns the short format name ("toml", "yaml", "json")
	Name() string
	// Unmarshal parses data into a normalized value
	Unmarshal(data []byte) (any, error)
	// Marshal serializes a normalized value
	Marshal(v any) ([]byte, error)
}

var (
	// TOML reads and writes TOML documents
	TOML Format = tomlFormat{}
	// YAML reads and writes YAML documents
	YAML Format = yamlFormat{}
	// JSON reads JSON with comments and trailing commas and writes indented JSON
	JSON Format = jsonFormat{}
)

type tomlFormat struct{}

func (tomlFormat) Name() string { return "toml" }

func (tomlFormat) Unmarshal(data []byte) (any, error) {
	doc := make(map[string]any)
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return Normalize(doc), nil
}

func (tomlFormat) Marshal(v any) ([]byte, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("toml document root must be a table, got %s", KindOf(v))
	}
	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type yamlFormat struct{}

func (yamlFormat) Name() string { return "yaml" }

func (yamlFormat) Unmarshal(data []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return Normalize(doc), nil
}

func (yamlFormat) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

type jsonFormat struct{}

func (jsonFormat) Name() string { return "json" }

func (jsonFormat) Unmarshal(data []byte) (any, error) {
	// Strip comments and trailing commas
	data = jsonc.ToJSON(data)

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber() // Preserve number precision
	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}
	return Normalize(doc), nil
}

func (jsonFormat) Marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// FormatByName returns the format registered under name.
func FormatByName(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "toml", "tml":
		return TOML, nil
	case "yaml", "yml":
		return YAML, nil
	case "json", "jsonc":
		return JSON, nil
	default:
		return nil, fmt.Errorf("unsupported config format %q", name)
	}
}

// FormatForPath determines format from file extension, or nil when unknown
func FormatForPath(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml", ".tml":
		return TOML
	case ".json", ".jsonc":
		return JSON
	case ".yaml", ".yml":
		return YAML
	default:
		return nil
	}
}

// DetectFormat attempts to detect format by parsing, or nil when nothing parses
func DetectFormat(data []byte) Format {
	// Try JSON first (strict format)
	var jsonTest any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return JSON
	}

	// TOML before YAML: a TOML table header is valid YAML flow syntax
	var tomlTest map[string]any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return TOML
	}

	var yamlTest any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		return YAML
	}

	return nil
}
