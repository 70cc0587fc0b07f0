// Package config loads generator settings from YAML or JSON files.
//
// Values live in a flat map behind typed accessors. Every accessor takes a
// fallback that is returned when the key is absent or holds the wrong type,
// so a partial config file still yields complete GeneratorSettings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the raw key/value pairs of a generator config file.
type Config struct {
	data map[string]any
}

// New wraps data in a Config. A nil map yields an all-fallback Config.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// FromFile reads a generator config file. The format follows the file
// extension: .yaml or .yml for YAML, .json for JSON.
func FromFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FromYAML(raw)
	case ".json":
		return FromJSON(raw)
	}
	return Config{}, fmt.Errorf("generator config %s: unsupported format %q (want .yaml, .yml, or .json)",
		path, filepath.Ext(path))
}

// FromYAML parses YAML data into a Config.
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON parses JSON data into a Config.
func FromJSON(data []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return New(m), nil
}

// String returns the value at key, or fallback when it is absent or not a
// string.
func (c Config) String(key, fallback string) string {
	if s, ok := c.data[key].(string); ok {
		return s
	}
	return fallback
}

// Bool returns the value at key, or fallback when it is absent or not a
// bool.
func (c Config) Bool(key string, fallback bool) bool {
	if b, ok := c.data[key].(bool); ok {
		return b
	}
	return fallback
}

// Int returns the value at key, or fallback when it is absent or not an
// integer. JSON numbers arrive as float64; a fractional value is not an
// integer and falls back.
func (c Config) Int(key string, fallback int) int {
	switch v := c.data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if float64(int(v)) == v {
			return int(v)
		}
	}
	return fallback
}
