package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/effectus/beanpath/dynabean"
)

type format string

const (
	formatJSON format = "json"
	formatYAML format = "yaml"
)

// formatOf picks the document format from an explicit flag or the file
// extension. Standard input defaults to JSON.
func formatOf(file, explicit string) (format, error) {
	switch strings.ToLower(explicit) {
	case "json":
		return formatJSON, nil
	case "yaml", "yml":
		return formatYAML, nil
	case "":
	default:
		return "", fmt.Errorf("unknown format %q", explicit)
	}
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return formatJSON, nil
	}
}

func readInput(file string, in io.Reader) ([]byte, error) {
	if file == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return data, nil
}

// loadReadOnly returns a document for reading. JSON documents stay in
// their text form behind a JSONBean; YAML is decoded into Go maps.
func loadReadOnly(data []byte, f format) (any, error) {
	if f == formatJSON {
		return dynabean.ParseJSON(data)
	}
	return decodeYAML(data)
}

// loadMutable decodes a document into Go maps and slices. YAML is a
// superset of JSON so one decoder serves both formats.
func loadMutable(data []byte) (any, error) {
	return decodeYAML(data)
}

func decodeYAML(data []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, fmt.Errorf("document root must be a mapping, got %T", doc)
	}
	return doc, nil
}

func encode(w io.Writer, doc any, f format) error {
	if f == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// writeValue prints one value as a single JSON line
func writeValue(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// parseScalar reads a command line value as YAML so numbers and booleans
// keep their type. Anything that is not a scalar stays a string.
func parseScalar(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case map[string]any, []any:
		return raw
	}
	return v
}
