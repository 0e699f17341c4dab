package query

import (
	"bytes"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LoadRequest reads a saved query from a YAML file.
func LoadRequest(path string) (Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Request{}, eris.Wrapf(err, "query: read %s", path)
	}
	return ParseRequest(data)
}

// ParseRequest decodes a saved query. Unknown keys are rejected so a
// misspelled facet does not silently widen the result.
func ParseRequest(data []byte) (Request, error) {
	var req Request
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil && err != io.EOF {
		return Request{}, eris.Wrap(err, "query: parse request")
	}
	return req, nil
}

// MarshalYAML renders a value the way saved queries and CLI output are
// written.
func MarshalYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, eris.Wrap(err, "query: encode yaml")
	}
	if err := enc.Close(); err != nil {
		return nil, eris.Wrap(err, "query: close yaml encoder")
	}
	return buf.Bytes(), nil
}
