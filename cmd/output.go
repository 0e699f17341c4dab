package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bizmap/internal/query"
)

// Output formats accepted by --format.
const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"
)

// writeStructured encodes v as indented JSON or YAML.
func writeStructured(out io.Writer, format string, v any) error {
	switch format {
	case formatJSON, "":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		data, err := query.MarshalYAML(v)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	default:
		return eris.Errorf("unsupported format %q (want json or yaml)", format)
	}
}
