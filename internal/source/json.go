package source

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bizmap/internal/model"
)

// DecodeJSON decodes a JSON array of row objects. Keys are header labels;
// numbers keep their literal text so identifiers are not reformatted.
func DecodeJSON(r io.Reader) (*Table, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	tok, err := decoder.Token()
	if err == io.EOF {
		return nil, eris.New("json: dataset is empty")
	}
	if err != nil {
		return nil, eris.Wrap(err, "json: read opening token")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, eris.Errorf("json: expected '[', got %v", tok)
	}

	var headers []string
	seen := make(map[string]bool)
	var objects []map[string]any
	for decoder.More() {
		var obj map[string]any
		if err := decoder.Decode(&obj); err != nil {
			return nil, eris.Wrapf(err, "json: decode element %d", len(objects))
		}
		for _, k := range slices.Sorted(maps.Keys(obj)) {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
		objects = append(objects, obj)
	}
	if _, err := decoder.Token(); err != nil && err != io.EOF {
		return nil, eris.Wrap(err, "json: read closing token")
	}

	rows := make([][]string, len(objects))
	for i, obj := range objects {
		cells := make([]string, len(headers))
		for j, h := range headers {
			cells[j] = jsonCell(obj[h])
		}
		rows[i] = cells
	}

	t := tableFromCells(headers, rows)
	if t.Schema == nil {
		t.Schema = model.Schema{}
	}
	return t, nil
}

func jsonCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
