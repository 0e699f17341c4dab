package source

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bizmap/internal/model"
)

// DecodeCSV decodes a CSV dataset whose first record is the header.
// Header labels are canonicalized before decoding so alias spellings land
// on the right fields.
func DecodeCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("csv: dataset is empty")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	canon := canonicalHeader(header)

	dec, err := csvutil.NewDecoder(reader, canon...)
	if err != nil {
		return nil, eris.Wrap(err, "csv: init decoder")
	}

	t := &Table{Schema: model.NewSchema(canon)}
	for {
		var row model.RawRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "csv: decode row %d", len(t.Rows)+1)
		}
		if row == (model.RawRow{}) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
