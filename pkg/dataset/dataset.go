// Package dataset stores converted records: as a local imagefolder dataset,
// on a dataset hub, or in a Postgres table.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/menta2k/pagexml-dataset/pkg/types"
)

// Split is a named partition of the records
type Split struct {
	Name    string
	Records []types.Record
}

// Dataset is the complete output of a conversion
type Dataset struct {
	Mode   types.Mode
	Splits []Split
}

// Len is the number of records over all splits
func (d Dataset) Len() int {
	n := 0
	for _, s := range d.Splits {
		n += len(s.Records)
	}
	return n
}

// fieldsJSON marshals the non-image columns of a record
func fieldsJSON(rec types.Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s record: %w", rec.Mode(), err)
	}
	return data, nil
}

// metadataLine is the record JSON with a leading file_name column pointing
// at the stored image.
func metadataLine(fileName string, rec types.Record) ([]byte, error) {
	fields, err := fieldsJSON(rec)
	if err != nil {
		return nil, err
	}
	name, err := json.Marshal(fileName)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"file_name":`)
	buf.Write(name)
	if len(fields) > 2 {
		buf.WriteByte(',')
		buf.Write(fields[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}
