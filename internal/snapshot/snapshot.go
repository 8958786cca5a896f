// Package snapshot encodes and decodes the records collection in its
// persisted forms: a JSON array, or a CSV file with a fixed header.
package snapshot

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/birthapp/birthapp-go/internal/model"
)

// Format selects the on-disk representation.
type Format int

const (
	JSON Format = iota
	CSV
)

// Header is the CSV column order.
var Header = []string{"first_name", "last_name", "day", "month", "year"}

var ErrNotArray = errors.New("snapshot must be a JSON array of records")

// FormatForPath picks CSV for .csv files and JSON otherwise.
func FormatForPath(p string) Format {
	if strings.EqualFold(path.Ext(p), ".csv") {
		return CSV
	}
	return JSON
}

// Decode parses data in the given format. Empty input is an empty collection.
func Decode(data []byte, f Format) ([]model.Record, error) {
	if f == CSV {
		return DecodeCSV(data)
	}
	return DecodeJSON(data)
}

// Encode serializes records in the given format.
func Encode(records []model.Record, f Format) ([]byte, error) {
	if f == CSV {
		return EncodeCSV(records)
	}
	return EncodeJSON(records)
}

// DecodeJSON parses a JSON array. A wrapped {"data": [...]} payload is also
// accepted since that is what the list endpoint returns.
func DecodeJSON(data []byte) ([]model.Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []model.Record{}, nil
	}

	switch data[0] {
	case '[':
		var records []model.Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decoding records: %w", err)
		}
		if records == nil {
			records = []model.Record{}
		}
		return records, nil
	case '{':
		var wrapped struct {
			Data *[]model.Record `json:"data"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("decoding records: %w", err)
		}
		if wrapped.Data == nil {
			return nil, ErrNotArray
		}
		if *wrapped.Data == nil {
			return []model.Record{}, nil
		}
		return *wrapped.Data, nil
	default:
		return nil, ErrNotArray
	}
}

// EncodeJSON serializes records as a compact JSON array.
func EncodeJSON(records []model.Record) ([]byte, error) {
	if records == nil {
		records = []model.Record{}
	}
	return json.Marshal(records)
}

// DecodeCSV parses CSV rows in Header order. The header row is optional.
func DecodeCSV(data []byte) ([]model.Record, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimSpace(data)))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records := []model.Record{}
	first := true
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding csv: %w", err)
		}
		if first {
			first = false
			if isHeader(row) {
				continue
			}
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}

		rec, err := rowToRecord(row)
		if err != nil {
			return nil, fmt.Errorf("decoding csv line %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// EncodeCSV writes the header and one fully quoted row per record.
func EncodeCSV(records []model.Record) ([]byte, error) {
	var buf bytes.Buffer
	writeQuotedRow(&buf, Header)
	for _, rec := range records {
		rec = rec.Normalize()
		writeQuotedRow(&buf, []string{
			rec.FirstName,
			rec.LastName,
			strconv.Itoa(rec.Day),
			strconv.Itoa(rec.Month),
			strconv.Itoa(rec.Year),
		})
	}
	return buf.Bytes(), nil
}

// writeQuotedRow quotes every field; encoding/csv only quotes when needed.
func writeQuotedRow(buf *bytes.Buffer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(f, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteByte('\n')
}

func isHeader(row []string) bool {
	if len(row) != len(Header) {
		return false
	}
	for i, h := range Header {
		if strings.TrimSpace(row[i]) != h {
			return false
		}
	}
	return true
}

func rowToRecord(row []string) (model.Record, error) {
	field := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	atoi := func(name, v string) (int, error) {
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s: invalid integer %q", name, v)
		}
		return n, nil
	}

	day, err := atoi("day", field(2))
	if err != nil {
		return model.Record{}, err
	}
	month, err := atoi("month", field(3))
	if err != nil {
		return model.Record{}, err
	}
	year, err := atoi("year", field(4))
	if err != nil {
		return model.Record{}, err
	}

	return model.Record{
		FirstName: field(0),
		LastName:  field(1),
		Day:       day,
		Month:     month,
		Year:      year,
	}, nil
}
