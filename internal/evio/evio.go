// Package evio reads and writes event datasets as CSV, resolving columns
// by header name against the dataset schema.
package evio

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/schema"
)

// DefaultTimestampColumn is the header name used when none is given.
const DefaultTimestampColumn = "timestamp"

// ReadCSV parses CSV rows into a dataset. The first record is the
// header; the timestamp column plus every index and feature column of
// the schema must appear in it, extra columns are ignored. Timestamps
// are float seconds or RFC 3339. An empty feature cell becomes the
// dtype's missing value; index cells must always carry a value. Events
// land sorted by timestamp within each bucket.
func ReadCSV(r io.Reader, s *schema.Schema, timestampColumn string) (*eventset.EventSet, error) {
	if timestampColumn == "" {
		timestampColumn = DefaultTimestampColumn
	}

	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[name] = i
	}

	tsPos, ok := pos[timestampColumn]
	if !ok {
		return nil, fmt.Errorf("timestamp column %q not found in header", timestampColumn)
	}
	for _, name := range append(s.IndexNames(), s.FeatureNames()...) {
		if _, ok := pos[name]; !ok {
			return nil, fmt.Errorf("column %q not found in header", name)
		}
	}

	es := eventset.New(s)
	features := s.Features()
	row := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row+1, err)
		}
		row++

		ts, err := parseTimestamp(record[tsPos])
		if err != nil {
			return nil, fmt.Errorf("row %d, column %q: %w", row, timestampColumn, err)
		}
		key, err := parseKey(s, record, pos)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		b := es.GetOrCreateBucket(key)
		b.Timestamps = append(b.Timestamps, ts)
		for i, f := range features {
			if err := appendCell(b.Column(i), record[pos[f.Name]]); err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", row, f.Name, err)
			}
		}
	}

	for _, b := range es.Buckets() {
		b.SortByTimestamp()
	}
	return es, nil
}

// WriteCSV renders a dataset as CSV: a header of timestamp, index and
// feature columns, then one row per event in canonical bucket order.
// Missing float values come out as empty cells.
func WriteCSV(w io.Writer, es *eventset.EventSet) error {
	s := es.Schema()
	cw := csv.NewWriter(w)

	header := append([]string{DefaultTimestampColumn}, s.IndexNames()...)
	header = append(header, s.FeatureNames()...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for _, b := range es.Buckets() {
		keyCells := make([]string, len(b.Key))
		for i, k := range b.Key {
			keyCells[i] = formatKeyValue(k)
		}
		for i, ts := range b.Timestamps {
			record[0] = strconv.FormatFloat(ts, 'g', -1, 64)
			copy(record[1:], keyCells)
			for j := range b.Columns {
				record[1+len(keyCells)+j] = formatCell(b.Column(j), i)
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSVFile is ReadCSV over a file path.
func ReadCSVFile(path string, s *schema.Schema, timestampColumn string) (*eventset.EventSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	es, err := ReadCSV(f, s, timestampColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return es, nil
}

// WriteCSVFile is WriteCSV over a file path, creating parent directories
// as needed.
func WriteCSVFile(path string, es *eventset.EventSet) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, es); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

func parseTimestamp(cell string) (float64, error) {
	if v, err := strconv.ParseFloat(cell, 64); err == nil {
		return v, nil
	}
	t, err := time.Parse(time.RFC3339, cell)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q is neither seconds nor RFC 3339", cell)
	}
	return float64(t.UnixNano()) / 1e9, nil
}

func parseKey(s *schema.Schema, record []string, pos map[string]int) ([]eventset.KeyValue, error) {
	indexes := s.Indexes()
	if len(indexes) == 0 {
		return nil, nil
	}
	key := make([]eventset.KeyValue, len(indexes))
	for i, ix := range indexes {
		cell := record[pos[ix.Name]]
		switch ix.DType {
		case schema.Int64:
			v, err := strconv.ParseInt(cell, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", ix.Name, err)
			}
			key[i] = eventset.Int64Key(v)
		case schema.Int32:
			v, err := strconv.ParseInt(cell, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", ix.Name, err)
			}
			key[i] = eventset.Int32Key(int32(v))
		case schema.String:
			key[i] = eventset.StrKey(cell)
		}
	}
	return key, nil
}

func appendCell(col *eventset.Column, cell string) error {
	if cell == "" {
		col.AppendMissing()
		return nil
	}
	switch col.DType() {
	case schema.Float64:
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return err
		}
		col.AppendFloat64(v)
	case schema.Float32:
		v, err := strconv.ParseFloat(cell, 32)
		if err != nil {
			return err
		}
		col.AppendFloat32(float32(v))
	case schema.Int64:
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return err
		}
		col.AppendInt64(v)
	case schema.Int32:
		v, err := strconv.ParseInt(cell, 10, 32)
		if err != nil {
			return err
		}
		col.AppendInt32(int32(v))
	case schema.String:
		col.AppendString(cell)
	case schema.Bool:
		v, err := strconv.ParseBool(cell)
		if err != nil {
			return err
		}
		col.AppendBool(v)
	}
	return nil
}

func formatCell(col *eventset.Column, i int) string {
	switch col.DType() {
	case schema.Float64:
		v := col.Float64s()[i]
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case schema.Float32:
		v := float64(col.Float32s()[i])
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', -1, 32)
	case schema.Int64:
		return strconv.FormatInt(col.Int64s()[i], 10)
	case schema.Int32:
		return strconv.FormatInt(int64(col.Int32s()[i]), 10)
	case schema.String:
		return col.Strings()[i]
	case schema.Bool:
		return strconv.FormatBool(col.Bools()[i])
	}
	return ""
}

func formatKeyValue(k eventset.KeyValue) string {
	switch k.DType {
	case schema.String:
		return k.Str
	default:
		return strconv.FormatInt(k.Int, 10)
	}
}
