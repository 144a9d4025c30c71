package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// ReadCSV reads a comma-separated table; the first record is the header.
func ReadCSV(name string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s csv: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s csv: no header row", name)
	}
	return &Table{Name: name, Header: records[0], Rows: records[1:]}, nil
}

// WriteCSV writes a header and rows.
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func openFile(name, path string, read func(string, io.Reader) (*Table, error)) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s table: %w", name, err)
	}
	defer f.Close()
	return read(name, f)
}
