package tablewriter

import (
	"encoding/csv"
	"fmt"
	"os"

	"indexflow/internal/model"
)

// Header is the fixed first line of the output table. The dashboard that
// consumes the file keys on these exact column names.
var Header = []string{"Date", "OpenPrice", "ClosePrice", "High", "Low"}

// CSVWriter serializes filtered records to the output table artifact.
// Each run fully overwrites the file; a run with zero surviving records
// still produces the header line, which is a success.
type CSVWriter struct {
	path string
}

func NewCSV(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

// Write emits the header plus one row per record in input order and returns
// the number of data rows written. Price fields are written verbatim.
func (w *CSVWriter) Write(records []model.FilteredRecord) (int, error) {
	file, err := os.Create(w.path)
	if err != nil {
		return 0, fmt.Errorf("create output table %s: %w", w.path, err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		row := []string{rec.Date, rec.Open, rec.Close, rec.High, rec.Low}
		if err := cw.Write(row); err != nil {
			return 0, fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush output table: %w", err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("close output table: %w", err)
	}

	return len(records), nil
}

// Path returns the output artifact location.
func (w *CSVWriter) Path() string {
	return w.path
}
