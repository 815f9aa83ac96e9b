// Package csvout writes the generated record tables as CSV files. Generated
// tag processor expressions contain commas, so quoting matters.
package csvout

import (
	"encoding/csv"
	"os"

	"github.com/ansel1/merry"
	"github.com/powerman/structlog"
)

var log = structlog.New()

// WriteFile writes records, header first, to filename.
func WriteFile(filename string, records [][]string) error {
	f, err := os.Create(filename)
	if err != nil {
		return merry.Prependf(err, "create %s", filename)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		_ = f.Close()
		return merry.Prependf(err, "write %s", filename)
	}
	if err := f.Close(); err != nil {
		return merry.Prependf(err, "close %s", filename)
	}
	rows := len(records)
	if rows > 0 {
		rows--
	}
	log.Debug("csv written", "file", filename, "rows", rows)
	return nil
}
