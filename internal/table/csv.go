package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"showtimes-scraper/internal/geocode"
)

// PendingCSV is a fully written csv file that has not replaced its target yet.
type PendingCSV struct {
	path    string
	tmpName string
}

// PrepareCSV writes rows to a temporary file next to path. Nothing at path
// changes until Commit is called.
func PrepareCSV(path string, rows []geocode.EnrichedRow) (*PendingCSV, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	pending := &PendingCSV{path: path, tmpName: tmp.Name()}

	err = writeRecords(tmp, rows)
	if err != nil {
		tmp.Close()
		pending.Discard()
		return nil, err
	}
	err = tmp.Close()
	if err != nil {
		pending.Discard()
		return nil, fmt.Errorf("close csv: %w", err)
	}
	return pending, nil
}

func writeRecords(tmp *os.File, rows []geocode.EnrichedRow) error {
	err := tmp.Chmod(0644)
	if err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	writer := csv.NewWriter(tmp)
	err = writer.Write(Columns)
	if err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		err = writer.Write(Record(row))
		if err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	err = writer.Error()
	if err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Commit atomically replaces the target path with the prepared file.
func (p *PendingCSV) Commit() error {
	err := os.Rename(p.tmpName, p.path)
	if err != nil {
		p.Discard()
		return fmt.Errorf("replace %s: %w", p.path, err)
	}
	p.tmpName = ""
	return nil
}

// Discard removes the prepared file, it is a no-op after Commit.
func (p *PendingCSV) Discard() {
	if p.tmpName == "" {
		return
	}
	os.Remove(p.tmpName)
	p.tmpName = ""
}

// WriteCSV writes rows to path, replacing whatever was there before.
// A failed write leaves the previous file in place.
func WriteCSV(path string, rows []geocode.EnrichedRow) error {
	pending, err := PrepareCSV(path, rows)
	if err != nil {
		return err
	}
	return pending.Commit()
}
