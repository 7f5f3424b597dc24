// Package dataset builds aligned feature/label arrays from a label manifest
// and a directory of captured waveforms.
package dataset

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// Entry is one manifest row: a segment filename and its binary label.
type Entry struct {
	Filename string
	Label    int
}

// Manifest is the ordered filename-to-label mapping that is the single source
// of truth for supervised targets. Iteration order is row order.
type Manifest struct {
	Entries []Entry
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{}
}

// LoadManifest reads a labels CSV with header "filename,label". Rows with a
// malformed label are logged and skipped; they never fail the load.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("manifest %s is empty", path)
	}
	if rows[0][0] != "filename" || rows[0][1] != "label" {
		return nil, fmt.Errorf("manifest %s has unexpected header %v", path, rows[0])
	}

	m := NewManifest()
	for i, row := range rows[1:] {
		label, err := strconv.Atoi(row[1])
		if err != nil || (label != 0 && label != 1) {
			slog.Warn("skipping manifest row with invalid label",
				"row", i+2, "filename", row[0], "label", row[1])
			continue
		}
		m.Entries = append(m.Entries, Entry{Filename: row[0], Label: label})
	}

	return m, nil
}

// Append adds one labeled segment to the manifest.
func (m *Manifest) Append(filename string, label int) {
	m.Entries = append(m.Entries, Entry{Filename: filename, Label: label})
}

// SetLabel updates the label of filename, appending a new entry if absent.
func (m *Manifest) SetLabel(filename string, label int) {
	for i := range m.Entries {
		if m.Entries[i].Filename == filename {
			m.Entries[i].Label = label
			return
		}
	}
	m.Append(filename, label)
}

// Has reports whether filename already has a manifest entry.
func (m *Manifest) Has(filename string) bool {
	for i := range m.Entries {
		if m.Entries[i].Filename == filename {
			return true
		}
	}
	return false
}

// Counts returns how many entries carry each label.
func (m *Manifest) Counts() (noDrone, drone int) {
	for _, e := range m.Entries {
		if e.Label == 1 {
			drone++
		} else {
			noDrone++
		}
	}
	return noDrone, drone
}

// Save rewrites the manifest CSV in row order, creating parent directories
// as needed.
func (m *Manifest) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"filename", "label"}); err != nil {
		return fmt.Errorf("failed to write manifest header: %w", err)
	}
	for _, e := range m.Entries {
		if err := w.Write([]string{e.Filename, strconv.Itoa(e.Label)}); err != nil {
			return fmt.Errorf("failed to write manifest row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
