// Package data loads tables of values that a scenario step is expanded over,
// one send per row.
package data

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Setter receives the values of one row.
type Setter interface {
	Set(key string, value any)
}

// Table is a loaded data file. Rows keep file order.
type Table struct {
	name string
	rows []map[string]any
}

func NewTable(name string, rows []map[string]any) *Table {
	return &Table{name: name, rows: rows}
}

func (t *Table) Name() string { return t.name }

func (t *Table) Len() int { return len(t.rows) }

// Bind sets every field of row i on vars as "data.<table>.<field>".
func (t *Table) Bind(i int, vars Setter) {
	for field, value := range t.rows[i] {
		vars.Set(fmt.Sprintf("data.%s.%s", t.name, field), value)
	}
}

// LoadFile loads a CSV or JSON data file. Relative paths are resolved
// against baseDir.
func LoadFile(name, path, baseDir string) (*Table, error) {
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}

	var rows []map[string]any
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		rows, err = loadCSV(path)
	case ".json":
		rows, err = loadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported file format %q (use .csv or .json)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("data file %s is empty", path)
	}

	return NewTable(name, rows), nil
}

// loadCSV loads a CSV file. First row is headers, subsequent rows are data.
func loadCSV(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV must have header row and at least one data row")
	}

	headers := records[0]
	rows := make([]map[string]any, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]any, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = record[i]
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// loadJSON loads a JSON file. Must be an array of objects.
func loadJSON(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("JSON must be an array of objects: %w", err)
	}
	return rows, nil
}
