// Package file parses uploaded CSV and Excel files into datasets. It is an
// external collaborator of the engine: parse errors surface as LoadError and
// never touch engine state.
package file

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"statlab/domain/dataset"
	"statlab/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Reader handles reading Excel and CSV files.
type Reader struct{}

// NewReader creates a reader for both formats.
func NewReader() *Reader {
	return &Reader{}
}

// Read parses the file at path into a column-oriented dataset. The first row
// is the header; ragged data rows are padded with empty (missing) cells.
func (r *Reader) Read(path string) (*dataset.Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.LoadError(fmt.Sprintf("cannot read %q: %v", path, err))
	}

	var header []string
	var rows [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		header, rows, err = readCSV(path)
	case ".xlsx":
		header, rows, err = readExcel(path)
	default:
		return nil, errors.LoadError(fmt.Sprintf("unsupported file type %q", filepath.Ext(path)))
	}
	if err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, errors.LoadError("file has no header row")
	}
	if len(rows) == 0 {
		return nil, errors.LoadError("file has no data rows")
	}

	columns := make([]dataset.Column, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		columns[i] = dataset.Column{Name: name, Values: make([]string, len(rows))}
	}
	for rowIdx, row := range rows {
		for colIdx := range header {
			if colIdx < len(row) {
				columns[colIdx].Values[rowIdx] = row[colIdx]
			}
		}
	}

	ds, err := dataset.New(columns)
	if err != nil {
		return nil, errors.Wrap(err, "invalid dataset")
	}
	ds.FileName = filepath.Base(path)
	ds.FileSize = info.Size()
	return ds, nil
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // tolerate ragged rows, pad later
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to parse CSV file")
	}
	if len(records) == 0 {
		return nil, nil, errors.LoadError("CSV file is empty")
	}
	return records[0], records[1:], nil
}

func readExcel(path string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.LoadError("Excel file has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to read Excel rows")
	}
	if len(records) == 0 {
		return nil, nil, errors.LoadError("Excel sheet is empty")
	}
	return records[0], records[1:], nil
}
