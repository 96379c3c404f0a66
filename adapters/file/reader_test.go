package file

import (
	"os"
	"path/filepath"
	"testing"

	"statlab/internal/errors"

	"github.com/xuri/excelize/v2"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestRead_CSV(t *testing.T) {
	path := writeTempCSV(t, "age,name\n34,alice\n29,bob\n41,carol\n")

	ds, err := NewReader().Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ds.Cols() != 2 || ds.Rows() != 3 {
		t.Fatalf("dims = %dx%d, want 3x2", ds.Rows(), ds.Cols())
	}
	if ds.Columns[0].Name != "age" || ds.Columns[1].Name != "name" {
		t.Errorf("headers = %v", ds.ColumnNames())
	}
	if ds.Columns[0].Values[1] != "29" || ds.Columns[1].Values[2] != "carol" {
		t.Errorf("cell values misaligned: %+v", ds.Columns)
	}
	if ds.FileName != "data.csv" {
		t.Errorf("FileName = %q", ds.FileName)
	}
	if ds.FileSize == 0 {
		t.Error("FileSize not recorded")
	}
}

func TestRead_CSVRaggedRowsPadded(t *testing.T) {
	path := writeTempCSV(t, "a,b,c\n1,2,3\n4,5\n6\n")

	ds, err := NewReader().Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ds.Rows() != 3 {
		t.Fatalf("Rows = %d, want 3", ds.Rows())
	}
	// Short rows pad with empty cells, which read as missing.
	if ds.Columns[2].Values[1] != "" || ds.Columns[1].Values[2] != "" {
		t.Errorf("ragged rows not padded: %+v", ds.Columns)
	}
}

func TestRead_CSVBlankHeaderNamed(t *testing.T) {
	path := writeTempCSV(t, "a,,c\n1,2,3\n")

	ds, err := NewReader().Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ds.Columns[1].Name != "column_2" {
		t.Errorf("blank header = %q, want column_2", ds.Columns[1].Name)
	}
}

func TestRead_Errors(t *testing.T) {
	if _, err := NewReader().Read(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("missing file accepted")
	}

	path := writeTempCSV(t, "a,b\n")
	if _, err := NewReader().Read(path); !errors.HasCode(err, errors.CodeLoadError) {
		t.Errorf("header-only file: %v", err)
	}

	txt := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(txt, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader().Read(txt); !errors.HasCode(err, errors.CodeLoadError) {
		t.Errorf("unsupported extension: %v", err)
	}
}

func TestRead_Excel(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"id", "score"},
		{1, 9.5},
		{2, 7.25},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "data.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save fixture: %v", err)
	}

	ds, err := NewReader().Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ds.Cols() != 2 || ds.Rows() != 2 {
		t.Fatalf("dims = %dx%d, want 2x2", ds.Rows(), ds.Cols())
	}
	if ds.Columns[0].Name != "id" || ds.Columns[1].Values[0] != "9.5" {
		t.Errorf("parsed columns = %+v", ds.Columns)
	}
}
