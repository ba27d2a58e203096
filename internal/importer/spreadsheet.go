package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/conorfennell/knoldeck/internal/parser"
)

// Spreadsheet decks have the front in column A, the back in column B and an
// optional context in column C. The first row is a header.

// ReadSpreadsheet reads entries from an .xlsx file. An empty sheet name
// selects the first worksheet.
func ReadSpreadsheet(path, sheet string) ([]parser.Entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return entriesFromRows(rows), nil
}

// ReadCSV reads entries from a comma-separated file with the same layout.
func ReadCSV(path string) ([]parser.Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV file %s: %w", path, err)
		}
		rows = append(rows, record)
	}
	return entriesFromRows(rows), nil
}

func entriesFromRows(rows [][]string) []parser.Entry {
	var entries []parser.Entry
	for i, row := range rows {
		if i == 0 {
			continue
		}
		e := parser.Entry{
			Front:   cell(row, 0),
			Back:    cell(row, 1),
			Context: cell(row, 2),
		}
		if e.Front == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
