package potable

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"invmatch/internal"
	"invmatch/internal/util"
)

// Load reads a PO export by file extension: .csv or .xlsx/.xls.
func Load(path string) ([]internal.PORecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".xlsx", ".xls":
		return LoadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported PO file type: %s", filepath.Ext(path))
	}
}

func LoadCSV(path string) ([]internal.PORecord, error) {
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
	if len(records) == 0 {
		return nil, nil
	}

	return rowsFromCells(records[0], records[1:]), nil
}

func LoadXLSX(path string) ([]internal.PORecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	return rowsFromCells(rows[0], rows[1:]), nil
}

// rowsFromCells zips each data row against the header row. Short rows are
// padded with empty cells rather than dropped; what a blank value means is
// the reconciler's call.
func rowsFromCells(header []string, data [][]string) []internal.PORecord {
	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = util.NormalizeSpaces(h)
	}

	out := make([]internal.PORecord, 0, len(data))
	for _, cells := range data {
		empty := true
		for _, c := range cells {
			if strings.TrimSpace(c) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}

		row := internal.PORecord{}
		for i, h := range headers {
			if h == "" {
				continue
			}
			value := ""
			if i < len(cells) {
				value = strings.TrimSpace(cells[i])
			}
			row[h] = value
		}
		out = append(out, row)
	}
	return out
}
