package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"invmatch/internal"
	"invmatch/internal/config"
)

// ReportOutputPath resolves where a report goes: the explicit path when one
// was given, otherwise match_report.xlsx under the configured output
// directory.
func ReportOutputPath(cfg config.Config, out string) string {
	if strings.TrimSpace(out) != "" {
		return out
	}
	return filepath.Join(cfg.OutputDir, "match_report.xlsx")
}

var reportHeaders = []string{"File Name", "Invoice No", "PO Match", "Status", "Issue"}

func ExportReportXLSX(rows []internal.ReportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, h := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}
		set(1, row.FileName)
		set(2, row.InvoiceNo)
		set(3, row.POMatch)
		set(4, row.Status)
		set(5, row.Issue)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func ExportReportCSV(rows []internal.ReportRow, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(reportHeaders); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write([]string{row.FileName, row.InvoiceNo, row.POMatch, row.Status, row.Issue}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ExportReport picks the format by the output path's extension; anything that
// is not .xlsx gets CSV.
func ExportReport(rows []internal.ReportRow, outputPath string) error {
	if strings.EqualFold(filepath.Ext(outputPath), ".xlsx") {
		return ExportReportXLSX(rows, outputPath)
	}
	return ExportReportCSV(rows, outputPath)
}
