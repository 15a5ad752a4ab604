package pipeline

import (
	"fmt"
	"path/filepath"

	"invmatch/internal"
	"invmatch/internal/config"
	"invmatch/internal/potable"
)

// RunBatch reconciles a set of invoice files against a PO export in one
// call, without touching the database. One row comes back per input file,
// decode failures included.
func RunBatch(cfg config.Config, poPath string, invoicePaths []string) ([]internal.ReportRow, error) {
	poRows, err := potable.Load(poPath)
	if err != nil {
		return nil, fmt.Errorf("load PO data: %w", err)
	}
	table := potable.New(poRows)
	reconciler := NewReconciler(cfg)

	out := make([]internal.ReportRow, 0, len(invoicePaths))
	for _, path := range invoicePaths {
		fileName := filepath.Base(path)

		text, err := DecodeDocument(path)
		if err != nil {
			out = append(out, internal.ReportRow{
				FileName:  fileName,
				InvoiceNo: internal.InvoiceNumberUnknown,
				POMatch:   internal.PONotFound,
				Status:    string(internal.StatusNoMatch),
				Issue:     fmt.Sprintf("document decode failed: %v", err),
			})
			continue
		}

		rec := Extract(text)
		res := reconciler.Reconcile(rec, table)
		out = append(out, internal.ReportRow{
			FileName:  fileName,
			InvoiceNo: res.InvoiceNo,
			POMatch:   res.POMatch,
			Status:    string(res.Status),
			Issue:     res.Issue,
		})
	}

	return out, nil
}
