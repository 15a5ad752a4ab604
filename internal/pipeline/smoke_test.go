package pipeline

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"invmatch/internal"
	"invmatch/internal/config"
	"invmatch/internal/storage"

	_ "modernc.org/sqlite"
)

func TestSmokeBatchToReport(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	poRows := []internal.PORecord{
		{
			"PO_Number":        "PO-55",
			"Supplier_Name":    "Acme Ltd",
			"Item_Description": "Widget",
			"Quantity_Ordered": "10",
			"Unit_Price":       "5.00",
		},
		{
			"PO_Number":        "PO-56",
			"Supplier_Name":    "Globex Inc",
			"Item_Description": "Sprocket",
			"Quantity_Ordered": "4",
			"Unit_Price":       "2.75",
		},
	}
	if err := db.ReplacePORows(poRows); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMetadata("po_source", "purchase_orders.csv"); err != nil {
		t.Fatal(err)
	}

	matching := filepath.Join(tmp, "inv_match.txt")
	if err := os.WriteFile(matching, []byte(sampleInvoice), 0o644); err != nil {
		t.Fatal(err)
	}
	orphan := filepath.Join(tmp, "inv_orphan.txt")
	if err := os.WriteFile(orphan, []byte("Invoice No: INV-2002\nPO No: PO-77\nFrom: Acme Ltd\nTotal: £10.00\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{matching, orphan} {
		if _, err := db.UpsertDocument(p, filepath.Base(p), "hash"); err != nil {
			t.Fatal(err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	svc := NewProcessingService(db, cfg)
	res, err := svc.ProcessPending(10)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 2 || res.Failed != 0 {
		t.Fatalf("process result %+v", res)
	}

	source, err := db.GetMetadata("po_source")
	if err != nil {
		t.Fatal(err)
	}
	if source == nil || *source != "purchase_orders.csv" {
		t.Fatalf("po_source metadata %v", source)
	}

	rows, err := db.GetReportRows()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("report rows=%d", len(rows))
	}

	// Mismatch in sampleInvoice: its second line (Gadget) has no PO analog,
	// so the one-row PO-55 table yields a line mismatch; the orphan invoice
	// has no PO at all. Matches sort first.
	byFile := map[string]internal.ReportRow{}
	for _, row := range rows {
		byFile[row.FileName] = row
	}
	if byFile["inv_orphan.txt"].Status != string(internal.StatusNoMatch) {
		t.Fatalf("orphan row %+v", byFile["inv_orphan.txt"])
	}
	if byFile["inv_match.txt"].Status != string(internal.StatusMismatch) {
		t.Fatalf("match row %+v", byFile["inv_match.txt"])
	}

	xlsxOut := filepath.Join(tmp, "report.xlsx")
	if err := ExportReport(rows, xlsxOut); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(xlsxOut); err != nil {
		t.Fatal(err)
	}

	csvOut := filepath.Join(tmp, "report.csv")
	if err := ExportReport(rows, csvOut); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(csvOut); err != nil {
		t.Fatal(err)
	}
}

func TestSmokeReprocessIsIdempotent(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.ReplacePORows([]internal.PORecord{{
		"PO_Number":        "PO-55",
		"Supplier_Name":    "Acme Ltd",
		"Item_Description": "Widget",
		"Quantity_Ordered": "10",
		"Unit_Price":       "5.00",
	}}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(tmp, "inv.txt")
	if err := os.WriteFile(path, []byte("Invoice No: INV-1\nPO No: PO-55\nFrom: Acme Ltd\nWidget 10 5.00 50.00\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	svc := NewProcessingService(db, cfg)

	for i := 0; i < 2; i++ {
		if _, err := db.UpsertDocument(path, "inv.txt", "hash"); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.ProcessPending(10); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := db.GetReportRows()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("report rows=%d", len(rows))
	}
	if rows[0].Status != string(internal.StatusMatch) || rows[0].Issue != "-" {
		t.Fatalf("row %+v", rows[0])
	}
}

func TestProcessByPath(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.ReplacePORows([]internal.PORecord{{
		"PO_Number":        "PO-55",
		"Supplier_Name":    "Acme Ltd",
		"Item_Description": "Widget",
		"Quantity_Ordered": "10",
		"Unit_Price":       "5.00",
	}}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(tmp, "inv.txt")
	if err := os.WriteFile(path, []byte("Invoice No: INV-1\nPO No: PO-55\nFrom: Acme Ltd\nWidget 10 5.00 50.00\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := db.UpsertDocument(path, "inv.txt", "hash"); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	svc := NewProcessingService(db, cfg)

	res, err := svc.ProcessByPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != internal.StatusMatch || res.Issue != internal.NoIssue {
		t.Fatalf("result %+v", res)
	}

	doc, err := db.MustDocumentByPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Status != "processed" {
		t.Fatalf("document status %q", doc.Status)
	}

	// A second pass over the same document must replace, not duplicate.
	if _, err := svc.ProcessByPath(path); err != nil {
		t.Fatal(err)
	}
	rows, err := db.GetReportRows()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("report rows=%d", len(rows))
	}

	if _, err := svc.ProcessByPath(filepath.Join(tmp, "missing.txt")); err == nil {
		t.Fatal("expected error for unregistered path")
	}
}

func TestProcessPendingStopsAfterStorageFailure(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "app.db")
	db, err := storage.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.ReplacePORows([]internal.PORecord{{
		"PO_Number":        "PO-55",
		"Supplier_Name":    "Acme Ltd",
		"Item_Description": "Widget",
		"Quantity_Ordered": "10",
		"Unit_Price":       "5.00",
	}}); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"inv_a.txt", "inv_b.txt"} {
		path := filepath.Join(tmp, name)
		if err := os.WriteFile(path, []byte("Invoice No: INV-1\nPO No: PO-55\nFrom: Acme Ltd\nWidget 10 5.00 50.00\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := db.UpsertDocument(path, name, "hash"); err != nil {
			t.Fatal(err)
		}
	}

	// Break persistence out from under the service.
	raw, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer raw.Close()
	if _, err := raw.Exec(`DROP TABLE results`); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	svc := NewProcessingService(db, cfg)

	if _, err := svc.ProcessPending(10); err == nil {
		t.Fatal("expected storage error to surface")
	}

	// Nothing may be marked processed when its result row never landed.
	processed, err := db.ListDocumentsByStatus("processed", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(processed) != 0 {
		t.Fatalf("processed documents after failure: %+v", processed)
	}
}
