package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
)

const sampleInvoice = `Invoice Number: INV-1001
PO Number: PO-55
From: Acme Ltd
Total: £100.00

Widget 10 5.00 50.00
Gadget 2 25.00 50.00
`

func TestExtractFields(t *testing.T) {
	rec := Extract(sampleInvoice)

	if rec.InvoiceNumber != "INV-1001" {
		t.Fatalf("invoice number %q", rec.InvoiceNumber)
	}
	if rec.PONumber == nil || *rec.PONumber != "PO-55" {
		t.Fatalf("po number %v", rec.PONumber)
	}
	if rec.SupplierName == nil || *rec.SupplierName != "Acme Ltd" {
		t.Fatalf("supplier %v", rec.SupplierName)
	}
	if rec.TotalAmount == nil || !rec.TotalAmount.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("total %v", rec.TotalAmount)
	}
}

func TestExtractLineItems(t *testing.T) {
	rec := Extract(sampleInvoice)

	if len(rec.LineItems) != 2 {
		t.Fatalf("lines=%d", len(rec.LineItems))
	}
	first := rec.LineItems[0]
	if first.Description != "Widget" || first.Quantity != 10 {
		t.Fatalf("first line %+v", first)
	}
	if !first.UnitPrice.Equal(decimal.RequireFromString("5.00")) || !first.LineTotal.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("first line money %+v", first)
	}
}

func TestExtractCurrencyOnLineItems(t *testing.T) {
	rec := Extract("Widget 10 £5.00 £50.00")
	if len(rec.LineItems) != 1 {
		t.Fatalf("lines=%d", len(rec.LineItems))
	}
	if !rec.LineItems[0].UnitPrice.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("unit price %v", rec.LineItems[0].UnitPrice)
	}
}

func TestExtractSkipsPartialLines(t *testing.T) {
	rec := Extract("Gadget 5 9.99\nWidget 10 5.00 50.00\nSprocket three 1.00 3.00")
	if len(rec.LineItems) != 1 || rec.LineItems[0].Description != "Widget" {
		t.Fatalf("lines %+v", rec.LineItems)
	}
}

func TestExtractFirstOccurrenceWins(t *testing.T) {
	rec := Extract("Invoice Number: INV-1\nInvoice Number: INV-2\nFrom: First Supplier\nFrom: Second Supplier")
	if rec.InvoiceNumber != "INV-1" {
		t.Fatalf("invoice number %q", rec.InvoiceNumber)
	}
	if rec.SupplierName == nil || *rec.SupplierName != "First Supplier" {
		t.Fatalf("supplier %v", rec.SupplierName)
	}
}

func TestExtractLabelsAnchoredToLineStart(t *testing.T) {
	rec := Extract("The grand total: 999.99 story\nSubtotal: 50.00")
	if rec.TotalAmount != nil {
		t.Fatalf("total %v", rec.TotalAmount)
	}
}

func TestExtractEmptyText(t *testing.T) {
	rec := Extract("")
	if rec.InvoiceNumber != "Unknown" {
		t.Fatalf("invoice number %q", rec.InvoiceNumber)
	}
	if rec.PONumber != nil || rec.SupplierName != nil || rec.TotalAmount != nil {
		t.Fatalf("fields not defaulted: %+v", rec)
	}
	if len(rec.LineItems) != 0 {
		t.Fatalf("lines=%d", len(rec.LineItems))
	}
}

func TestExtractUnparsableTotal(t *testing.T) {
	rec := Extract("Total: 1.2.3")
	if rec.TotalAmount != nil {
		t.Fatalf("total %v", rec.TotalAmount)
	}
}

func TestExtractThousandsSeparator(t *testing.T) {
	rec := Extract("Total: £1,234.56")
	if rec.TotalAmount == nil || !rec.TotalAmount.Equal(decimal.RequireFromString("1234.56")) {
		t.Fatalf("total %v", rec.TotalAmount)
	}
}

func TestExtractIdempotent(t *testing.T) {
	a := Extract(sampleInvoice)
	b := Extract(sampleInvoice)
	if a.InvoiceNumber != b.InvoiceNumber || len(a.LineItems) != len(b.LineItems) {
		t.Fatal("extract is not deterministic")
	}
}
