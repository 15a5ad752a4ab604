package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"invmatch/internal"
	"invmatch/internal/util"
)

// Field patterns are anchored to line starts so "Total" inside a sentence or
// "PO" inside a word never binds. First occurrence wins; the top of the
// document is assumed authoritative.
var (
	reInvoiceNo = regexp.MustCompile(`(?i)^Invoice\s*(?:Number|No)?\s*[:#]\s*([A-Za-z0-9/-]+)`)
	rePONo      = regexp.MustCompile(`(?i)^PO\s*(?:Number|No)?\s*[:#]\s*([A-Za-z0-9/-]+)`)
	reSupplier  = regexp.MustCompile(`(?i)^From\s*:\s*(.+)$`)
	reTotal     = regexp.MustCompile(`(?i)^Total\s*:?\s*[£$€¥]?\s*([0-9][0-9.,]*)`)

	// One invoice line: description, integer quantity, then two money tokens
	// with exactly two fraction digits. The description capture is lazy so
	// adjacent numeric columns are not swallowed into it. Matched per line,
	// never across line breaks.
	reLineItem = regexp.MustCompile(`^(.+?)\s+(\d+)\s+[£$€¥]?(\d+\.\d{2})\s+[£$€¥]?(\d+\.\d{2})\s*$`)
)

// Extract converts raw invoice text into an InvoiceRecord. It is a pure
// function of the text and total over any input: fields that cannot be found
// or parsed stay nil (the invoice number falls back to its sentinel) and
// malformed line rows are skipped, never surfaced as errors.
func Extract(text string) internal.InvoiceRecord {
	rec := internal.InvoiceRecord{InvoiceNumber: internal.InvoiceNumberUnknown}

	for _, line := range splitLines(text) {
		if m := reInvoiceNo.FindStringSubmatch(line); m != nil && rec.InvoiceNumber == internal.InvoiceNumberUnknown {
			rec.InvoiceNumber = strings.TrimSpace(m[1])
		}
		if m := rePONo.FindStringSubmatch(line); m != nil && rec.PONumber == nil {
			rec.PONumber = util.StringPtr(strings.TrimSpace(m[1]))
		}
		if m := reSupplier.FindStringSubmatch(line); m != nil && rec.SupplierName == nil {
			rec.SupplierName = util.StringPtr(strings.TrimSpace(m[1]))
		}
		if m := reTotal.FindStringSubmatch(line); m != nil && rec.TotalAmount == nil {
			if amount, ok := util.ParseMoney(m[1]); ok {
				rec.TotalAmount = &amount
			}
		}
		if item, ok := parseLineItem(line); ok {
			rec.LineItems = append(rec.LineItems, item)
		}
	}

	return rec
}

// parseLineItem parses one "description qty unit_price line_total" row.
// All four captures must parse or the line is discarded: partial rows are
// noise, not partial evidence.
func parseLineItem(line string) (internal.LineItem, bool) {
	m := reLineItem.FindStringSubmatch(line)
	if m == nil {
		return internal.LineItem{}, false
	}

	qty, err := strconv.Atoi(m[2])
	if err != nil || qty < 0 {
		return internal.LineItem{}, false
	}
	unitPrice, ok := util.ParseMoney(m[3])
	if !ok {
		return internal.LineItem{}, false
	}
	lineTotal, ok := util.ParseMoney(m[4])
	if !ok {
		return internal.LineItem{}, false
	}

	return internal.LineItem{
		Description: strings.TrimSpace(m[1]),
		Quantity:    qty,
		UnitPrice:   unitPrice,
		LineTotal:   lineTotal,
	}, true
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
