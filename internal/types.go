package internal

import "github.com/shopspring/decimal"

type MatchStatus string

const (
	StatusMatch    MatchStatus = "Match"
	StatusMismatch MatchStatus = "Mismatch"
	StatusNoMatch  MatchStatus = "No Match"
)

// Display sentinels used whenever a value could not be determined.
const (
	InvoiceNumberUnknown = "Unknown"
	PONotFound           = "Not Found"
	NoIssue              = "-"
)

// LineItem is one ordered product or service line of an invoice. A LineItem
// only exists if all four fields parsed; partial rows are dropped during
// extraction.
type LineItem struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// InvoiceRecord is the structured form of one invoice document. Fields absent
// from the text stay nil; InvoiceNumber falls back to the Unknown sentinel so
// the invoice is always displayable.
type InvoiceRecord struct {
	InvoiceNumber string
	PONumber      *string
	SupplierName  *string
	TotalAmount   *decimal.Decimal
	LineItems     []LineItem
}

// PORecord is one row of the purchase-order export, keyed by the column
// headers exactly as they appear in the source file. Header aliasing is
// resolved by potable, not here.
type PORecord map[string]string

// MatchResult is the reconciliation outcome for one invoice.
// Invariant: Status == StatusMatch iff Issue == NoIssue.
type MatchResult struct {
	InvoiceNo string      `json:"invoiceNo"`
	POMatch   string      `json:"poMatch"`
	Status    MatchStatus `json:"status"`
	Issue     string      `json:"issue"`
}

type DocumentRow struct {
	ID       int
	Path     string
	FileName string
	Hash     string
	Status   string
}

type ReportRow struct {
	FileName  string
	InvoiceNo string
	POMatch   string
	Status    string
	Issue     string
}
