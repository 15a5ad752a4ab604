package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"invmatch/internal"
	"invmatch/internal/config"
	"invmatch/internal/potable"
	"invmatch/internal/util"
)

type Reconciler struct {
	cfg            config.Config
	totalTolerance decimal.Decimal
	priceTolerance decimal.Decimal
}

func NewReconciler(cfg config.Config) *Reconciler {
	return &Reconciler{
		cfg:            cfg,
		totalTolerance: decimal.NewFromFloat(cfg.TotalTolerance),
		priceTolerance: decimal.NewFromFloat(cfg.UnitPriceTolerance),
	}
}

// Reconcile decides whether the invoice matches its purchase order. The
// pipeline is: select candidate rows by exact PO number, gate each candidate
// on supplier similarity, then compare amounts at header level (no line
// items) or line by line. Candidates are scanned in table order; the first
// one that fully matches wins, otherwise the last-evaluated candidate's
// mismatch is reported. Reconcile is total: every invoice yields exactly one
// result, whatever failed to extract.
func (r *Reconciler) Reconcile(invoice internal.InvoiceRecord, table *potable.Table) internal.MatchResult {
	result := internal.MatchResult{
		InvoiceNo: invoice.InvoiceNumber,
		POMatch:   internal.PONotFound,
		Status:    internal.StatusNoMatch,
		Issue:     "PO number not found in PO data",
	}

	if err := table.SchemaGap(); err != nil {
		result.Issue = err.Error()
		return result
	}

	poNumber := ""
	if invoice.PONumber != nil {
		poNumber = strings.TrimSpace(*invoice.PONumber)
	}
	candidates := table.Candidates(poNumber)
	if len(candidates) == 0 {
		return result
	}

	supplier := ""
	if invoice.SupplierName != nil {
		supplier = *invoice.SupplierName
	}

	for _, row := range candidates {
		result.POMatch = strings.TrimSpace(row[table.Cols.PONumber])

		if util.PartialRatio(supplier, row[table.Cols.Supplier]) < r.cfg.SupplierMatchThreshold {
			result.Status = internal.StatusMismatch
			result.Issue = "Supplier name mismatch"
			continue
		}

		if len(invoice.LineItems) == 0 {
			if r.totalAgrees(invoice.TotalAmount, row, table.Cols) {
				result.Status = internal.StatusMatch
				result.Issue = internal.NoIssue
				return result
			}
			result.Status = internal.StatusMismatch
			result.Issue = "Mismatch in supplier or amount"
			continue
		}

		mismatched := 0
		for _, line := range invoice.LineItems {
			if !r.lineAgrees(line, row, table.Cols) {
				mismatched++
			}
		}
		if mismatched == 0 {
			result.Status = internal.StatusMatch
			result.Issue = internal.NoIssue
			return result
		}
		result.Status = internal.StatusMismatch
		result.Issue = fmt.Sprintf("%d line item(s) did not match", mismatched)
	}

	return result
}

// totalAgrees checks the header-level amount: abs(invoice - po) strictly
// within the total tolerance. A missing or unparsable total on either side
// is a failed check, not an error.
func (r *Reconciler) totalAgrees(invoiceTotal *decimal.Decimal, row internal.PORecord, cols potable.Columns) bool {
	if invoiceTotal == nil || cols.Total == "" {
		return false
	}
	poTotal, ok := util.ParseMoney(row[cols.Total])
	if !ok {
		return false
	}
	return invoiceTotal.Sub(poTotal).Abs().LessThan(r.totalTolerance)
}

// lineAgrees is the triple check for one invoice line against the PO row:
// description similar above the threshold, quantity exactly equal, unit
// price strictly within tolerance.
func (r *Reconciler) lineAgrees(line internal.LineItem, row internal.PORecord, cols potable.Columns) bool {
	if util.PartialRatio(line.Description, row[cols.Description]) <= r.cfg.DescriptionMatchThreshold {
		return false
	}

	poQty, err := strconv.Atoi(strings.TrimSpace(row[cols.Quantity]))
	if err != nil || poQty != line.Quantity {
		return false
	}

	poPrice, ok := util.ParseMoney(row[cols.UnitPrice])
	if !ok {
		return false
	}
	return poPrice.Sub(line.UnitPrice).Abs().LessThan(r.priceTolerance)
}
