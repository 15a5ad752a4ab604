// Package potable holds the purchase-order table an invoice batch is
// reconciled against: rows as exported from Sage, with column-name aliasing
// resolved once at construction. The table is immutable after New and safe
// for concurrent readers.
package potable

import (
	"fmt"
	"strings"

	"invmatch/internal"
	"invmatch/internal/util"
)

// Columns maps each canonical field to the header actually present in the
// source file. Total stays empty when the export carries no total column;
// it is only needed by header-level amount matching.
type Columns struct {
	PONumber    string
	Supplier    string
	Description string
	Quantity    string
	UnitPrice   string
	Total       string
}

// SchemaError reports a required column that could not be resolved against
// any accepted alias. It is a data-contract failure, distinct from "no
// matching PO".
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("PO data missing required column: %s", e.Column)
}

type aliasSet struct {
	canonical string
	aliases   []string
	required  bool
}

// Accepted header spellings, checked in order. Comparison is case-insensitive
// with underscores treated as spaces, so "PO Number" and "po_number" both
// resolve to PO_Number.
var columnAliases = []aliasSet{
	{canonical: "PO_Number", aliases: []string{"PO_Number", "PO Number", "PO No"}, required: true},
	{canonical: "Supplier_Name", aliases: []string{"Supplier_Name", "Supplier Name", "Supplier"}, required: true},
	{canonical: "Item_Description", aliases: []string{"Item_Description", "Item Description", "Description"}, required: true},
	{canonical: "Quantity_Ordered", aliases: []string{"Quantity_Ordered", "Quantity Ordered", "Quantity", "Qty"}, required: true},
	{canonical: "Unit_Price", aliases: []string{"Unit_Price", "Unit Price"}, required: true},
	{canonical: "Total_Amount", aliases: []string{"Total_Amount", "Total Amount", "Total"}, required: false},
}

// Table is a loaded PO export with its columns resolved.
type Table struct {
	Rows      []internal.PORecord
	Cols      Columns
	schemaErr error
}

// New resolves the column aliases for the given rows and returns the table.
// A schema gap does not prevent construction; it is carried on the table and
// reported per invoice by the reconciler, so one bad export degrades every
// invoice in the batch identically instead of aborting it.
func New(rows []internal.PORecord) *Table {
	t := &Table{Rows: rows}

	headers := map[string]string{}
	for _, row := range rows {
		for h := range row {
			headers[foldHeader(h)] = h
		}
		break
	}

	resolve := func(set aliasSet) string {
		for _, alias := range set.aliases {
			if actual, ok := headers[foldHeader(alias)]; ok {
				return actual
			}
		}
		return ""
	}

	for _, set := range columnAliases {
		actual := resolve(set)
		if actual == "" && set.required && len(rows) > 0 && t.schemaErr == nil {
			t.schemaErr = &SchemaError{Column: set.canonical}
		}
		switch set.canonical {
		case "PO_Number":
			t.Cols.PONumber = actual
		case "Supplier_Name":
			t.Cols.Supplier = actual
		case "Item_Description":
			t.Cols.Description = actual
		case "Quantity_Ordered":
			t.Cols.Quantity = actual
		case "Unit_Price":
			t.Cols.UnitPrice = actual
		case "Total_Amount":
			t.Cols.Total = actual
		}
	}

	return t
}

// SchemaGap returns the unresolved-column error, or nil when all required
// columns resolved (an empty table has no schema to violate).
func (t *Table) SchemaGap() error {
	return t.schemaErr
}

// Candidates returns, in table order, the rows whose PO number equals the
// given one. PO numbers are exact system keys; no fuzzy matching here.
func (t *Table) Candidates(poNumber string) []internal.PORecord {
	if t.Cols.PONumber == "" || strings.TrimSpace(poNumber) == "" {
		return nil
	}
	var out []internal.PORecord
	for _, row := range t.Rows {
		if strings.TrimSpace(row[t.Cols.PONumber]) == poNumber {
			out = append(out, row)
		}
	}
	return out
}

func foldHeader(h string) string {
	return util.FoldName(strings.ReplaceAll(h, "_", " "))
}
