package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"invmatch/internal"
	"invmatch/internal/util"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS po_rows (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  rowNo INTEGER NOT NULL,
  rowJson TEXT NOT NULL,
  loadedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS documents (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  path TEXT NOT NULL,
  fileName TEXT NOT NULL,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'added',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(path)
);

CREATE TABLE IF NOT EXISTS invoices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  documentId INTEGER NOT NULL UNIQUE,
  invoiceNumber TEXT NOT NULL,
  poNumber TEXT,
  supplierName TEXT,
  totalAmount TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(documentId) REFERENCES documents(id)
);

CREATE TABLE IF NOT EXISTS invoice_lines (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  invoiceId INTEGER NOT NULL,
  lineNo INTEGER NOT NULL,
  description TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unitPrice TEXT NOT NULL,
  lineTotal TEXT NOT NULL,
  FOREIGN KEY(invoiceId) REFERENCES invoices(id)
);

CREATE TABLE IF NOT EXISTS results (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  documentId INTEGER NOT NULL UNIQUE,
  invoiceNo TEXT NOT NULL,
  poMatch TEXT NOT NULL,
  status TEXT NOT NULL,
  issue TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(documentId) REFERENCES documents(id)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// ReplacePORows swaps in a freshly loaded PO table. The table is read-only
// between loads, so a full replace keeps it consistent with the source file.
func (d *DB) ReplacePORows(rows []internal.PORecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM po_rows`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO po_rows (rowNo, rowJson) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range rows {
		rowJSON, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(i+1, string(rowJSON)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListPORows() ([]internal.PORecord, error) {
	rows, err := d.conn.Query(`SELECT rowJson FROM po_rows ORDER BY rowNo ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.PORecord
	for rows.Next() {
		var rowJSON string
		if err := rows.Scan(&rowJSON); err != nil {
			return nil, err
		}
		record := internal.PORecord{}
		if err := json.Unmarshal([]byte(rowJSON), &record); err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (d *DB) UpsertDocument(path, fileName, hash string) (internal.DocumentRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO documents (path, fileName, hash, status)
VALUES (?, ?, ?, 'added')
ON CONFLICT(path) DO UPDATE SET
  fileName=excluded.fileName,
  hash=excluded.hash,
  status='added',
  updatedAt=CURRENT_TIMESTAMP
`, path, fileName, hash)
	if err != nil {
		return internal.DocumentRow{}, err
	}

	var row internal.DocumentRow
	err = d.conn.QueryRow(`
SELECT id, path, fileName, hash, status FROM documents WHERE path = ?
`, path).Scan(&row.ID, &row.Path, &row.FileName, &row.Hash, &row.Status)
	if err != nil {
		return internal.DocumentRow{}, err
	}
	return row, nil
}

func (d *DB) ListDocumentsByStatus(status string, limit int) ([]internal.DocumentRow, error) {
	rows, err := d.conn.Query(`
SELECT id, path, fileName, hash, status
FROM documents WHERE status = ? ORDER BY id ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.DocumentRow
	for rows.Next() {
		var row internal.DocumentRow
		if err := rows.Scan(&row.ID, &row.Path, &row.FileName, &row.Hash, &row.Status); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateDocumentStatus(documentID int, status string) error {
	_, err := d.conn.Exec(`UPDATE documents SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, documentID)
	return err
}

// ClearDocumentProcessing removes a document's extraction and result rows so
// reprocessing starts clean.
func (d *DB) ClearDocumentProcessing(documentID int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var invoiceID int64
	err = tx.QueryRow(`SELECT id FROM invoices WHERE documentId = ?`, documentID).Scan(&invoiceID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err == nil {
		if _, err := tx.Exec(`DELETE FROM invoice_lines WHERE invoiceId = ?`, invoiceID); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM invoices WHERE id = ?`, invoiceID); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`DELETE FROM results WHERE documentId = ?`, documentID); err != nil {
		return err
	}

	return tx.Commit()
}

func (d *DB) InsertInvoice(documentID int, rec internal.InvoiceRecord) (int64, error) {
	var total *string
	if rec.TotalAmount != nil {
		total = util.StringPtr(rec.TotalAmount.String())
	}

	result, err := d.conn.Exec(`
INSERT INTO invoices (documentId, invoiceNumber, poNumber, supplierName, totalAmount)
VALUES (?, ?, ?, ?, ?)
`, documentID, rec.InvoiceNumber, rec.PONumber, rec.SupplierName, total)
	if err != nil {
		return 0, err
	}
	invoiceID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, line := range rec.LineItems {
		if _, err := d.conn.Exec(`
INSERT INTO invoice_lines (invoiceId, lineNo, description, quantity, unitPrice, lineTotal)
VALUES (?, ?, ?, ?, ?, ?)
`, invoiceID, i+1, line.Description, line.Quantity, line.UnitPrice.String(), line.LineTotal.String()); err != nil {
			return 0, err
		}
	}

	return invoiceID, nil
}

func (d *DB) InsertResult(documentID int, res internal.MatchResult) error {
	_, err := d.conn.Exec(`
INSERT INTO results (documentId, invoiceNo, poMatch, status, issue)
VALUES (?, ?, ?, ?, ?)
`, documentID, res.InvoiceNo, res.POMatch, string(res.Status), res.Issue)
	return err
}

func (d *DB) InsertRun(traceID string, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, timingsJson, countsJson) VALUES (?, ?, ?)`, traceID, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// GetReportRows returns one row per processed document, matches first so the
// exported report reads problems bottom-up.
func (d *DB) GetReportRows() ([]internal.ReportRow, error) {
	rows, err := d.conn.Query(`
SELECT doc.fileName, r.invoiceNo, r.poMatch, r.status, r.issue
FROM results r
JOIN documents doc ON doc.id = r.documentId
ORDER BY
  CASE r.status WHEN 'Match' THEN 1 WHEN 'Mismatch' THEN 2 ELSE 3 END,
  doc.fileName ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ReportRow
	for rows.Next() {
		var row internal.ReportRow
		if err := rows.Scan(&row.FileName, &row.InvoiceNo, &row.POMatch, &row.Status, &row.Issue); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) MustDocumentByPath(path string) (internal.DocumentRow, error) {
	var row internal.DocumentRow
	err := d.conn.QueryRow(`
SELECT id, path, fileName, hash, status FROM documents WHERE path = ?
`, path).Scan(&row.ID, &row.Path, &row.FileName, &row.Hash, &row.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.DocumentRow{}, fmt.Errorf("document not found: %s", path)
	}
	if err != nil {
		return internal.DocumentRow{}, err
	}
	return row, nil
}
