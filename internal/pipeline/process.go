package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"invmatch/internal"
	"invmatch/internal/config"
	"invmatch/internal/potable"
	"invmatch/internal/storage"
)

type ProcessingService struct {
	db  *storage.DB
	cfg config.Config
	mu  sync.Mutex // serializes sqlite writes from the worker pool
}

func NewProcessingService(db *storage.DB, cfg config.Config) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg}
}

type ProcessResult struct {
	Processed int
	Matched   int
	Failed    int
}

// outcome is everything processing one document produces: the extracted
// record when decoding worked, the reconciliation result, and the document
// status to store.
type outcome struct {
	rec    *internal.InvoiceRecord
	res    internal.MatchResult
	status string
}

// ProcessByPath reprocesses a single registered invoice file against the
// loaded PO table.
func (s *ProcessingService) ProcessByPath(path string) (internal.MatchResult, error) {
	doc, err := s.db.MustDocumentByPath(path)
	if err != nil {
		return internal.MatchResult{}, err
	}

	poRows, err := s.db.ListPORows()
	if err != nil {
		return internal.MatchResult{}, err
	}

	out := evaluateDocument(doc, potable.New(poRows), NewReconciler(s.cfg))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persistOutcome(doc, out); err != nil {
		return internal.MatchResult{}, err
	}
	return out.res, nil
}

// ProcessPending reconciles every document still waiting against the loaded
// PO table. Documents are independent and the table is read-only, so the
// decode/extract/reconcile work fans out across a bounded worker pool;
// persistence stays serialized. One document's failure never stops the
// batch: it is recorded as a failed result and the scan continues. A storage
// failure does stop it: once a write errors, nothing further is persisted.
func (s *ProcessingService) ProcessPending(limit int) (ProcessResult, error) {
	start := time.Now()

	pending, err := s.db.ListDocumentsByStatus("added", limit)
	if err != nil {
		return ProcessResult{}, err
	}
	if len(pending) == 0 {
		return ProcessResult{}, nil
	}

	poRows, err := s.db.ListPORows()
	if err != nil {
		return ProcessResult{}, err
	}
	table := potable.New(poRows)
	reconciler := NewReconciler(s.cfg)

	workers := s.cfg.ProcessWorkers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan internal.DocumentRow)
	var wg sync.WaitGroup
	var firstErr error
	counts := map[string]int{}

	record := func(doc internal.DocumentRow, out outcome) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if firstErr != nil {
			return
		}
		if err := s.persistOutcome(doc, out); err != nil {
			firstErr = err
			return
		}
		counts[out.status]++
		counts[string(out.res.Status)]++
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				record(doc, evaluateDocument(doc, table, reconciler))
			}
		}()
	}

	for _, doc := range pending {
		jobs <- doc
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return ProcessResult{}, firstErr
	}

	result := ProcessResult{
		Processed: counts["processed"],
		Matched:   counts[string(internal.StatusMatch)],
		Failed:    counts["failed"],
	}
	_ = s.db.InsertRun(traceID(), map[string]float64{
		"totalMs": float64(time.Since(start).Milliseconds()),
	}, counts)

	return result, nil
}

func evaluateDocument(doc internal.DocumentRow, table *potable.Table, reconciler *Reconciler) outcome {
	text, err := DecodeDocument(doc.Path)
	if err != nil {
		return outcome{
			res: internal.MatchResult{
				InvoiceNo: internal.InvoiceNumberUnknown,
				POMatch:   internal.PONotFound,
				Status:    internal.StatusNoMatch,
				Issue:     fmt.Sprintf("document decode failed: %v", err),
			},
			status: "failed",
		}
	}

	rec := Extract(text)
	return outcome{
		rec:    &rec,
		res:    reconciler.Reconcile(rec, table),
		status: "processed",
	}
}

// persistOutcome writes one document's rows as a unit and stops on the first
// error so a failed clear never gets invoice or result rows stacked on top
// of the stale ones. Callers hold s.mu.
func (s *ProcessingService) persistOutcome(doc internal.DocumentRow, out outcome) error {
	if err := s.db.ClearDocumentProcessing(doc.ID); err != nil {
		return err
	}
	if out.rec != nil {
		if _, err := s.db.InsertInvoice(doc.ID, *out.rec); err != nil {
			return err
		}
	}
	if err := s.db.InsertResult(doc.ID, out.res); err != nil {
		return err
	}
	return s.db.UpdateDocumentStatus(doc.ID, out.status)
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
