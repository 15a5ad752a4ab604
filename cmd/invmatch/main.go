package main

import (
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"invmatch/internal/config"
	"invmatch/internal/pipeline"
	"invmatch/internal/potable"
	"invmatch/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	// The one-shot path needs no database.
	if cmd == "run" {
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		poPath := fs.String("po", "", "PO export file (csv or xlsx)")
		invoices := fs.String("invoices", "", "comma-separated invoice files, or a directory")
		out := fs.String("out", "", "output report path (.xlsx or .csv)")
		_ = fs.Parse(os.Args[2:])
		if *poPath == "" || *invoices == "" || *out == "" {
			must(fmt.Errorf("--po --invoices --out are required"))
		}

		paths, err := collectInvoicePaths(*invoices)
		must(err)
		rows, err := pipeline.RunBatch(cfg, *poPath, paths)
		must(err)
		must(pipeline.ExportReport(rows, *out))
		fmt.Printf("run done invoices=%d output=%s\n", len(rows), *out)
		return
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	switch cmd {
	case "po:load":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		path := fs.String("file", "", "PO export file (csv or xlsx)")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*path) == "" {
			must(fmt.Errorf("--file is required"))
		}
		rows, err := potable.Load(*path)
		must(err)
		if gap := potable.New(rows).SchemaGap(); gap != nil {
			fmt.Printf("warning: %v\n", gap)
		}
		must(db.ReplacePORows(rows))
		must(db.SetMetadata("po_source", *path))
		fmt.Printf("PO data loaded rows=%d source=%s\n", len(rows), *path)
	case "invoices:add":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		path := fs.String("path", "", "invoice file or directory")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*path) == "" {
			must(fmt.Errorf("--path is required"))
		}
		paths, err := collectInvoicePaths(*path)
		must(err)
		added := 0
		for _, p := range paths {
			hash, err := fileHash(p)
			must(err)
			_, err = db.UpsertDocument(p, filepath.Base(p), hash)
			must(err)
			added++
		}
		fmt.Printf("invoices added=%d\n", added)
	case "match:run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		batch := fs.Int("batch", cfg.ProcessBatch, "max documents to process")
		file := fs.String("file", "", "reprocess a single registered invoice file")
		_ = fs.Parse(os.Args[2:])
		svc := pipeline.NewProcessingService(db, cfg)
		if strings.TrimSpace(*file) != "" {
			res, err := svc.ProcessByPath(*file)
			must(err)
			fmt.Printf("processed file=%s status=%s issue=%s\n", *file, res.Status, res.Issue)
			return
		}
		res, err := svc.ProcessPending(*batch)
		must(err)
		source := "-"
		if v, err := db.GetMetadata("po_source"); err == nil && v != nil {
			source = *v
		}
		fmt.Printf("match run done processed=%d matched=%d failed=%d po=%s\n", res.Processed, res.Matched, res.Failed, source)
	case "report:export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output report path (.xlsx or .csv), default OUTPUT_DIR/match_report.xlsx")
		_ = fs.Parse(os.Args[2:])
		rows, err := db.GetReportRows()
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no results to export"))
		}
		outputPath := pipeline.ReportOutputPath(cfg, *out)
		must(pipeline.ExportReport(rows, outputPath))
		fmt.Printf("exported %d rows to %s\n", len(rows), outputPath)
	default:
		usage()
		os.Exit(1)
	}
}

var invoiceExtensions = map[string]bool{".pdf": true, ".html": true, ".htm": true, ".txt": true}

func collectInvoicePaths(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err == nil && info.IsDir() {
		entries, err := os.ReadDir(input)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if invoiceExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
				out = append(out, filepath.Join(input, entry.Name()))
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("no invoice files in %s", input)
		}
		return out, nil
	}

	var out []string
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no invoice files given")
	}
	return out, nil
}

func fileHash(path string) (string, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:]), nil
}

func usage() {
	fmt.Println("usage: invmatch <command>")
	fmt.Println("commands:")
	fmt.Println("  po:load --file=./po_export.csv")
	fmt.Println("  invoices:add --path=./invoices")
	fmt.Println("  match:run [--batch=50] [--file=./invoices/inv.pdf]")
	fmt.Println("  report:export [--out=./out/match_report.xlsx]")
	fmt.Println("  run --po=./po_export.csv --invoices=./invoices --out=./out/match_report.csv")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
