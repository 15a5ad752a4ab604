package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	pdf "github.com/ledongthuc/pdf"

	"invmatch/internal/util"
)

// DecodeDocument yields the raw text of one invoice document, chosen by file
// extension: PDF pages are concatenated with newlines, HTML is flattened to
// block-level lines, anything else is read as plain text. Decoding has no
// decision logic; what the text means is the extractor's job.
func DecodeDocument(path string) (string, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return decodePDF(blob)
	case ".html", ".htm":
		return decodeHTML(blob)
	default:
		return string(blob), nil
	}
}

func decodePDF(blob []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return "", fmt.Errorf("pdf decode: %w", err)
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}

// decodeHTML flattens markup to one text line per block element so the
// extractor's line-anchored patterns see the same shape as PDF text. Table
// rows become space-joined cell values.
func decodeHTML(blob []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(blob))
	if err != nil {
		return "", fmt.Errorf("html decode: %w", err)
	}

	var lines []string
	doc.Find("p, div, li, h1, h2, h3, tr").Each(func(_ int, sel *goquery.Selection) {
		if sel.Children().Filter("p, div, li, table, tr").Length() > 0 {
			return
		}
		var line string
		if sel.Is("tr") {
			var cells []string
			sel.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, util.NormalizeSpaces(cell.Text()))
			})
			line = strings.Join(cells, " ")
		} else {
			line = util.NormalizeSpaces(sel.Text())
		}
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	})

	if len(lines) == 0 {
		return util.NormalizeSpaces(doc.Text()), nil
	}
	return strings.Join(lines, "\n"), nil
}
