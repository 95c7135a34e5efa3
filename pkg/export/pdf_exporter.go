package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a basic tabular PDF.
type PDFExporter struct {
	fontPath string
}

// NewPDFExporter constructs a PDF exporter. Core PDF fonts only cover Latin-1, so a
// UTF-8 TrueType font path is needed to print Arabic labels; without it non-Latin runes
// degrade to placeholders.
func NewPDFExporter(fontPath string) *PDFExporter {
	return &PDFExporter{fontPath: fontPath}
}

// Render creates a PDF document with the dataset title and table body.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)

	family := "Arial"
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	if e.fontPath != "" {
		family = "CaseFont"
		pdf.AddUTF8Font(family, "", e.fontPath)
		translate = func(s string) string { return s }
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("load pdf font: %w", err)
	}
	pdf.AddPage()

	if data.Title != "" {
		pdf.SetFont(family, "", 14)
		pdf.CellFormat(0, 10, translate(strings.ToUpper(data.Title)), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont(family, "", 10)
	colWidth := 277.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, translate(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 9)
	for _, record := range data.records() {
		for _, value := range record {
			pdf.CellFormat(colWidth, 7, translate(value), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
