package export

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	defaultSheet = "Sheet1"
	minColWidth  = 12.0
	maxColWidth  = 60.0
)

// XLSXExporter renders datasets into a single-sheet Excel workbook.
type XLSXExporter struct {
	rightToLeft bool
}

// NewXLSXExporter constructs an XLSX exporter. When rightToLeft is set the sheet opens
// mirrored, matching Arabic column labels.
func NewXLSXExporter(rightToLeft bool) *XLSXExporter {
	return &XLSXExporter{rightToLeft: rightToLeft}
}

// Render writes headers on the first row followed by one row per record. The dataset
// title names the sheet.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	sheet := defaultSheet
	if data.Title != "" {
		if err := f.SetSheetName(defaultSheet, data.Title); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
		sheet = data.Title
	}

	if err := f.SetSheetRow(sheet, "A1", &data.Headers); err != nil {
		return nil, fmt.Errorf("write xlsx headers: %w", err)
	}
	for i, record := range data.records() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := make([]interface{}, len(record))
		for j, v := range record {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write xlsx row: %w", err)
		}
	}

	for i, width := range columnWidths(data) {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	if e.rightToLeft {
		rtl := true
		if err := f.SetSheetView(sheet, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
			return nil, fmt.Errorf("set sheet view: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths sizes each column to its longest value in runes, clamped.
func columnWidths(data Dataset) []float64 {
	widths := make([]float64, len(data.Headers))
	for i, header := range data.Headers {
		widths[i] = float64(utf8.RuneCountInString(header))
	}
	for _, record := range data.records() {
		for i, v := range record {
			if i < len(widths) {
				widths[i] = math.Max(widths[i], float64(utf8.RuneCountInString(v)))
			}
		}
	}
	for i, w := range widths {
		widths[i] = math.Min(math.Max(w+2, minColWidth), maxColWidth)
	}
	return widths
}
