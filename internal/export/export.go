// Package export writes a user's rows as CSV or XLSX downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"tracker/internal/core"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	// SheetName is the worksheet holding the rows in an XLSX export.
	SheetName = "Logs"
)

// Header is the column order of every export.
var Header = []string{"ID", "Date", "Activity", "Amount", "Entity", "Payment Mode", "Category", "Remark"}

// ContentType returns the MIME type for format, or "" when unsupported.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return ""
	}
}

// Write dispatches on format.
func Write(w io.Writer, format string, entries []core.LogEntry) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, entries)
	case FormatXLSX:
		return WriteXLSX(w, entries)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteCSV writes a UTF-8 BOM, the header row and one row per entry.
func WriteCSV(w io.Writer, entries []core.LogEntry) error {
	// UTF-8 BOM so spreadsheet apps detect the encoding of the ₹ sign
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		if err := cw.Write([]string{
			strconv.FormatInt(e.ID, 10),
			e.LogDate.String(),
			e.Activity,
			e.Amount.StringFixed(core.AmountScale),
			e.Entity,
			e.PaymentMode,
			e.Category.String(),
			e.Remark,
		}); err != nil {
			return fmt.Errorf("write csv row %d: %w", e.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with a single Logs sheet. Amounts are numeric
// cells; dates are YYYY-MM-DD text.
func WriteXLSX(w io.Writer, entries []core.LogEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		row := []any{
			e.ID,
			e.LogDate.String(),
			e.Activity,
			e.Amount.InexactFloat64(),
			e.Entity,
			e.PaymentMode,
			e.Category.String(),
			e.Remark,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", e.ID, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
