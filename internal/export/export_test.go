package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"tracker/internal/core"
)

func rows() []core.LogEntry {
	return []core.LogEntry{
		{
			ID: 7, UserEmail: "a@example.com", LogDate: core.NewDate(2025, 1, 3),
			Activity: "dinner, late", Amount: decimal.RequireFromString("1250.5"),
			Entity: "Swiggy", PaymentMode: "UPI", Category: core.CategoryFood, Remark: `said "thanks"`,
		},
		{
			ID: 9, UserEmail: "a@example.com", LogDate: core.NewDate(2025, 2, 1),
			Amount: decimal.NewFromInt(80), Category: core.CategoryOthers,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows()); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	raw := buf.Bytes()
	if !bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}) {
		t.Fatal("missing UTF-8 BOM")
	}

	records, err := csv.NewReader(bytes.NewReader(raw[3:])).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if strings.Join(records[0], "|") != strings.Join(Header, "|") {
		t.Fatalf("header = %v", records[0])
	}
	first := records[1]
	if first[1] != "2025-01-03" || first[2] != "dinner, late" || first[3] != "1250.50" || first[6] != "Food" || first[7] != `said "thanks"` {
		t.Fatalf("row = %v", first)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, rows()); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 1 || got[0] != SheetName {
		t.Fatalf("sheets = %v", got)
	}
	got, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(got) != 3 || got[0][0] != "ID" {
		t.Fatalf("rows = %v", got)
	}
	if got[1][1] != "2025-01-03" || got[1][3] != "1250.5" {
		t.Fatalf("first row = %v", got[1])
	}
	typ, err := f.GetCellType(SheetName, "D2")
	if err != nil || typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString {
		t.Fatalf("amount cell should be numeric, type = %v err = %v", typ, err)
	}
}

func TestWriteUnsupportedFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, "pdf", nil); err == nil {
		t.Fatal("expected error")
	}
	if ContentType("pdf") != "" || ContentType(FormatCSV) == "" {
		t.Fatal("ContentType mismatch")
	}
}
