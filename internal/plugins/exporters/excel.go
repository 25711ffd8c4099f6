package exporters

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// SheetName is the worksheet the Excel exporter writes.
const SheetName = "Asset Inventory"

const maxColumnWidth = 60

// Excel writes records to an .xlsx workbook with an optional banner row,
// a bold column header, clickable links and fitted column widths.
type Excel struct{}

func (Excel) Name() string          { return "Export to Excel" }
func (Excel) IconName() string      { return "excel" }
func (Excel) FileExtension() string { return ".xlsx" }
func (Excel) FileFilter() string    { return "Excel Workbook (*.xlsx)" }

func (Excel) Export(_ context.Context, req plugin.ExportRequest) plugin.ExportResult {
	req.Emit("  -> Building Excel workbook...")

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, req); err != nil {
		return failure(req, "Excel export failed: %v", err)
	}
	if err := f.SaveAs(req.OutputPath); err != nil {
		return failure(req, "Excel export failed: %v", err)
	}

	req.Emit("  -> Excel formatting complete.")
	return plugin.FileWritten{Path: req.OutputPath}
}

func writeSheet(f *excelize.File, req plugin.ExportRequest) error {
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(plugin.Columns))
	if err != nil {
		return err
	}
	styles, err := newSheetStyles(f)
	if err != nil {
		return err
	}

	row := 1
	if req.Header != "" {
		req.Emit("  -> Adding header text...")
		if err := f.MergeCell(SheetName, "A1", lastCol+"1"); err != nil {
			return err
		}
		if err := f.SetCellStr(SheetName, "A1", sanitize(req.Header)); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", styles.banner); err != nil {
			return err
		}
		row++
	}

	widths := make([]int, len(plugin.Columns))
	columns := append([]string(nil), plugin.Columns...)
	if err := setRow(f, row, columns, widths); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, cell(1, row), cell(len(columns), row), styles.header); err != nil {
		return err
	}

	for _, r := range req.Records {
		row++
		values := r.Values()
		for i := range values {
			values[i] = sanitize(values[i])
		}
		if err := setRow(f, row, values, widths); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, cell(1, row), cell(len(values), row), styles.body); err != nil {
			return err
		}
		for i, v := range values {
			if !strings.Contains(v, "http") {
				continue
			}
			if err := f.SetCellHyperLink(SheetName, cell(i+1, row), v, "External"); err != nil {
				return err
			}
			if err := f.SetCellStyle(SheetName, cell(i+1, row), cell(i+1, row), styles.link); err != nil {
				return err
			}
		}
	}

	for i, w := range widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, name, name, ColumnWidth(w)); err != nil {
			return err
		}
	}
	return nil
}

// ColumnWidth converts the longest cell text in a column to a width,
// capped so long links do not push the sheet off screen.
func ColumnWidth(maxLen int) float64 {
	return min(float64(maxLen+2)*1.2, maxColumnWidth)
}

func setRow(f *excelize.File, row int, values []string, widths []int) error {
	if err := f.SetSheetRow(SheetName, cell(1, row), &values); err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	for i, v := range values {
		widths[i] = max(widths[i], utf8.RuneCountInString(v))
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

type sheetStyles struct {
	banner, header, body, link int
}

func newSheetStyles(f *excelize.File) (sheetStyles, error) {
	left := &excelize.Alignment{Horizontal: "left", Vertical: "center"}

	var s sheetStyles
	var err error
	if s.banner, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Microsoft YaHei", Size: 14, Bold: true, Color: "808080"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}); err != nil {
		return s, err
	}
	if s.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, Alignment: left}); err != nil {
		return s, err
	}
	if s.body, err = f.NewStyle(&excelize.Style{Alignment: left}); err != nil {
		return s, err
	}
	if s.link, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: "0000FF", Underline: "single"},
		Alignment: left,
	}); err != nil {
		return s, err
	}
	return s, nil
}
