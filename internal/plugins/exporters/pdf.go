package exporters

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// preferredFonts are TrueType files with CJK coverage shipped with Windows,
// in order of preference.
var preferredFonts = []string{"msyh.ttf", "simhei.ttf", "deng.ttf", "arialuni.ttf", "arial.ttf"}

// Layout in points on a Letter page.
const (
	pageTop        = 40.0
	pageBreakY     = 60.0
	lineBreakY     = 40.0
	headingX       = 50.0
	fieldX         = 70.0
	headerGap      = 40.0
	categoryGap    = 20.0
	headingAdvance = 25.0
	lineAdvance    = 20.0
)

// PDF writes records to a PDF document grouped by category.
type PDF struct {
	// FontDir is searched for preferredFonts. Empty means the Windows fonts
	// directory. Without a match the core Helvetica font is used.
	FontDir string
}

func (PDF) Name() string          { return "Export to PDF" }
func (PDF) IconName() string      { return "pdf" }
func (PDF) FileExtension() string { return ".pdf" }
func (PDF) FileFilter() string    { return "PDF file (*.pdf)" }

func (p PDF) Export(_ context.Context, req plugin.ExportRequest) plugin.ExportResult {
	if err := renderPDF(req, p.FontDir); err != nil {
		return failure(req, "PDF export failed: %v", err)
	}
	req.Emit("  -> PDF saved to " + req.OutputPath)
	return plugin.FileWritten{Path: req.OutputPath}
}

// findFont returns the first preferred font present in dir.
func findFont(dir string) string {
	if dir == "" {
		root := os.Getenv("SystemRoot")
		if root == "" {
			root = `C:\Windows`
		}
		dir = filepath.Join(root, "Fonts")
	}
	for _, name := range preferredFonts {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// renderPDF lays records out one field per line under a "--- Category ---"
// heading, repeating the heading at the top of a continued page.
func renderPDF(req plugin.ExportRequest, fontDir string) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(req.Header, true)
	pdf.SetCreator("assetkit", true)

	family := "Helvetica"
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	if font := findFont(fontDir); font != "" {
		req.Emit("  -> Using font " + filepath.Base(font))
		pdf.AddUTF8Font("report", "", font)
		family = "report"
		translate = func(s string) string { return s }
	} else {
		req.Emit("  -> No system font found, using Helvetica")
	}
	text := func(size, x, y float64, s string) {
		pdf.SetFont(family, "", size)
		pdf.Text(x, y, translate(sanitize(s)))
	}

	pdf.AddPage()
	width, height := pdf.GetPageSize()
	y := pageTop
	newPage := func() {
		pdf.AddPage()
		y = pageTop
	}

	if req.Header != "" {
		pdf.SetFont(family, "", 16)
		header := translate(sanitize(req.Header))
		pdf.Text((width-pdf.GetStringWidth(header))/2, y, header)
		y += headerGap
	}

	last := ""
	first := true
	for _, r := range req.Records {
		if y > height-pageBreakY {
			newPage()
			first = true
		}
		values := r.Values()
		category := values[0]
		if first || category != last {
			y += categoryGap
			text(14, headingX, y, "--- "+category+" ---")
			y += headingAdvance
			last, first = category, false
		}
		for i := 1; i < len(values); i++ {
			if y > height-lineBreakY {
				newPage()
				text(14, headingX, y, "--- "+category+" ---")
				y += headingAdvance
			}
			text(10, fieldX, y, plugin.Columns[i]+": "+values[i])
			y += lineAdvance
		}
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.OutputFileAndClose(req.OutputPath)
}
