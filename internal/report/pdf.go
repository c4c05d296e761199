// Package report renders downloadable documents from job data: a PDF of
// pending payments and an XLSX workbook of a filtered job view.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"lihkab/internal/core"
)

// File names offered to the browser.
const (
	PendingPDFName = "bekleyen_odemeler.pdf"
	JobsXLSXName   = "odeme_raporu.xlsx"
)

const (
	PendingPDFTitle = "Bekleyen Ödemeler Raporu"

	pageMargin = 30.0 // pt
	rowHeight  = 18.0
)

type pdfColumn struct {
	title string
	width float64
	align string
}

var pendingColumns = []pdfColumn{
	{"Tarih", 70, "L"},
	{"Müşteri", 160, "L"},
	{"Ada / Parsel", 120, "L"},
	{"Ücret (TL)", 100, "R"},
	{"Gecikme (Gün)", 85, "R"},
}

// The core fonts are cp1252; these letters have no glyph there.
var turkishFold = strings.NewReplacer(
	"ğ", "g", "Ğ", "G",
	"ş", "s", "Ş", "S",
	"ı", "i", "İ", "I",
)

// PendingPDF writes an A4 report of jobs awaiting payment to w.
func PendingPDF(w io.Writer, pending []core.PendingJob, now time.Time) error {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetCreationDate(now)
	pdf.SetTitle(PendingPDFTitle, true)
	pdf.SetCreator("lihkab", false)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(turkishFold.Replace(s)) }

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 26, text(PendingPDFTitle), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 16, text("Tarih: "+now.Format("02.01.2006")), "", 1, "L", false, 0, "")
	pdf.Ln(10)

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(211, 211, 211)
		pdf.SetDrawColor(128, 128, 128)
		for _, c := range pendingColumns {
			pdf.CellFormat(c.width, rowHeight+4, text(c.title), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 10)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	total := decimal.Zero
	for _, p := range pending {
		if pdf.GetY()+rowHeight > pageHeight-pageMargin {
			pdf.AddPage()
			header()
		}
		for i, cell := range pendingRow(p) {
			c := pendingColumns[i]
			pdf.CellFormat(c.width, rowHeight, text(fit(pdf, cell, c.width)), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
		total = total.Add(p.Fee)
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 16, text(fmt.Sprintf("Toplam: %s (%d iş)", core.FormatTL(total), len(pending))), "", 1, "R", false, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pending pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pending pdf: %w", err)
	}
	return nil
}

func pendingRow(p core.PendingJob) []string {
	delay := ""
	if p.HasDelay {
		delay = strconv.Itoa(p.DelayDays)
	}
	return []string{
		p.Date.Display(),
		p.Customer,
		p.PlotRef,
		core.FormatTL(p.Fee),
		delay,
	}
}

// fit shortens s until it fits a cell of the given width.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	const pad = 6
	if pdf.GetStringWidth(s) <= width-pad {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width-pad {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
