// Package report renders a scored survey as a downloadable PDF document.
package report

import (
	_ "embed"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/pavelanni/traitsurvey/internal/model"
)

// Report is everything printed in the PDF.
type Report struct {
	Title       string
	Respondent  string
	GeneratedAt time.Time
	Scores      []model.CategoryScore
	Summary     *model.Summary
}

// DejaVu covers Latin and Cyrillic, so respondent names and catalog texts
// print as typed.
const fontFamily = "DejaVu"

var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	fontRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	fontBold []byte
	//go:embed fonts/DejaVuSansCondensed-Oblique.ttf
	fontItalic []byte
)

const (
	pageMargin = 15.0
	lineHeight = 5.5
	barHeight  = 4.0
)

type rgb struct{ r, g, b int }

var bandColors = map[model.Band]rgb{
	model.BandLow:     {230, 126, 34},
	model.BandNeutral: {52, 152, 219},
	model.BandHigh:    {39, 174, 96},
}

var bandLabels = map[model.Band]string{
	model.BandLow:     "Low",
	model.BandNeutral: "Neutral",
	model.BandHigh:    "High",
}

const disclaimer = "This questionnaire is an observation aid for educators. " +
	"It is not a validated psychological instrument and must not be used to " +
	"diagnose or label a child."

// WritePDF renders r as an A4 document into w.
func WritePDF(w io.Writer, r Report) error {
	pdf, err := build(r)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func build(r Report) (*fpdf.Fpdf, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8FontFromBytes(fontFamily, "", fontRegular)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", fontBold)
	pdf.AddUTF8FontFromBytes(fontFamily, "I", fontItalic)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)

	title := r.Title
	if title == "" {
		title = "Assessment results"
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("traitsurvey", true)
	if !r.GeneratedAt.IsZero() {
		pdf.SetCreationDate(r.GeneratedAt)
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 6, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*pageMargin

	pdf.SetFont(fontFamily, "B", 18)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	pdf.SetTextColor(90, 90, 90)
	if r.Respondent != "" {
		pdf.CellFormat(0, lineHeight, "Child: "+r.Respondent, "", 1, "L", false, 0, "")
	}
	if !r.GeneratedAt.IsZero() {
		pdf.CellFormat(0, lineHeight, "Generated: "+r.GeneratedAt.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	if r.Summary != nil && strings.TrimSpace(r.Summary.Text) != "" {
		writeSummary(pdf, *r.Summary)
	}

	for _, cs := range r.Scores {
		writeCategory(pdf, cs, contentW)
	}

	pdf.Ln(2)
	pdf.SetFont(fontFamily, "I", 8)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(0, 4, disclaimer, "", "L", false)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return pdf, nil
}

func writeSummary(pdf *fpdf.Fpdf, s model.Summary) {
	pdf.SetFont(fontFamily, "B", 12)
	pdf.CellFormat(0, 7, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	pdf.MultiCell(0, lineHeight, strings.TrimSpace(s.Text), "", "L", false)
	writeList(pdf, "Strengths", s.Strengths)
	writeList(pdf, "Ideas for support", s.Support)
	pdf.Ln(4)
}

func writeList(pdf *fpdf.Fpdf, heading string, lines []string) {
	if len(lines) == 0 {
		return
	}
	pdf.Ln(1)
	pdf.SetFont(fontFamily, "B", 10)
	pdf.CellFormat(0, lineHeight, heading, "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	for _, l := range lines {
		pdf.MultiCell(0, lineHeight, "• "+l, "", "L", false)
	}
}

func writeCategory(pdf *fpdf.Fpdf, cs model.CategoryScore, width float64) {
	// Keep the heading and its bar on one page.
	_, pageH := pdf.GetPageSize()
	if pdf.GetY()+40 > pageH-pageMargin {
		pdf.AddPage()
	}

	color := bandColors[cs.Band]
	pdf.SetFont(fontFamily, "B", 13)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(width*0.7, 8, cs.Name, "", 0, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(width*0.3, 8, fmt.Sprintf("%d / %d (%d%%)", cs.Score, cs.MaxScore, cs.Percent()), "", 1, "R", false, 0, "")

	drawBar(pdf, width, barHeight+1, cs.Percent(), color)
	pdf.Ln(2)

	pdf.SetFont(fontFamily, "B", 10)
	pdf.SetTextColor(color.r, color.g, color.b)
	pdf.CellFormat(0, lineHeight, bandLabels[cs.Band], "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(fontFamily, "", 10)
	if cs.Interpretation != "" {
		pdf.MultiCell(0, lineHeight, cs.Interpretation, "", "L", false)
	}
	if cs.Description != "" {
		pdf.SetTextColor(80, 80, 80)
		pdf.MultiCell(0, lineHeight, cs.Description, "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}

	if len(cs.SubScores) > 0 {
		pdf.Ln(1)
		labelW := width * 0.45
		valueW := width * 0.15
		for _, sub := range cs.SubScores {
			pdf.SetFont(fontFamily, "", 9)
			pdf.CellFormat(labelW, lineHeight, sub.Name, "", 0, "L", false, 0, "")
			pdf.CellFormat(valueW, lineHeight, fmt.Sprintf("%d / %d", sub.Score, sub.MaxScore), "", 0, "R", false, 0, "")
			x, y := pdf.GetXY()
			pdf.SetXY(x+3, y+(lineHeight-barHeight)/2)
			drawBar(pdf, width-labelW-valueW-3, barHeight, sub.Percent(), color)
			pdf.SetXY(pageMargin, y+lineHeight)
		}
	}
	pdf.Ln(5)
}

// drawBar draws a track with a filled share of pct at the current position
// and leaves the cursor below the bar.
func drawBar(pdf *fpdf.Fpdf, width, height float64, pct int, color rgb) {
	x, y := pdf.GetXY()
	pdf.SetFillColor(230, 230, 230)
	pdf.Rect(x, y, width, height, "F")
	if pct > 100 {
		pct = 100
	}
	if pct > 0 {
		pdf.SetFillColor(color.r, color.g, color.b)
		pdf.Rect(x, y, width*float64(pct)/100, height, "F")
	}
	pdf.SetXY(x, y+height)
}
