package printer

import (
	"bytes"
	"fmt"

	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/go-pdf/fpdf"
)

const (
	rollWidth = 80.0 // mm
	margin    = 4.0
	rowHeight = 5.0
)

// PDF renders the ticket on an 80mm roll sized to its content.
func PDF(t *models.Ticket, o Options) ([]byte, error) {
	rows := 14
	for _, it := range t.TicketItems {
		rows += 1 + len(extras(it))
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: rollWidth, Ht: float64(rows)*rowHeight + 2*margin},
	})
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width := rollWidth - 2*margin

	line := func(style string, size float64, align, text string) {
		pdf.SetFont("Helvetica", style, size)
		pdf.CellFormat(width, rowHeight, tr(text), "", 1, align, false, 0, "")
	}
	row := func(style, left, right string) {
		pdf.SetFont("Helvetica", style, 9)
		pdf.CellFormat(width*0.7, rowHeight, tr(left), "", 0, "L", false, 0, "")
		pdf.CellFormat(width*0.3, rowHeight, tr(right), "", 1, "R", false, 0, "")
	}
	rule := func() {
		y := pdf.GetY() + rowHeight/2
		pdf.Line(margin, y, rollWidth-margin, y)
		pdf.Ln(rowHeight)
	}

	line("B", 14, "C", o.StoreName)
	line("", 8, "C", o.orderedAt(t))
	line("B", 12, "C", fmt.Sprintf("ORDEN #%d", t.OrderID))
	line("", 8, "C", t.TicketNumber)
	if t.SlotStart != "" {
		line("B", 9, "C", "Horario "+t.SlotStart)
	}
	line("", 9, "L", "Cliente: "+customer(t))
	line("", 9, "L", fulfilment(t))
	if t.Notes != "" {
		line("I", 8, "L", "Nota: "+t.Notes)
	}
	rule()

	for i, it := range t.TicketItems {
		row("B", fmt.Sprintf("%dx %s", it.Quantity, it.Name), o.money(t, i))
		for _, l := range extras(it) {
			line("", 8, "L", l)
		}
	}
	rule()

	line("", 9, "L", paymentLine(t))
	row("B", "TOTAL", o.money(t, -1))
	if o.Footer != "" {
		line("", 7, "C", o.Footer)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
