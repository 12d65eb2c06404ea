package printer

import (
	"fmt"
	"strings"
	"time"

	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/MazaSebastian/DamafAPP/utils"
)

// Options carries the store details printed around every ticket.
type Options struct {
	StoreName string
	Footer    string
	Currency  string
	Location  *time.Location
}

func (o Options) money(t *models.Ticket, i int) string {
	if i < 0 {
		return utils.FormatMoney(o.Currency, t.Total)
	}
	return utils.FormatMoney(o.Currency, t.TicketItems[i].Subtotal)
}

func (o Options) orderedAt(t *models.Ticket) string {
	loc := o.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.OrderedAt.In(loc).Format("02/01/2006 15:04")
}

func fulfilment(t *models.Ticket) string {
	if t.Channel == models.ChannelDelivery {
		if t.DeliveryAddress != "" {
			return "DELIVERY - " + t.DeliveryAddress
		}
		return "DELIVERY"
	}
	return "RETIRO EN LOCAL"
}

func customer(t *models.Ticket) string {
	if t.CustomerName == "" {
		return "Invitado"
	}
	return t.CustomerName
}

func paymentLine(t *models.Ticket) string {
	method := t.PaymentMethod
	if method == "" {
		method = "-"
	}
	if t.IsPaid {
		return fmt.Sprintf("Pago: %s (PAGADO)", method)
	}
	return fmt.Sprintf("Pago: %s (PENDIENTE)", method)
}

// extras lists the indented companion lines of an item.
func extras(it models.TicketItem) []string {
	var out []string
	for _, m := range it.Modifiers {
		if m.Quantity > 1 {
			out = append(out, fmt.Sprintf("  + %dx %s", m.Quantity, m.Name))
		} else {
			out = append(out, "  + "+m.Name)
		}
	}
	if it.SideName != "" {
		out = append(out, "  + "+it.SideName)
	}
	if it.DrinkName != "" {
		out = append(out, "  + "+it.DrinkName)
	}
	if it.Notes != "" {
		out = append(out, "  * "+it.Notes)
	}
	return out
}

// columns pads left and right into one line of width.
func columns(left, right string, width int) string {
	gap := width - len([]rune(left)) - len([]rune(right))
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// EscPos renders the ticket as a printer byte stream.
func EscPos(t *models.Ticket, o Options) []byte {
	e := NewEncoder().Initialize()

	e.Align(AlignCenter).Bold(true).Size(2, 2).Text(o.StoreName).Newline(1)
	e.Size(1, 1).Bold(false).Text(o.orderedAt(t)).Newline(2)
	e.Size(2, 2).Text(fmt.Sprintf("ORDEN #%d", t.OrderID)).Newline(1)
	e.Size(1, 1).Text(t.TicketNumber).Newline(1)
	if t.SlotStart != "" {
		e.Invert(true).Text(" " + t.SlotStart + " ").Invert(false).Newline(1)
	}
	e.Newline(1)

	e.Align(AlignLeft)
	e.Text("Cliente: " + customer(t)).Newline(1)
	e.Text(fulfilment(t)).Newline(1)
	if t.Notes != "" {
		e.Text("Nota: " + t.Notes).Newline(1)
	}
	e.Line("-")

	for i, it := range t.TicketItems {
		e.Bold(true).Text(columns(fmt.Sprintf("%dx %s", it.Quantity, it.Name), o.money(t, i), LineWidth)).Newline(1)
		e.Bold(false)
		for _, l := range extras(it) {
			e.Text(l).Newline(1)
		}
	}
	e.Line("-")

	e.Text(paymentLine(t)).Newline(1)
	e.Align(AlignRight).Size(2, 2).Bold(true).Text("TOTAL: " + o.money(t, -1)).Newline(2)
	e.Size(1, 1).Bold(false).Align(AlignCenter)
	if o.Footer != "" {
		e.Text(o.Footer).Newline(1)
	}
	e.Newline(3).Cut()
	return e.Bytes()
}

// Text renders the ticket as a plain receipt for screens and logs.
func Text(t *models.Ticket, o Options) string {
	var b strings.Builder
	rule := strings.Repeat("-", LineWidth)
	center := func(s string) {
		pad := (LineWidth - len([]rune(s))) / 2
		if pad < 0 {
			pad = 0
		}
		b.WriteString(strings.Repeat(" ", pad) + s + "\n")
	}

	center(o.StoreName)
	center(o.orderedAt(t))
	center(fmt.Sprintf("ORDEN #%d", t.OrderID))
	center(t.TicketNumber)
	if t.SlotStart != "" {
		center("Horario " + t.SlotStart)
	}
	b.WriteString("\n")
	b.WriteString("Cliente: " + customer(t) + "\n")
	b.WriteString(fulfilment(t) + "\n")
	if t.Notes != "" {
		b.WriteString("Nota: " + t.Notes + "\n")
	}
	b.WriteString(rule + "\n")

	for i, it := range t.TicketItems {
		b.WriteString(columns(fmt.Sprintf("%dx %s", it.Quantity, it.Name), o.money(t, i), LineWidth) + "\n")
		for _, l := range extras(it) {
			b.WriteString(l + "\n")
		}
	}
	b.WriteString(rule + "\n")
	b.WriteString(paymentLine(t) + "\n")
	b.WriteString(columns("TOTAL", o.money(t, -1), LineWidth) + "\n")
	if o.Footer != "" {
		b.WriteString("\n")
		center(o.Footer)
	}
	return b.String()
}
