package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/MazaSebastian/DamafAPP/printer"
	"github.com/MazaSebastian/DamafAPP/services"
	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/gin-gonic/gin"
)

type TicketController struct {
	Tickets *services.TicketService
	Options printer.Options
}

func NewTicketController(tickets *services.TicketService, opts printer.Options) *TicketController {
	return &TicketController{Tickets: tickets, Options: opts}
}

// RequestTicket -> freezes the order into a ticket (idempotent)
func (tc *TicketController) RequestTicket(c *gin.Context) {
	id, err := utils.ParseIDParam(c, "order_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ticket, err := tc.Tickets.RequestTicket(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	tc.render(c, ticket, http.StatusCreated)
}

// GetTicket -> ?format=json|text|escpos|pdf
func (tc *TicketController) GetTicket(c *gin.Context) {
	id, err := utils.ParseIDParam(c, "order_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ticket, err := tc.Tickets.Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	tc.render(c, ticket, http.StatusOK)
}

func (tc *TicketController) render(c *gin.Context, ticket *models.Ticket, status int) {
	name := strings.ReplaceAll(ticket.TicketNumber, "/", "-")

	switch format := c.DefaultQuery("format", "json"); format {
	case "json":
		utils.RespondJSON(c, status, "Ticket", ticket)
	case "text":
		c.String(status, printer.Text(ticket, tc.Options))
	case "escpos":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.bin", name))
		c.Data(status, "application/octet-stream", printer.EscPos(ticket, tc.Options))
	case "pdf":
		out, err := printer.PDF(ticket, tc.Options)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%s.pdf", name))
		c.Data(status, "application/pdf", out)
	default:
		utils.RespondBadRequest(c, fmt.Errorf("unknown format %q", format))
	}
}
