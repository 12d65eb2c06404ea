package controllers

import (
	"net/http"

	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/MazaSebastian/DamafAPP/services"
	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/gin-gonic/gin"
)

type SlotController struct {
	Catalog   *services.SlotCatalog
	Admission *services.AdmissionController
}

func NewSlotController(catalog *services.SlotCatalog, admission *services.AdmissionController) *SlotController {
	return &SlotController{Catalog: catalog, Admission: admission}
}

// ListAvailable -> today's slots for a channel with remaining capacity
func (sc *SlotController) ListAvailable(c *gin.Context) {
	channel, err := models.ParseChannel(c.DefaultQuery("channel", string(models.ChannelDelivery)))
	if err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	slots, err := sc.Admission.Availability(c.Request.Context(), channel)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Available slots", slots)
}

func (sc *SlotController) ListTemplates(c *gin.Context) {
	slots, err := sc.Catalog.ListAll(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of slot templates", slots)
}

func (sc *SlotController) CreateTemplate(c *gin.Context) {
	var body services.SlotInput
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	slot, err := sc.Catalog.Upsert(c.Request.Context(), nil, body)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Slot template created", slot)
}

func (sc *SlotController) UpdateTemplate(c *gin.Context) {
	id, err := utils.ParseIDParam(c, "slot_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var body services.SlotInput
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	slot, err := sc.Catalog.Upsert(c.Request.Context(), &id, body)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Slot template updated", slot)
}

func (sc *SlotController) DeleteTemplate(c *gin.Context) {
	id, err := utils.ParseIDParam(c, "slot_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := sc.Catalog.Delete(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Slot template deleted", nil)
}
