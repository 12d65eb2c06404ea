package controllers

import (
	"net/http"
	"strings"

	"github.com/MazaSebastian/DamafAPP/middlewares"
	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/MazaSebastian/DamafAPP/services"
	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/gin-gonic/gin"
)

type OrderController struct {
	Orders    *services.OrderService
	Lifecycle *services.LifecycleManager
	Kitchen   *services.KitchenFeed
}

func NewOrderController(orders *services.OrderService, lifecycle *services.LifecycleManager, kitchen *services.KitchenFeed) *OrderController {
	return &OrderController{Orders: orders, Lifecycle: lifecycle, Kitchen: kitchen}
}

// CreateOrder -> admits the order into its slot and persists it as pending
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var body services.CreateOrderInput
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	order, err := oc.Orders.CreateOrder(c.Request.Context(), body)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, err := utils.ParseIDParam(c, "order_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	order, err := oc.Orders.Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// GetAllOrders -> ?status=&date=YYYY-MM-DD
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	var filter services.OrderFilter
	if s := c.Query("status"); s != "" {
		st, err := models.ParseOrderStatus(s)
		if err != nil {
			utils.RespondBadRequest(c, err)
			return
		}
		filter.Status = st
	}
	filter.Date = c.Query("date")

	orders, err := oc.Orders.List(c.Request.Context(), filter)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// TransitionOrder -> compare-and-swap status change
func (oc *OrderController) TransitionOrder(c *gin.Context) {
	id, err := utils.ParseIDParam(c, "order_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var body struct {
		ExpectedStatus models.OrderStatus `json:"expected_status" binding:"required"`
		TargetStatus   models.OrderStatus `json:"target_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}

	order, err := oc.Lifecycle.Transition(c.Request.Context(), id, body.ExpectedStatus, body.TargetStatus, middlewares.Actor(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

func (oc *OrderController) AddItem(c *gin.Context) {
	id, err := utils.ParseIDParam(c, "order_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var body services.ItemInput
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}
	order, err := oc.Orders.AddItem(c.Request.Context(), id, body)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item added", order)
}

func (oc *OrderController) RemoveItem(c *gin.Context) {
	id, err := utils.ParseIDParam(c, "order_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	itemID, err := utils.ParseIDParam(c, "item_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	order, err := oc.Orders.RemoveItem(c.Request.Context(), id, itemID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item removed", order)
}

func (oc *OrderController) MarkPaid(c *gin.Context) {
	id, err := utils.ParseIDParam(c, "order_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	order, err := oc.Orders.MarkPaid(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order marked as paid", order)
}

// PurgeOrder -> administrative delete outside the lifecycle
func (oc *OrderController) PurgeOrder(c *gin.Context) {
	id, err := utils.ParseIDParam(c, "order_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := oc.Orders.Purge(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order purged", nil)
}

// KitchenFeed -> ?status=cooking,packaging ; oldest first
func (oc *OrderController) KitchenFeed(c *gin.Context) {
	var statuses []models.OrderStatus
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st, err := models.ParseOrderStatus(strings.TrimSpace(s))
			if err != nil {
				utils.RespondBadRequest(c, err)
				return
			}
			statuses = append(statuses, st)
		}
	}
	orders, err := oc.Kitchen.ListActive(c.Request.Context(), statuses)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Kitchen feed", orders)
}
