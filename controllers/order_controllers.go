package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type OrderController struct {
	Ledger *services.OrderLedger
}

func NewOrderController(ledger *services.OrderLedger) *OrderController {
	return &OrderController{Ledger: ledger}
}

// CreateOrder -> new table, phone or packet order
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req services.NewOrder
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Ledger.CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetAllOrders supports ?table=, ?type=, ?status= and ?open=true.
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	filter := services.OrderFilter{
		Kind:   c.Query("type"),
		Status: c.Query("status"),
	}
	if table, ok := c.GetQuery("table"); ok {
		filter.TableNumber = &table
	}
	if open := c.Query("open"); open != "" {
		v, err := strconv.ParseBool(open)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		filter.OpenOnly = v
	}

	orders, err := oc.Ledger.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Ledger.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// UpsertItems inserts new lines and updates existing ones by unique_id.
func (oc *OrderController) UpsertItems(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		Items []services.ItemInput `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Ledger.UpsertItems(c.Request.Context(), id, req.Items)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Items saved", order)
}

func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req services.StatusUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Ledger.SetStatus(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

func (oc *OrderController) CloseOrder(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	if err := oc.Ledger.Close(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order closed", gin.H{"order_id": id})
}

func (oc *OrderController) ReopenOrder(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Ledger.Reopen(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order reopened", order)
}

// ResetIfEmpty closes an occupied order that never got any items.
func (oc *OrderController) ResetIfEmpty(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	closed, err := oc.Ledger.ResetIfEmpty(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order checked", gin.H{"closed": closed})
}

func (oc *OrderController) ConfirmOnline(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Ledger.ConfirmOnline(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order confirmed", order)
}

// PurgeSettled is the admin-only maintenance reset for paid and closed orders.
func (oc *OrderController) PurgeSettled(c *gin.Context) {
	res, err := oc.Ledger.PurgeSettled(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.WithField("orders", res.Orders).Info("Settled orders purged")
	utils.RespondJSON(c, http.StatusOK, "Settled orders purged", res)
}
