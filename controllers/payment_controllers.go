package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type PaymentController struct {
	Payments *services.PaymentReconciler
}

func NewPaymentController(payments *services.PaymentReconciler) *PaymentController {
	return &PaymentController{Payments: payments}
}

// PayOrder settles an order in full with one method.
func (pc *PaymentController) PayOrder(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		PaymentMethod string          `json:"payment_method" binding:"required"`
		Total         decimal.Decimal `json:"total"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := pc.Payments.PayFull(c.Request.Context(), id, req.PaymentMethod, req.Total)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.WithField("order_id", id).Infof("Order paid via %s", req.PaymentMethod)
	utils.RespondJSON(c, http.StatusOK, "Payment recorded", order)
}

// SplitPayment replaces the method breakdown of a receipt.
func (pc *PaymentController) SplitPayment(c *gin.Context) {
	var req services.SplitPayment
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.ChangedBy == "" {
		req.ChangedBy = actorName(c)
	}

	receiptID, err := pc.Payments.PaySplit(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Split payment recorded", gin.H{"receipt_id": receiptID})
}

func (pc *PaymentController) GetReceiptMethods(c *gin.Context) {
	rows, err := pc.Payments.GetReceiptMethods(c.Request.Context(), c.Param("receipt_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Receipt methods", rows)
}

// CreateSubOrder bills part of an order separately.
func (pc *PaymentController) CreateSubOrder(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req services.NewSubOrder
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	req.OrderID = id

	sub, err := pc.Payments.CreateSubOrder(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Sub-order created", sub)
}

func (pc *PaymentController) GetSubOrders(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	subs, err := pc.Payments.SubOrders(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sub-orders", subs)
}

func (pc *PaymentController) ChangePaymentMethod(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		PaymentMethod string `json:"payment_method" binding:"required"`
		ChangedBy     string `json:"changed_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.ChangedBy == "" {
		req.ChangedBy = actorName(c)
	}

	order, err := pc.Payments.ChangePaymentMethod(c.Request.Context(), id, req.PaymentMethod, req.ChangedBy)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment method changed", order)
}

func (pc *PaymentController) GetPaymentChanges(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	changes, err := pc.Payments.PaymentChanges(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment method history", changes)
}
