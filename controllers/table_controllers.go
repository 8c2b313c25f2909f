package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type TableController struct {
	Tables *services.TableAllocator
}

func NewTableController(tables *services.TableAllocator) *TableController {
	return &TableController{Tables: tables}
}

type tableRequest struct {
	TableNumber string `json:"table_number" binding:"required"`
}

// MoveTable -> pindah order ke meja kosong
func (tc *TableController) MoveTable(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req tableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := tc.Tables.Move(c.Request.Context(), id, req.TableNumber)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.Printf("Order %d moved to table %s", id, req.TableNumber)
	utils.RespondJSON(c, http.StatusOK, "Order moved", order)
}

// MergeTable folds an order into the open order of another table.
func (tc *TableController) MergeTable(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req tableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	target, err := tc.Tables.Merge(c.Request.Context(), id, req.TableNumber)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.Printf("Order %d merged into order %d on table %s", id, target.ID, req.TableNumber)
	utils.RespondJSON(c, http.StatusOK, "Orders merged", target)
}
