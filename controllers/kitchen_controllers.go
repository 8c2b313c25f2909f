package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type KitchenController struct {
	Scheduler *services.KitchenScheduler
}

func NewKitchenController(scheduler *services.KitchenScheduler) *KitchenController {
	return &KitchenController{Scheduler: scheduler}
}

type kitchenItemsRequest struct {
	ItemIDs []uint `json:"item_ids" binding:"required"`
	Status  string `json:"status"`
}

// UpdateItemsStatus moves a batch of items forward in the kitchen pipeline.
func (kc *KitchenController) UpdateItemsStatus(c *gin.Context) {
	var req kitchenItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	updated, err := kc.Scheduler.SetKitchenStatus(c.Request.Context(), req.ItemIDs, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Kitchen status updated", gin.H{"updated": updated})
}

func (kc *KitchenController) ResetItemsStatus(c *gin.Context) {
	var req kitchenItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	updated, err := kc.Scheduler.ResetKitchenStatus(c.Request.Context(), req.ItemIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Kitchen status reset", gin.H{"updated": updated})
}

func (kc *KitchenController) GetQueue(c *gin.Context) {
	orders, err := kc.Scheduler.Queue(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Kitchen queue", orders)
}

func (kc *KitchenController) GetPreparing(c *gin.Context) {
	ids, err := kc.Scheduler.Preparing(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Items in preparation", ids)
}
