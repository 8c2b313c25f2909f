package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type RegisterController struct {
	Register *services.CashRegister
}

func NewRegisterController(register *services.CashRegister) *RegisterController {
	return &RegisterController{Register: register}
}

func (rc *RegisterController) Status(c *gin.Context) {
	open, err := rc.Register.IsOpen(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cash register status", gin.H{"open": open})
}

func (rc *RegisterController) Open(c *gin.Context) {
	entry, err := rc.Register.Open(c.Request.Context(), currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.Printf("Cash register opened (log=%d)", entry.ID)
	utils.RespondJSON(c, http.StatusCreated, "Cash register opened", entry)
}

func (rc *RegisterController) Close(c *gin.Context) {
	entry, err := rc.Register.Close(c.Request.Context(), currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.Printf("Cash register closed (log=%d)", entry.ID)
	utils.RespondJSON(c, http.StatusCreated, "Cash register closed", entry)
}
