package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type DriverController struct {
	Tables  *services.TableAllocator
	Drivers *services.DriverDesk
}

func NewDriverController(tables *services.TableAllocator, drivers *services.DriverDesk) *DriverController {
	return &DriverController{Tables: tables, Drivers: drivers}
}

// driverFor resolves which driver a request acts for. Drivers always act for
// themselves; other roles name the driver explicitly.
func driverFor(c *gin.Context, requested uint) (uint, bool) {
	role, _ := c.Get("role")
	if role == models.RoleDriver {
		self := currentUser(c)
		if self == nil {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
			return 0, false
		}
		if requested != 0 && requested != *self {
			utils.RespondError(c, http.StatusForbidden, errors.New("drivers can only act for themselves"))
			return 0, false
		}
		return *self, true
	}
	return requested, true
}

// ClaimOrder assigns a delivery order to a driver. Only one claim wins.
func (dc *DriverController) ClaimOrder(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		DriverID uint `json:"driver_id"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
	}
	driverID, ok := driverFor(c, req.DriverID)
	if !ok {
		return
	}

	if err := dc.Tables.ClaimDriver(c.Request.Context(), id, driverID); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order claimed", gin.H{"order_id": id, "driver_id": driverID})
}

func (dc *DriverController) UpdateDriverStatus(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := dc.Drivers.UpdateDriverStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Driver status updated", order)
}

// GetReport -> ?date=YYYY-MM-DD, defaults to today
func (dc *DriverController) GetReport(c *gin.Context) {
	id, ok := paramID(c, "driver_id")
	if !ok {
		return
	}
	driverID, ok := driverFor(c, id)
	if !ok {
		return
	}

	day := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	report, err := dc.Drivers.Report(c.Request.Context(), driverID, day)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Driver report", report)
}

func (dc *DriverController) UpdateLocation(c *gin.Context) {
	var req struct {
		DriverID uint    `json:"driver_id"`
		Lat      float64 `json:"lat"`
		Lng      float64 `json:"lng"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	driverID, ok := driverFor(c, req.DriverID)
	if !ok {
		return
	}

	loc, err := dc.Drivers.UpdateLocation(driverID, req.Lat, req.Lng)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Location updated", loc)
}

func (dc *DriverController) GetLocation(c *gin.Context) {
	id, ok := paramID(c, "driver_id")
	if !ok {
		return
	}
	loc, err := dc.Drivers.Location(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Driver location", loc)
}

func (dc *DriverController) GetLocations(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Driver locations", dc.Drivers.Locations())
}
