package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"strompris-api/services"
)

// ReservoirController handles reservoir-filling statistic queries
type ReservoirController struct {
	reservoir *services.ReservoirService
}

// NewReservoirController creates a new reservoir controller
func NewReservoirController(reservoir *services.ReservoirService) *ReservoirController {
	return &ReservoirController{reservoir: reservoir}
}

// GetRange returns weekly reservoir statistics with date in [from, to]
// GET /api/v1/reservoir/:from/:to
func (rc *ReservoirController) GetRange(c *gin.Context) {
	from, err := services.ParseDate(c.Param("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := services.ParseDate(c.Param("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fills, err := rc.reservoir.GetRange(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, fills)
}
