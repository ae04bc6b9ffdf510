package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"strompris-api/services"
)

// PriceController handles spot-price queries
type PriceController struct {
	queries *services.QueryService
}

// NewPriceController creates a new price controller
func NewPriceController(queries *services.QueryService) *PriceController {
	return &PriceController{queries: queries}
}

// GetDay returns one day of prices for an area, predicted when unobserved
// GET /api/v1/prices/:area/:date
func (pc *PriceController) GetDay(c *gin.Context) {
	date, err := services.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prices, err := pc.queries.GetDay(c.Request.Context(), c.Param("area"), date)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, prices)
}

// GetRange returns prices for [date, to], gap-filling empty days in [date, to)
// GET /api/v1/prices/:area/:date/:to
func (pc *PriceController) GetRange(c *gin.Context) {
	from, err := services.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := services.ParseDate(c.Param("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prices, err := pc.queries.GetRange(c.Request.Context(), c.Param("area"), from, to)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, prices)
}

// GetAverage returns the mean persisted price for an area
// GET /api/v1/prices/average/:area
func (pc *PriceController) GetAverage(c *gin.Context) {
	average, err := pc.queries.GetAverage(c.Request.Context(), c.Param("area"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"area": c.Param("area"), "average": average})
}

// renderError maps typed service failures onto response codes
func renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidDate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrEmptyAggregate):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotReady):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
