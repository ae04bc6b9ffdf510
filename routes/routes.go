package routes

import (
	"github.com/gin-gonic/gin"

	"strompris-api/controllers"
	"strompris-api/services"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, queries *services.QueryService, reservoir *services.ReservoirService) {
	priceController := controllers.NewPriceController(queries)
	reservoirController := controllers.NewReservoirController(reservoir)

	// API v1 group
	api := router.Group("/api/v1")
	{
		prices := api.Group("/prices")
		{
			prices.GET("/average/:area", priceController.GetAverage)
			prices.GET("/:area/:date", priceController.GetDay)
			prices.GET("/:area/:date/:to", priceController.GetRange)
		}

		api.GET("/reservoir/:from/:to", reservoirController.GetRange)
	}
}
