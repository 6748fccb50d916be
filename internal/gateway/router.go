package gateway

import (
	"github.com/gin-gonic/gin"

	"github.com/apiredirector/gateway/internal/gateway/response"
	"github.com/apiredirector/gateway/internal/proxy/googlemaps"
)

// RegisterRoutes attaches the gateway routes to the engine.
func RegisterRoutes(engine *gin.Engine, h *Handlers) {
	engine.GET("/health", h.Health)

	maps := engine.Group("/proxy/maps")
	{
		maps.GET("/geocode", h.Geocode(googlemaps.FormatJSON))
		maps.GET("/geocode/xml", h.Geocode(googlemaps.FormatXML))
	}

	engine.GET("/proxy", h.Generic)
	engine.POST("/proxy", h.Generic)
	engine.PUT("/proxy", h.Generic)
	engine.DELETE("/proxy", h.Generic)

	engine.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})
	engine.NoMethod(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})
	engine.HandleMethodNotAllowed = true
}
