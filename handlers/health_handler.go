package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sitedaddy/daisy-dog/config"
)

// Health reports the running build. It is mounted on the admin listener only,
// so it never shadows a static file on the gateway listener.
func Health(cfg *config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"app":         cfg.App.Name,
			"version":     cfg.App.Version,
			"environment": cfg.App.Environment,
			"variant":     cfg.App.Variant,
			"services": gin.H{
				"places": cfg.Places.APIKey != "",
				"static": cfg.ServesStatic(),
			},
		})
	}
}
