package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Liveness answers uptime monitors on "/".
func Liveness(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "shopbot",
		"status":  "healthy",
	})
}
