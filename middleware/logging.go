package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Logging returns a logging middleware for HTTP requests
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		logger := log.WithField("module", "http")

		logger.Infof("Request: %s %s | Client: %s", c.Request.Method, c.Request.URL.Path, c.ClientIP())
		logger.Debugf("Request query params: %s", c.Request.URL.RawQuery)

		c.Next()

		logger.Infof("Response: %s %s | Status: %d | Time: %.3fs",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Seconds())
	}
}
