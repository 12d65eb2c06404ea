package middlewares

import (
	"time"

	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-ID"

// LoggerMiddleware logs one line per request and propagates X-Request-ID,
// generating one when the client did not send it.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set("request_id", reqID)
		c.Header(RequestIDHeader, reqID)

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		entry := utils.InfoLogger.WithFields(logrus.Fields{
			"request_id": reqID,
			"method":     c.Request.Method,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start),
			"ip":         c.ClientIP(),
		})
		if c.Writer.Status() >= 500 {
			entry.Warn(path)
			return
		}
		entry.Info(path)
	}
}

// TicketLoggerMiddleware records ticket requests for the print audit trail.
func TicketLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("order_id")
		c.Next()

		if c.Writer.Status() < 300 {
			utils.InfoLogger.Printf("Ticket %s for order %s served", c.Request.Method, orderID)
		} else {
			utils.ErrorLogger.Printf("Ticket %s for order %s failed with %d", c.Request.Method, orderID, c.Writer.Status())
		}
	}
}
