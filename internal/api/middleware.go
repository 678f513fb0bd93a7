package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/signalsfoundry/orbital-energy-sim/internal/logging"
)

// RequestLogger attaches a request_id to the request context and emits
// one structured line per handled request.
func RequestLogger(log logging.Logger) gin.HandlerFunc {
	if log == nil {
		log = logging.Noop()
	}
	return func(c *gin.Context) {
		start := time.Now()

		ctx, reqLog := logging.WithRequestLogger(c.Request.Context(), log)
		c.Request = c.Request.WithContext(logging.ContextWithLogger(ctx, reqLog))

		c.Next()

		reqLog.Info(ctx, "http request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", c.Writer.Status()),
			logging.String("duration", time.Since(start).String()),
		)
	}
}
