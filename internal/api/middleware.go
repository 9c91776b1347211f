package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rulecast/internal/logging"
	"rulecast/internal/services"
)

const requestIDHeader = "X-Request-ID"

// requestID propagates or generates X-Request-ID and stores it on the
// request context for log correlation.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// limitBody caps request bodies at maxBytes.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// accessLog writes one debug line per request, or a warning for 5xx.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger := logging.WithContext(c.Request.Context(), s.logger)
		attrs := []logging.Attr{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("latency", time.Since(start)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logging.WarnWithContext(logger, "request completed with server error", "api_request",
				append(attrs,
					logging.String(logging.FieldImpact, "client received an error response"),
					logging.String(logging.FieldErrorHint, "see the preceding api_request_failed entry"),
				)...)
			return
		}
		logger.Debug("request completed", logging.Args(attrs...)...)
	}
}

// recovery converts panics into 500 envelopes.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger := logging.WithContext(c.Request.Context(), s.logger)
		logging.ErrorWithContext(logger, "handler panic", "api_panic",
			logging.Any("panic", recovered),
			logging.Alert("api_panic"),
		)
		respondError(c, http.StatusInternalServerError, ErrorBody{Code: codeInternal, Message: "an internal error occurred"})
	})
}
