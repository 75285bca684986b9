package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"prodstudio/internal/pkg/response"
)

const requestIDHeader = "X-Request-ID"

// ErrorLogger tags every request with an id, logs failed requests and recovers from panics.
// Errors attached with c.Error are logged here; clients only ever see a generic message.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)

		defer func() {
			if recovered := recover(); recovered != nil {
				log.Printf("request_panic %s error=%q stack=%q", requestFields(c, start), fmt.Sprint(recovered), debug.Stack())
				response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				return
			}

			if len(c.Errors) == 0 {
				if c.Writer.Status() >= http.StatusInternalServerError {
					log.Printf("request_error type=http_error %s", requestFields(c, start))
				}
				return
			}
			for _, err := range c.Errors {
				log.Printf("request_error type=%v %s error=%q", err.Type, requestFields(c, start), err.Error())
				if err.Meta != nil {
					log.Printf("request_error_meta request_id=%s meta=%+v", id, err.Meta)
				}
			}
		}()

		c.Next()
	}
}

func requestFields(c *gin.Context, start time.Time) string {
	return fmt.Sprintf(
		"status=%d method=%s path=%s query=%s client_ip=%s user_id=%s is_admin=%t request_id=%s latency=%s",
		c.Writer.Status(),
		c.Request.Method,
		c.Request.URL.Path,
		c.Request.URL.RawQuery,
		c.ClientIP(),
		c.GetString(ctxUserID),
		c.GetBool(ctxIsAdmin),
		c.GetString(requestIDHeader),
		time.Since(start),
	)
}
