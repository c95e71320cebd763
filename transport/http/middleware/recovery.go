package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"runtime/debug"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/rediskit/log"
)

// Recovery 捕获 handler 中的 panic 并返回 500，客户端断开导致的 panic 只记 Warn
func Recovery(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			request, _ := httputil.DumpRequest(c.Request, false)

			if err, ok := r.(error); ok && isBrokenPipe(err) {
				logger.Warn().Err(err).Bytes("request", request).Msg("broken pipe")
				_ = c.Error(err)
				c.Abort()
				return
			}

			logger.Error().
				Str("error", fmt.Sprint(r)).
				Bytes("request", request).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")
			c.AbortWithStatus(http.StatusInternalServerError)
		}()
		c.Next()
	}
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}
