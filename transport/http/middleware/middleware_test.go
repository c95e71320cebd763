package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"syscall"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/rediskit/log"
)

func newEngine(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	logger := log.NewWriter(buf)

	r := gin.New()
	r.Use(Recovery(logger), GinLogger(logger, DefaultLoggerConfig()))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestGinLogger(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(&buf)

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("X-Request-Id", "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entry := lastEntry(t, &buf)
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, "req-1", entry["request_id"])

	buf.Reset()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Zero(t, buf.Len())
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(&buf)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestIsBrokenPipe(t *testing.T) {
	err := &net.OpError{Op: "write", Err: os.NewSyscallError("write", syscall.EPIPE)}
	assert.True(t, isBrokenPipe(err))
	assert.False(t, isBrokenPipe(fmt.Errorf("other")))
}
