package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kochabx/rediskit/errors"
	"github.com/kochabx/rediskit/log"
	"github.com/kochabx/rediskit/transport"
	"github.com/kochabx/rediskit/transport/http/middleware"
)

var _ transport.Server = (*Server)(nil)

const (
	defaultName = "admin"
	defaultAddr = ":9090"
)

// HealthFunc 返回健康状态和附加信息
type HealthFunc func() (healthy bool, detail any)

// Response 管理接口的 JSON 响应
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data any    `json:"data,omitempty"`
}

// Server 管理接口：/metrics、/healthz、/status
type Server struct {
	name     string
	logger   *log.Logger
	gatherer prometheus.Gatherer
	health   HealthFunc
	status   func() any
	engine   *gin.Engine
	server   *http.Server
}

type Option func(*Server)

// WithName 设置日志中的服务器名
func WithName(name string) Option {
	return func(s *Server) {
		s.name = name
	}
}

// WithLogger 设置 Logger，默认 log.G
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer 在 /metrics 暴露指标
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithHealth 在 /healthz 暴露健康状态，不健康时返回 503
func WithHealth(fn HealthFunc) Option {
	return func(s *Server) {
		s.health = fn
	}
}

// WithStatus 在 /status 暴露任意状态信息
func WithStatus(fn func() any) Option {
	return func(s *Server) {
		s.status = fn
	}
}

// NewServer 创建管理服务器，addr 无效时使用 :9090
func NewServer(addr string, opts ...Option) *Server {
	s := &Server{
		name:   defaultName,
		logger: log.G,
	}
	for _, opt := range opts {
		opt(s)
	}

	if !transport.ValidateAddress(addr) {
		s.logger.Warn().Str("addr", addr).Str("default", defaultAddr).Msg("invalid address, using default")
		addr = defaultAddr
	}

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(middleware.Recovery(s.logger), middleware.GinLogger(s.logger, middleware.DefaultLoggerConfig()))
	s.routes()

	s.server = &http.Server{Addr: addr, Handler: s.engine}
	return s
}

func (s *Server) routes() {
	if s.gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		})))
	}

	if s.health != nil {
		s.engine.GET("/healthz", func(c *gin.Context) {
			healthy, detail := s.health()
			if !healthy {
				c.JSON(http.StatusServiceUnavailable, &Response{
					Code: errors.NotConnected,
					Msg:  errors.Name(errors.NotConnected),
					Data: detail,
				})
				return
			}
			c.JSON(http.StatusOK, &Response{Msg: "ok", Data: detail})
		})
	}

	if s.status != nil {
		s.engine.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, &Response{Msg: "ok", Data: s.status()})
		})
	}
}

// Handler 返回路由，便于测试
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr 返回监听地址
func (s *Server) Addr() string {
	return s.server.Addr
}

// Run 实现 transport.Server
func (s *Server) Run() error {
	s.logger.Info().Msgf("%s server listening on %s", s.name, s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown 实现 transport.Server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
