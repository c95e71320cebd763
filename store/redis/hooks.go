package redis

import (
	"context"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kochabx/rediskit/log"
)

// connErrorHook 将拨号失败转发给驱动的连接级错误回调
type connErrorHook struct {
	emit func(error)
}

func (h *connErrorHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.emit(err)
		}
		return conn, err
	}
}

func (h *connErrorHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return next
}

func (h *connErrorHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

// DebugHook 调试钩子（日志记录 + 慢查询检测）
type DebugHook struct {
	logger          *log.Logger
	slowQueryThresh time.Duration // 0 表示不检测慢查询
}

// NewDebugHook 创建调试 Hook
func NewDebugHook(logger *log.Logger, slowQueryThresh time.Duration) *DebugHook {
	if logger == nil {
		logger = log.G
	}
	return &DebugHook{
		logger:          logger.Context("redis-debug"),
		slowQueryThresh: slowQueryThresh,
	}
}

func (h *DebugHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		start := time.Now()
		conn, err := next(ctx, network, addr)
		duration := time.Since(start)

		if err != nil {
			h.logger.Warn().Str("network", network).Str("addr", addr).Dur("duration", duration).Err(err).Msg("redis dial failed")
		} else {
			h.logger.Debug().Str("network", network).Str("addr", addr).Dur("duration", duration).Msg("redis dial success")
		}
		return conn, err
	}
}

func (h *DebugHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe(cmd.FullName(), time.Since(start), err)
		return err
	}
}

func (h *DebugHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.observe("pipeline", time.Since(start), err)
		return err
	}
}

func (h *DebugHook) observe(name string, duration time.Duration, err error) {
	if h.slowQueryThresh > 0 && duration > h.slowQueryThresh {
		h.logger.Warn().Str("cmd", name).Dur("duration", duration).Dur("threshold", h.slowQueryThresh).Msg("slow query detected")
		return
	}

	// redis.Nil 表示 key 不存在，不算失败
	if err != nil && err != redis.Nil {
		h.logger.Debug().Str("cmd", name).Dur("duration", duration).Err(err).Msg("redis command failed")
		return
	}
	h.logger.Debug().Str("cmd", name).Dur("duration", duration).Msg("redis command success")
}
