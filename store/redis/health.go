package redis

import (
	"context"
	"sync"
	"time"

	"github.com/kochabx/rediskit/log"
)

// Pinger 可被健康检查的对象，*Client 实现了该接口
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker 定期 PING 的健康检查器
type HealthChecker struct {
	target   Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *log.Logger

	mu         sync.RWMutex
	lastStatus *HealthStatus

	// lifecycle 保护 running/cancel/done，每次 Start 重新创建
	lifecycle sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// HealthStatus 健康状态
type HealthStatus struct {
	Healthy      bool
	LastCheck    time.Time
	Latency      time.Duration
	ErrorMessage string
}

// NewHealthChecker 创建健康检查器，logger 为 nil 时不记录日志
func NewHealthChecker(target Pinger, interval time.Duration, logger *log.Logger) *HealthChecker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	timeout := 5 * time.Second
	if interval < timeout {
		timeout = interval
	}

	return &HealthChecker{
		target:   target,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start 立即检查一次，然后按 interval 定期检查
func (hc *HealthChecker) Start() error {
	hc.lifecycle.Lock()
	defer hc.lifecycle.Unlock()

	if hc.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	hc.running, hc.cancel, hc.done = true, cancel, done

	hc.check(ctx)
	go hc.run(ctx, done)

	if hc.logger != nil {
		hc.logger.Info().Dur("interval", hc.interval).Msg("health checker started")
	}
	return nil
}

// Stop 停止检查并等待后台协程退出
func (hc *HealthChecker) Stop() error {
	hc.lifecycle.Lock()
	defer hc.lifecycle.Unlock()

	if !hc.running {
		return nil
	}

	hc.cancel()
	<-hc.done
	hc.running, hc.cancel, hc.done = false, nil, nil

	if hc.logger != nil {
		hc.logger.Info().Msg("health checker stopped")
	}
	return nil
}

// GetStatus 返回最近一次检查结果的副本
func (hc *HealthChecker) GetStatus() *HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	if hc.lastStatus == nil {
		return &HealthStatus{ErrorMessage: "not checked yet"}
	}

	status := *hc.lastStatus
	return &status
}

func (hc *HealthChecker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hc.check(ctx)
		}
	}
}

func (hc *HealthChecker) check(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, hc.timeout)
	defer cancel()

	status := &HealthStatus{LastCheck: time.Now()}

	start := time.Now()
	err := hc.target.Ping(ctx)
	status.Latency = time.Since(start)

	if err != nil {
		status.ErrorMessage = err.Error()
		if hc.logger != nil {
			hc.logger.Warn().Dur("latency", status.Latency).Err(err).Msg("health check failed")
		}
	} else {
		status.Healthy = true
		if hc.logger != nil {
			hc.logger.Debug().Dur("latency", status.Latency).Msg("health check success")
		}
	}

	hc.mu.Lock()
	hc.lastStatus = status
	hc.mu.Unlock()
}

// IsHealthy 最近一次检查是否成功
func (hc *HealthChecker) IsHealthy() bool {
	return hc.GetStatus().Healthy
}

// WaitForHealthy 等待直到健康，超时或 ctx 结束返回 false
func (hc *HealthChecker) WaitForHealthy(ctx context.Context, maxWait time.Duration) bool {
	deadline := time.Now().Add(maxWait)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if hc.IsHealthy() {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if time.Now().After(deadline) {
				return false
			}
		}
	}
}
