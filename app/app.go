package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kochabx/rediskit/log"
	"github.com/kochabx/rediskit/transport"
)

var (
	ErrAlreadyStarted = errors.New("application already started")
	ErrClosePanic     = errors.New("close function panicked")
)

// Application 管理服务器、后台任务和关闭函数的生命周期
type Application struct {
	ctx             context.Context
	cancel          context.CancelFunc
	logger          *log.Logger
	shutdownTimeout time.Duration
	signals         []os.Signal
	servers         []transport.Server
	tasks           []Task
	closeFuncs      []CloseFunc
	closeTimeout    time.Duration
	mu              sync.RWMutex
	started         bool
}

// Task 随应用运行的后台任务，ctx 在应用停止时取消
// 返回非 nil 错误会使整个应用停止，返回 nil 不影响其它任务
type Task struct {
	Name string
	Fn   func(context.Context) error
}

// CloseFunc 具有可选超时的关闭函数
type CloseFunc struct {
	Name    string
	Fn      func(context.Context) error
	Timeout time.Duration
}

type Option func(*Application)

// WithContext 设置应用的根上下文
func WithContext(ctx context.Context) Option {
	return func(app *Application) {
		if ctx != nil {
			app.ctx, app.cancel = context.WithCancel(ctx)
		}
	}
}

// WithLogger 设置 Logger，默认 log.G
func WithLogger(logger *log.Logger) Option {
	return func(app *Application) {
		if logger != nil {
			app.logger = logger
		}
	}
}

// WithShutdownTimeout 设置服务器关闭的超时时间
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(app *Application) {
		if timeout > 0 {
			app.shutdownTimeout = timeout
		}
	}
}

// WithCloseTimeout 设置关闭函数的默认超时时间
func WithCloseTimeout(timeout time.Duration) Option {
	return func(app *Application) {
		if timeout > 0 {
			app.closeTimeout = timeout
		}
	}
}

// WithSignals 设置触发优雅关闭的信号
func WithSignals(signals ...os.Signal) Option {
	return func(app *Application) {
		if len(signals) > 0 {
			app.signals = make([]os.Signal, len(signals))
			copy(app.signals, signals)
		}
	}
}

// WithServers 添加服务器，nil 被忽略
func WithServers(servers ...transport.Server) Option {
	return func(app *Application) {
		for _, server := range servers {
			if server != nil {
				app.servers = append(app.servers, server)
			}
		}
	}
}

// WithTask 添加后台任务
func WithTask(name string, fn func(context.Context) error) Option {
	return func(app *Application) {
		if fn != nil {
			app.tasks = append(app.tasks, Task{Name: name, Fn: fn})
		}
	}
}

// WithClose 添加在关闭期间执行的关闭函数，timeout 为 0 时使用默认超时
func WithClose(name string, fn func(context.Context) error, timeout time.Duration) Option {
	return func(app *Application) {
		if fn == nil {
			app.logger.Warn().Str("name", name).Msg("nil close function ignored")
			return
		}
		if timeout == 0 {
			timeout = app.closeTimeout
		}
		app.closeFuncs = append(app.closeFuncs, CloseFunc{Name: name, Fn: fn, Timeout: timeout})
	}
}

// New 创建应用实例
func New(options ...Option) *Application {
	app := &Application{
		logger:          log.G,
		shutdownTimeout: 30 * time.Second,
		closeTimeout:    30 * time.Second,
		signals:         []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT},
	}
	app.ctx, app.cancel = context.WithCancel(context.Background())

	for _, opt := range options {
		opt(app)
	}

	return app
}

// RegisterClose 在启动前或运行中追加关闭函数
func (app *Application) RegisterClose(name string, fn func(context.Context) error, timeout time.Duration) error {
	if fn == nil {
		return errors.New("close function cannot be nil")
	}

	app.mu.Lock()
	defer app.mu.Unlock()

	if timeout == 0 {
		timeout = app.closeTimeout
	}
	app.closeFuncs = append(app.closeFuncs, CloseFunc{Name: name, Fn: fn, Timeout: timeout})

	return nil
}

// AddTask 在启动前追加后台任务
func (app *Application) AddTask(name string, fn func(context.Context) error) error {
	if fn == nil {
		return errors.New("task function cannot be nil")
	}

	app.mu.Lock()
	defer app.mu.Unlock()

	if app.started {
		return ErrAlreadyStarted
	}
	app.tasks = append(app.tasks, Task{Name: name, Fn: fn})

	return nil
}

// Start 启动服务器与任务并阻塞，直到收到信号、调用 Stop 或某个任务失败
// 无论以何种方式结束，关闭函数都会执行
func (app *Application) Start() error {
	app.mu.Lock()
	if app.started {
		app.mu.Unlock()
		return ErrAlreadyStarted
	}
	app.started = true
	servers := append([]transport.Server(nil), app.servers...)
	tasks := append([]Task(nil), app.tasks...)
	signals := append([]os.Signal(nil), app.signals...)
	app.mu.Unlock()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)
	defer signal.Stop(sigCh)

	eg, egCtx := errgroup.WithContext(app.ctx)

	for _, server := range servers {
		app.startServer(eg, egCtx, server)
	}
	for _, task := range tasks {
		eg.Go(func() error {
			if err := task.Fn(egCtx); err != nil {
				app.logger.Error().Err(err).Str("task", task.Name).Msg("task failed")
				return err
			}
			app.logger.Debug().Str("task", task.Name).Msg("task finished")
			return nil
		})
	}

	eg.Go(func() error {
		select {
		case sig := <-sigCh:
			app.logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
			app.cancel()
			return nil
		case <-egCtx.Done():
			if errors.Is(egCtx.Err(), context.Canceled) {
				return nil
			}
			return egCtx.Err()
		}
	})

	err := eg.Wait()
	app.runCloseTasks()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Stop 停止应用
func (app *Application) Stop() {
	app.cancel()
}

func (app *Application) startServer(eg *errgroup.Group, ctx context.Context, server transport.Server) {
	eg.Go(func() error {
		if err := server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})
}

// runCloseTasks 并发执行所有关闭函数
func (app *Application) runCloseTasks() {
	app.mu.RLock()
	closeFuncs := append([]CloseFunc(nil), app.closeFuncs...)
	app.mu.RUnlock()

	if len(closeFuncs) == 0 {
		return
	}

	eg := &errgroup.Group{}
	for _, cf := range closeFuncs {
		eg.Go(func() error {
			return app.runCloseTask(cf)
		})
	}

	if err := eg.Wait(); err != nil {
		app.logger.Error().Err(err).Msg("some close functions failed")
	}
}

func (app *Application) runCloseTask(cf CloseFunc) error {
	ctx, cancel := context.WithTimeout(context.Background(), cf.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				app.logger.Error().Interface("panic", r).Str("close", cf.Name).Msg("close function panicked")
				done <- ErrClosePanic
			}
		}()
		done <- cf.Fn(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			app.logger.Error().Err(err).Str("close", cf.Name).Msg("close function failed")
		}
		return err
	case <-ctx.Done():
		app.logger.Warn().Str("close", cf.Name).Msg("close function timed out")
		return ctx.Err()
	}
}

// Info 返回应用状态信息
func (app *Application) Info() ApplicationInfo {
	app.mu.RLock()
	defer app.mu.RUnlock()

	return ApplicationInfo{
		Started:     app.started,
		ServerCount: len(app.servers),
		TaskCount:   len(app.tasks),
		CloseCount:  len(app.closeFuncs),
	}
}

// ApplicationInfo 应用状态信息
type ApplicationInfo struct {
	Started     bool `json:"started"`
	ServerCount int  `json:"server_count"`
	TaskCount   int  `json:"task_count"`
	CloseCount  int  `json:"close_count"`
}
