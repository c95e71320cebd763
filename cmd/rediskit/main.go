package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/kochabx/rediskit/app"
	"github.com/kochabx/rediskit/config"
	"github.com/kochabx/rediskit/log"
	"github.com/kochabx/rediskit/store/redis"
	adminhttp "github.com/kochabx/rediskit/transport/http"
)

type flags struct {
	config string
	mode   string
	admin  string
	memory bool
	debug  bool
}

func parseFlags(args []string) (*flags, error) {
	f := &flags{}
	fs := pflag.NewFlagSet("rediskit", pflag.ContinueOnError)
	fs.StringVarP(&f.config, "config", "c", "rediskit.yaml", "configuration file (yaml or json)")
	fs.StringVarP(&f.mode, "mode", "m", "walkthrough", "walkthrough: run the command sequence and exit; watch: health-check until interrupted")
	fs.StringVar(&f.admin, "admin", "", "admin listen address serving /metrics, /healthz and /status (disabled when empty)")
	fs.BoolVar(&f.memory, "memory", false, "use the in-memory driver instead of a Redis server")
	fs.BoolVar(&f.debug, "debug", false, "log every driver command and slow queries")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.mode != "walkthrough" && f.mode != "watch" {
		return nil, fmt.Errorf("unknown mode %q", f.mode)
	}
	return f, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(f); err != nil {
		log.Error().Err(err).Msg("rediskit failed")
		os.Exit(1)
	}
}

func run(f *flags) error {
	var (
		c      *config.Config
		logger *log.Logger
	)
	cfg := new(config.App)
	c = config.New(cfg,
		config.WithFile(filepath.Base(f.config), filepath.Dir(f.config)),
		config.WithDefaults(config.Defaults()),
		config.WithOnChange(func() { logReload(c, logger) }),
	)
	if err := c.Load(); err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Close()
	log.SetGlobalLogger(logger)

	raw := cfg.Redis.ToMap()
	raw["logger"] = logger
	desc, err := redis.ResolveMap(raw)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	options := []redis.Option{redis.WithMetrics(registry)}
	if f.memory {
		options = append(options, redis.WithDriver(redis.NewMemoryDriver()))
	}
	if f.debug {
		options = append(options, redis.WithDebug())
	}

	client, err := redis.NewFromDescriptor(desc, options...)
	if err != nil {
		return err
	}

	health := redis.NewHealthChecker(client, cfg.Health.Interval, logger.Context("health"))

	appOpts := []app.Option{
		app.WithLogger(logger),
		app.WithClose("redis-client", func(context.Context) error { return client.Close() }, 5*time.Second),
	}

	if f.admin != "" {
		adminOpts := []adminhttp.Option{
			adminhttp.WithLogger(logger.Context("admin")),
			adminhttp.WithGatherer(registry),
		}
		if cfg.Health.Enabled {
			adminOpts = append(adminOpts, adminhttp.WithHealth(func() (bool, any) {
				status := health.GetStatus()
				return status.Healthy, status
			}))
		}
		adminOpts = append(adminOpts,
			adminhttp.WithStatus(func() any {
				return map[string]any{
					"client_id": client.ID(),
					"state":     client.State().String(),
					"mode":      desc.Mode.String(),
					"addr":      desc.Addr(),
					"sentinels": desc.SentinelAddrs(),
				}
			}),
		)
		appOpts = append(appOpts, app.WithServers(adminhttp.NewServer(f.admin, adminOpts...)))
	}

	var a *app.Application
	switch f.mode {
	case "walkthrough":
		appOpts = append(appOpts, app.WithTask("walkthrough", func(ctx context.Context) error {
			defer a.Stop()
			return walkthrough(ctx, client, logger)
		}))
	case "watch":
		if err := c.Watch(); err != nil {
			return err
		}
		appOpts = append(appOpts, app.WithTask("health", watchHealth(health, cfg.Health.Enabled)))
	}

	a = app.New(appOpts...)
	return a.Start()
}

// watchHealth 在 ctx 结束前保持运行，enabled 为 false 时不启动检查器
func watchHealth(health *redis.HealthChecker, enabled bool) func(context.Context) error {
	return func(ctx context.Context) error {
		if !enabled {
			<-ctx.Done()
			return nil
		}
		if err := health.Start(); err != nil {
			return err
		}
		<-ctx.Done()
		return health.Stop()
	}
}

// logReload 记录重载后的 redis 与 log 配置
// 已打开的客户端不会重建，新的连接参数在重启后生效
func logReload(c *config.Config, logger *log.Logger) {
	if logger == nil {
		logger = log.G
	}
	c.Read(func(target any) {
		cfg := target.(*config.App)
		logger.Warn().
			Str("redis_name", cfg.Redis.Name).
			Strs("redis_sentinels", cfg.Redis.Sentinels).
			Str("redis_host", cfg.Redis.Host).
			Int("redis_port", cfg.Redis.Port).
			Int("redis_db", cfg.Redis.DB).
			Str("log_level", cfg.Log.Level).
			Str("log_output", cfg.Log.Output).
			Bool("health_enabled", cfg.Health.Enabled).
			Msg("config reloaded; restart to apply connection settings")
	})
}
