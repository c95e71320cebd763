package redis

import (
	"fmt"
	"math"
	"net"
	"strconv"
	"time"

	"github.com/kochabx/rediskit/errors"
	"github.com/kochabx/rediskit/log"
)

// Mode 连接模式
type Mode int

const (
	// ModeSentinel 通过哨兵发现主节点
	ModeSentinel Mode = iota
	// ModeDirect 直连 host:port
	ModeDirect
)

func (m Mode) String() string {
	switch m {
	case ModeSentinel:
		return "sentinel"
	case ModeDirect:
		return "direct"
	default:
		return "unknown"
	}
}

const (
	// DefaultMasterName 默认的哨兵主节点名称
	DefaultMasterName = "mymaster"
)

// DefaultSentinels 默认的三个本地哨兵地址
var DefaultSentinels = []string{
	"127.0.0.1:57780",
	"127.0.0.1:57781",
	"127.0.0.1:57782",
}

// Addr 结构化的 host/port 地址
type Addr struct {
	Host string
	Port int
}

func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// ParseAddr 解析 "host:port" 格式的地址，端口必须是整数
func ParseAddr(s string) (Addr, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Addr{}, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Addr{}, fmt.Errorf("port %q is not numeric", portStr)
	}
	if port <= 0 || port > math.MaxUint16 {
		return Addr{}, fmt.Errorf("port %d out of range", port)
	}
	return Addr{Host: host, Port: port}, nil
}

// Options 客户端配置，所有字段可选，零值表示使用默认值
type Options struct {
	// Logger 日志记录器，默认 log.G
	Logger *log.Logger

	// Name 哨兵模式的主节点名称，默认 mymaster
	Name string

	// Sentinels 哨兵地址列表，"host:port" 格式
	// 为 nil 时使用 DefaultSentinels
	Sentinels []string

	// Host/Port 直连地址，设置 Host 后切换为直连模式并忽略 Sentinels
	Host string
	Port int

	// LazyConnect 是否延迟连接，默认 true
	LazyConnect *bool

	// 以下字段原样透传给驱动
	Username         string
	Password         string
	SentinelPassword string
	DB               int
	DialTimeout      time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
}

// Bool 返回 v 的指针，便于设置 Options.LazyConnect
func Bool(v bool) *bool {
	return &v
}

// DefaultOptions 返回默认配置：三个本地哨兵、mymaster、延迟连接
func DefaultOptions() *Options {
	sentinels := make([]string, len(DefaultSentinels))
	copy(sentinels, DefaultSentinels)

	return &Options{
		Logger:      log.G,
		Name:        DefaultMasterName,
		Sentinels:   sentinels,
		LazyConnect: Bool(true),
	}
}

// Descriptor 解析后的连接描述，构造后不可变
type Descriptor struct {
	Mode        Mode
	Sentinels   []Addr // 仅 ModeSentinel 非空
	MasterName  string
	Host        string // 仅 ModeDirect
	Port        int    // 仅 ModeDirect
	LazyConnect bool
	Logger      *log.Logger

	Username         string
	Password         string
	SentinelPassword string
	DB               int
	DialTimeout      time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
}

// Addr 返回直连地址，哨兵模式下返回空字符串
func (d Descriptor) Addr() string {
	if d.Mode != ModeDirect {
		return ""
	}
	return Addr{Host: d.Host, Port: d.Port}.String()
}

// SentinelAddrs 返回哨兵地址的字符串形式
func (d Descriptor) SentinelAddrs() []string {
	addrs := make([]string, len(d.Sentinels))
	for i, a := range d.Sentinels {
		addrs[i] = a.String()
	}
	return addrs
}

// Resolve 校验并规范化配置，opts 为 nil 时返回默认描述
func Resolve(opts *Options) (Descriptor, error) {
	def := DefaultOptions()
	if opts == nil {
		opts = def
	}

	desc := Descriptor{
		Mode:             ModeSentinel,
		MasterName:       def.Name,
		LazyConnect:      true,
		Logger:           def.Logger,
		Username:         opts.Username,
		Password:         opts.Password,
		SentinelPassword: opts.SentinelPassword,
		DB:               opts.DB,
		DialTimeout:      opts.DialTimeout,
		ReadTimeout:      opts.ReadTimeout,
		WriteTimeout:     opts.WriteTimeout,
	}

	if opts.Logger != nil {
		desc.Logger = opts.Logger
	}
	if opts.Name != "" {
		desc.MasterName = opts.Name
	}
	if opts.LazyConnect != nil {
		desc.LazyConnect = *opts.LazyConnect
	}
	if opts.DB < 0 {
		return Descriptor{}, errors.InvalidConfigError("db", "must not be negative")
	}
	if opts.DialTimeout < 0 || opts.ReadTimeout < 0 || opts.WriteTimeout < 0 {
		return Descriptor{}, errors.InvalidConfigError("timeout", "must not be negative")
	}

	// 直连优先于哨兵
	if opts.Host != "" {
		if opts.Port <= 0 || opts.Port > math.MaxUint16 {
			return Descriptor{}, errors.InvalidConfigError("port", fmt.Sprintf("%d is not a valid port", opts.Port))
		}
		desc.Mode = ModeDirect
		desc.Host = opts.Host
		desc.Port = opts.Port
		return desc, nil
	}

	sentinels := opts.Sentinels
	if sentinels == nil {
		sentinels = def.Sentinels
	}
	if len(sentinels) == 0 {
		return Descriptor{}, errors.InvalidConfigError("sentinels", "must not be empty")
	}

	desc.Sentinels = make([]Addr, 0, len(sentinels))
	for i, s := range sentinels {
		addr, err := ParseAddr(s)
		if err != nil {
			return Descriptor{}, errors.InvalidConfigError(fmt.Sprintf("sentinels[%d]", i), err.Error())
		}
		desc.Sentinels = append(desc.Sentinels, addr)
	}

	return desc, nil
}
