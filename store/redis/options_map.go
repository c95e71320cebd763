package redis

import (
	"fmt"
	"math"
	"time"

	"github.com/kochabx/rediskit/errors"
	"github.com/kochabx/rediskit/log"
)

// ResolveMap 从无类型的配置（YAML/JSON 解码结果）解析连接描述
// 每个出现的字段都会做类型检查，不匹配时返回 INVALID_CONFIG 并指明字段名
// 未识别的字段被忽略
func ResolveMap(raw map[string]any) (Descriptor, error) {
	if raw == nil {
		return Resolve(nil)
	}

	opts := &Options{}

	if v, ok := raw["logger"]; ok && v != nil {
		logger, ok := v.(*log.Logger)
		if !ok {
			return Descriptor{}, typeMismatch("logger", "*log.Logger", v)
		}
		opts.Logger = logger
	}

	if err := stringField(raw, "name", &opts.Name); err != nil {
		return Descriptor{}, err
	}

	if v, ok := raw["sentinels"]; ok && v != nil {
		sentinels, err := sentinelList(v)
		if err != nil {
			return Descriptor{}, err
		}
		opts.Sentinels = sentinels
	}

	if v, ok := raw["host"]; ok && v != nil {
		host, ok := v.(string)
		if !ok {
			return Descriptor{}, typeMismatch("host", "string", v)
		}
		if host == "" {
			return Descriptor{}, errors.InvalidConfigError("host", "must not be empty")
		}
		port, ok := toInt(raw["port"])
		if !ok {
			return Descriptor{}, typeMismatch("port", "number", raw["port"])
		}
		opts.Host = host
		opts.Port = port
	}

	if v, ok := raw["lazyConnect"]; ok && v != nil {
		lazy, ok := v.(bool)
		if !ok {
			return Descriptor{}, typeMismatch("lazyConnect", "boolean", v)
		}
		opts.LazyConnect = Bool(lazy)
	}

	for field, dst := range map[string]*string{
		"username":         &opts.Username,
		"password":         &opts.Password,
		"sentinelPassword": &opts.SentinelPassword,
	} {
		if err := stringField(raw, field, dst); err != nil {
			return Descriptor{}, err
		}
	}

	if v, ok := raw["db"]; ok && v != nil {
		db, ok := toInt(v)
		if !ok {
			return Descriptor{}, typeMismatch("db", "number", v)
		}
		opts.DB = db
	}

	for field, dst := range map[string]*time.Duration{
		"dialTimeout":  &opts.DialTimeout,
		"readTimeout":  &opts.ReadTimeout,
		"writeTimeout": &opts.WriteTimeout,
	} {
		if err := durationField(raw, field, dst); err != nil {
			return Descriptor{}, err
		}
	}

	return Resolve(opts)
}

func typeMismatch(field, want string, got any) error {
	return errors.InvalidConfigError(field, fmt.Sprintf("expected %s, got %T", want, got))
}

func stringField(raw map[string]any, field string, dst *string) error {
	v, ok := raw[field]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return typeMismatch(field, "string", v)
	}
	*dst = s
	return nil
}

// durationField 接受 "5s" 形式的字符串或毫秒数
func durationField(raw map[string]any, field string, dst *time.Duration) error {
	v, ok := raw[field]
	if !ok || v == nil {
		return nil
	}
	switch d := v.(type) {
	case time.Duration:
		*dst = d
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return errors.InvalidConfigError(field, err.Error())
		}
		*dst = parsed
	default:
		ms, ok := toInt(v)
		if !ok {
			return typeMismatch(field, "duration", v)
		}
		*dst = time.Duration(ms) * time.Millisecond
	}
	return nil
}

// sentinelList 接受 "host:port" 字符串或 {host, port} 结构组成的序列
func sentinelList(v any) ([]string, error) {
	var items []any
	switch list := v.(type) {
	case []string:
		items = make([]any, len(list))
		for i, s := range list {
			items[i] = s
		}
	case []Addr:
		items = make([]any, len(list))
		for i, a := range list {
			items[i] = a
		}
	case []map[string]any:
		items = make([]any, len(list))
		for i, m := range list {
			items[i] = m
		}
	case []any:
		items = list
	default:
		return nil, typeMismatch("sentinels", "sequence", v)
	}

	sentinels := make([]string, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("sentinels[%d]", i)
		switch addr := item.(type) {
		case string:
			parsed, err := ParseAddr(addr)
			if err != nil {
				return nil, errors.InvalidConfigError(field, err.Error())
			}
			sentinels = append(sentinels, parsed.String())
		case Addr:
			sentinels = append(sentinels, addr.String())
		case map[string]any:
			host, ok := addr["host"].(string)
			if !ok {
				return nil, typeMismatch(field+".host", "string", addr["host"])
			}
			port, ok := toInt(addr["port"])
			if !ok {
				return nil, typeMismatch(field+".port", "number", addr["port"])
			}
			sentinels = append(sentinels, Addr{Host: host, Port: port}.String())
		default:
			return nil, typeMismatch(field, "host:port string or {host, port}", item)
		}
	}
	return sentinels, nil
}

// toInt 接受各种整数类型以及整数值的浮点数（JSON 解码结果）
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		if n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}
