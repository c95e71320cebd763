package redis

import (
	"strconv"
)

// 驱动回复的规范化
// go-redis 在 RESP2 与 RESP3 下返回的类型不同（HGETALL 为 []any 或 map[any]any），这里统一处理

func isOK(reply any) bool {
	s, ok := toString(reply)
	return ok && s == "OK"
}

func toString(reply any) (string, bool) {
	switch v := reply.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}

func toInt64(reply any) (int64, bool) {
	switch v := reply.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func toStringSlice(reply any) ([]string, bool) {
	switch v := reply.(type) {
	case nil:
		return []string{}, true
	case []string:
		return v, true
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := toString(item)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func toStringMap(reply any) (map[string]string, bool) {
	switch v := reply.(type) {
	case nil:
		return map[string]string{}, true
	case map[string]string:
		return v, true
	case map[any]any:
		out := make(map[string]string, len(v))
		for k, val := range v {
			ks, ok1 := toString(k)
			vs, ok2 := toString(val)
			if !ok1 || !ok2 {
				return nil, false
			}
			out[ks] = vs
		}
		return out, true
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, val := range v {
			vs, ok := toString(val)
			if !ok {
				return nil, false
			}
			out[k] = vs
		}
		return out, true
	case []any:
		// RESP2：字段与值交替出现
		if len(v)%2 != 0 {
			return nil, false
		}
		out := make(map[string]string, len(v)/2)
		for i := 0; i < len(v); i += 2 {
			ks, ok1 := toString(v[i])
			vs, ok2 := toString(v[i+1])
			if !ok1 || !ok2 {
				return nil, false
			}
			out[ks] = vs
		}
		return out, true
	default:
		return nil, false
	}
}
