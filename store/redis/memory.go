package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// 与 Redis 服务端一致的错误文本
var (
	errWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	errSyntax    = errors.New("ERR syntax error")
	errNotInt    = errors.New("ERR value is not an integer or out of range")
)

func errArgs(cmd string) error {
	return fmt.Errorf("ERR wrong number of arguments for '%s' command", cmd)
}

type memKind int

const (
	kindString memKind = iota
	kindHash
	kindList
)

type memEntry struct {
	kind     memKind
	str      string
	hash     map[string]string
	list     []string
	expireAt time.Time // 零值表示永不过期
}

// MemoryDriver 内存实现的驱动，覆盖客户端用到的命令子集
// 过期在访问时惰性检查；支持故障注入，便于测试错误路径
type MemoryDriver struct {
	mu        sync.Mutex
	data      map[string]*memEntry
	connected bool
	closed    bool
	now       func() time.Time

	failNext error
	failCmds map[string]error

	errs errorHandlers
}

var _ Driver = (*MemoryDriver)(nil)

// NewMemoryDriver 创建空的内存驱动
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		data:     make(map[string]*memEntry),
		now:      time.Now,
		failCmds: make(map[string]error),
	}
}

// SetClock 替换时间源，用于测试过期
func (m *MemoryDriver) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// FailNext 让下一条命令返回 err
func (m *MemoryDriver) FailNext(err error) {
	m.mu.Lock()
	m.failNext = err
	m.mu.Unlock()
}

// FailCommand 让命令 name 持续返回 err，err 为 nil 时恢复
func (m *MemoryDriver) FailCommand(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = strings.ToLower(name)
	if err == nil {
		delete(m.failCmds, name)
		return
	}
	m.failCmds[name] = err
}

// EmitError 模拟一次连接级错误
func (m *MemoryDriver) EmitError(err error) {
	m.errs.emit(err)
}

// Connected 是否已连接
func (m *MemoryDriver) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MemoryDriver) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrDriverClosed
	}
	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}
	m.connected = true
	return nil
}

func (m *MemoryDriver) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = false
	m.closed = true
	return nil
}

func (m *MemoryDriver) OnError(handler func(error)) {
	m.errs.add(handler)
}

func (m *MemoryDriver) Do(ctx context.Context, args ...any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, errors.New("ERR empty command")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrDriverClosed
	}
	// 与 go-redis 一致：第一条命令时建立连接
	m.connected = true

	name := strings.ToLower(argString(args[0]))
	if err := m.failNext; err != nil {
		m.failNext = nil
		return nil, err
	}
	if err, ok := m.failCmds[name]; ok {
		return nil, err
	}

	strs := appendArgs(nil, args[1:])

	switch name {
	case "ping":
		return "PONG", nil
	case "set":
		return m.set(strs)
	case "get":
		return m.get(strs)
	case "hset":
		return m.hset(strs)
	case "hget":
		return m.hget(strs)
	case "hgetall":
		return m.hgetall(strs)
	case "hdel":
		return m.hdel(strs)
	case "lpush":
		return m.lpush(strs)
	case "ltrim":
		return m.ltrim(strs)
	case "lrange":
		return m.lrange(strs)
	case "del":
		return m.del(strs)
	default:
		return nil, fmt.Errorf("ERR unknown command '%s'", name)
	}
}

// appendArgs 与 go-redis 一样展开切片与 map 参数
func appendArgs(dst []string, args []any) []string {
	for _, arg := range args {
		switch v := arg.(type) {
		case []string:
			dst = append(dst, v...)
		case []any:
			dst = appendArgs(dst, v)
		case map[string]any:
			for k, val := range v {
				dst = append(dst, k, argString(val))
			}
		case map[string]string:
			for k, val := range v {
				dst = append(dst, k, val)
			}
		default:
			dst = append(dst, argString(v))
		}
	}
	return dst
}

// argString 与 go-redis 的参数编码保持一致
func argString(v any) string {
	switch a := v.(type) {
	case string:
		return a
	case []byte:
		return string(a)
	case int:
		return strconv.Itoa(a)
	case int64:
		return strconv.FormatInt(a, 10)
	case float64:
		return strconv.FormatFloat(a, 'f', -1, 64)
	case bool:
		if a {
			return "1"
		}
		return "0"
	case time.Duration:
		return strconv.FormatInt(a.Nanoseconds(), 10)
	default:
		return fmt.Sprint(a)
	}
}

// lookup 返回未过期的 entry，已过期的会被删除
func (m *MemoryDriver) lookup(key string) *memEntry {
	e, ok := m.data[key]
	if !ok {
		return nil
	}
	if !e.expireAt.IsZero() && !m.now().Before(e.expireAt) {
		delete(m.data, key)
		return nil
	}
	return e
}

func (m *MemoryDriver) lookupKind(key string, kind memKind) (*memEntry, error) {
	e := m.lookup(key)
	if e != nil && e.kind != kind {
		return nil, errWrongType
	}
	return e, nil
}

// SET key value [EX s | PX ms | EXAT ts | PXAT ts | KEEPTTL] [NX | XX] [GET]
func (m *MemoryDriver) set(args []string) (any, error) {
	if len(args) < 2 {
		return nil, errArgs("set")
	}
	key, value := args[0], args[1]

	var (
		expireAt      time.Time
		keepTTL       bool
		nx, xx, get   bool
		expirySetting bool
	)
	for i := 2; i < len(args); i++ {
		opt := strings.ToUpper(args[i])
		switch opt {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "GET":
			get = true
		case "KEEPTTL":
			if expirySetting {
				return nil, errSyntax
			}
			keepTTL, expirySetting = true, true
		case "EX", "PX", "EXAT", "PXAT":
			if expirySetting || i+1 >= len(args) {
				return nil, errSyntax
			}
			i++
			n, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil {
				return nil, errNotInt
			}
			if n <= 0 {
				return nil, errors.New("ERR invalid expire time in 'set' command")
			}
			expirySetting = true
			switch opt {
			case "EX":
				expireAt = m.now().Add(time.Duration(n) * time.Second)
			case "PX":
				expireAt = m.now().Add(time.Duration(n) * time.Millisecond)
			case "EXAT":
				expireAt = time.Unix(n, 0)
			case "PXAT":
				expireAt = time.UnixMilli(n)
			}
		default:
			return nil, errSyntax
		}
	}
	if nx && xx {
		return nil, errSyntax
	}

	old := m.lookup(key)
	var prev any
	if get && old != nil {
		if old.kind != kindString {
			return nil, errWrongType
		}
		prev = old.str
	}

	if (nx && old != nil) || (xx && old == nil) {
		if get {
			return prev, nil
		}
		return nil, nil
	}

	entry := &memEntry{kind: kindString, str: value, expireAt: expireAt}
	if keepTTL && old != nil {
		entry.expireAt = old.expireAt
	}
	m.data[key] = entry

	if get {
		return prev, nil
	}
	return "OK", nil
}

func (m *MemoryDriver) get(args []string) (any, error) {
	if len(args) != 1 {
		return nil, errArgs("get")
	}
	e, err := m.lookupKind(args[0], kindString)
	if err != nil || e == nil {
		return nil, err
	}
	return e.str, nil
}

func (m *MemoryDriver) hset(args []string) (any, error) {
	if len(args) < 3 || len(args)%2 != 1 {
		return nil, errArgs("hset")
	}
	e, err := m.lookupKind(args[0], kindHash)
	if err != nil {
		return nil, err
	}
	if e == nil {
		e = &memEntry{kind: kindHash, hash: make(map[string]string)}
		m.data[args[0]] = e
	}

	var created int64
	for i := 1; i < len(args); i += 2 {
		if _, ok := e.hash[args[i]]; !ok {
			created++
		}
		e.hash[args[i]] = args[i+1]
	}
	return created, nil
}

func (m *MemoryDriver) hget(args []string) (any, error) {
	if len(args) != 2 {
		return nil, errArgs("hget")
	}
	e, err := m.lookupKind(args[0], kindHash)
	if err != nil || e == nil {
		return nil, err
	}
	v, ok := e.hash[args[1]]
	if !ok {
		return nil, nil
	}
	return v, nil
}

// hgetall 返回 RESP3 风格的 map，与 go-redis 默认协议一致
func (m *MemoryDriver) hgetall(args []string) (any, error) {
	if len(args) != 1 {
		return nil, errArgs("hgetall")
	}
	e, err := m.lookupKind(args[0], kindHash)
	if err != nil {
		return nil, err
	}
	res := make(map[any]any)
	if e == nil {
		return res, nil
	}
	for f, v := range e.hash {
		res[f] = v
	}
	return res, nil
}

func (m *MemoryDriver) hdel(args []string) (any, error) {
	if len(args) < 2 {
		return nil, errArgs("hdel")
	}
	e, err := m.lookupKind(args[0], kindHash)
	if err != nil || e == nil {
		return int64(0), err
	}

	var deleted int64
	for _, f := range args[1:] {
		if _, ok := e.hash[f]; ok {
			delete(e.hash, f)
			deleted++
		}
	}
	if len(e.hash) == 0 {
		delete(m.data, args[0])
	}
	return deleted, nil
}

func (m *MemoryDriver) lpush(args []string) (any, error) {
	if len(args) < 2 {
		return nil, errArgs("lpush")
	}
	e, err := m.lookupKind(args[0], kindList)
	if err != nil {
		return nil, err
	}
	if e == nil {
		e = &memEntry{kind: kindList}
		m.data[args[0]] = e
	}

	values := args[1:]
	list := make([]string, 0, len(values)+len(e.list))
	for i := len(values) - 1; i >= 0; i-- {
		list = append(list, values[i])
	}
	e.list = append(list, e.list...)
	return int64(len(e.list)), nil
}

func (m *MemoryDriver) ltrim(args []string) (any, error) {
	if len(args) != 3 {
		return nil, errArgs("ltrim")
	}
	start, stop, err := parseRange(args[1], args[2])
	if err != nil {
		return nil, err
	}
	e, err := m.lookupKind(args[0], kindList)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return "OK", nil
	}

	lo, hi, ok := normalizeRange(start, stop, int64(len(e.list)))
	if !ok {
		delete(m.data, args[0])
		return "OK", nil
	}
	e.list = append([]string(nil), e.list[lo:hi+1]...)
	return "OK", nil
}

func (m *MemoryDriver) lrange(args []string) (any, error) {
	if len(args) != 3 {
		return nil, errArgs("lrange")
	}
	start, stop, err := parseRange(args[1], args[2])
	if err != nil {
		return nil, err
	}
	e, err := m.lookupKind(args[0], kindList)
	if err != nil {
		return nil, err
	}

	res := []any{}
	if e == nil {
		return res, nil
	}
	lo, hi, ok := normalizeRange(start, stop, int64(len(e.list)))
	if !ok {
		return res, nil
	}
	for _, v := range e.list[lo : hi+1] {
		res = append(res, v)
	}
	return res, nil
}

func (m *MemoryDriver) del(args []string) (any, error) {
	if len(args) < 1 {
		return nil, errArgs("del")
	}
	var deleted int64
	for _, key := range args {
		if m.lookup(key) != nil {
			delete(m.data, key)
			deleted++
		}
	}
	return deleted, nil
}

func parseRange(startStr, stopStr string) (int64, int64, error) {
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return 0, 0, errNotInt
	}
	stop, err := strconv.ParseInt(stopStr, 10, 64)
	if err != nil {
		return 0, 0, errNotInt
	}
	return start, stop, nil
}

// normalizeRange 按 Redis 规则处理负下标与越界，返回闭区间
func normalizeRange(start, stop, n int64) (int64, int64, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}
