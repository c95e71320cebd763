package redis

import (
	"errors"

	"github.com/redis/go-redis/v9"

	kerrors "github.com/kochabx/rediskit/errors"
)

// 错误定义
// 目录错误按错误码比较，可直接用于 errors.Is
var (
	// ErrSendCommand 命令执行失败
	ErrSendCommand = kerrors.New(kerrors.SendCommandError, "%s", kerrors.Name(kerrors.SendCommandError))

	// ErrNotConnected 客户端已关闭或连接失败
	ErrNotConnected = kerrors.New(kerrors.NotConnected, "%s", kerrors.Name(kerrors.NotConnected))

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = kerrors.New(kerrors.InvalidConfig, "%s", kerrors.Name(kerrors.InvalidConfig))

	// ErrDriverClosed 驱动已断开，与 go-redis 的关闭错误一致
	ErrDriverClosed = redis.ErrClosed

	// ErrUnexpectedReply 驱动返回了无法识别的结果类型
	ErrUnexpectedReply = errors.New("redis: unexpected reply type")

	// ErrNilDriver 未提供驱动
	ErrNilDriver = errors.New("redis: driver is nil")
)
