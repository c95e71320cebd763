package transport

import (
	"context"
	"net"
	"strconv"
)

// Server 由 app.Application 管理生命周期的服务器
type Server interface {
	// Run 启动并阻塞直到停止
	Run() error
	// Shutdown 优雅关闭
	Shutdown(context.Context) error
}

// ValidateAddress 检查监听地址，host 可以为空（监听所有地址）
func ValidateAddress(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return false
	}
	if host != "" && net.ParseIP(host) == nil && !isHostname(host) {
		return false
	}

	p, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return p >= 1 && p <= 65535
}

func isHostname(host string) bool {
	if len(host) > 253 {
		return false
	}
	for i, r := range host {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.':
		case r == '-':
			if i == 0 || i == len(host)-1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
