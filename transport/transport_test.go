package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAddress(t *testing.T) {
	valid := []string{":9090", "127.0.0.1:9090", "localhost:1", "[::1]:65535", "admin-1.local:8080"}
	for _, addr := range valid {
		assert.True(t, ValidateAddress(addr), addr)
	}

	invalid := []string{"", "9090", ":0", ":65536", "host:port", "-bad:80", "bad_host:80"}
	for _, addr := range invalid {
		assert.False(t, ValidateAddress(addr), addr)
	}
}
