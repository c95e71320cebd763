package errors

import (
	"fmt"
	"slices"
)

// Catalog codes. All codes are negative and unique.
const (
	UnknownError     = -2600
	SendCommandError = -2610
	NotConnected     = -2620
	InvalidConfig    = -2630
)

type entry struct {
	name     string
	template string
}

// catalog is filled once at init and never written afterwards.
var catalog map[int]entry

func init() {
	catalog = map[int]entry{
		UnknownError:     {"UNKNOWN_ERROR", "Unknown error"},
		SendCommandError: {"SEND_COMMAND_ERROR", "Send command error, command: %s, key: %s, error: %s"},
		NotConnected:     {"NOT_CONNECTED", "Not connected, command: %s, key: %s"},
		InvalidConfig:    {"INVALID_CONFIG", "Invalid config, field: %s, reason: %s"},
	}
}

// Template returns the message template registered for code, or "" if unknown.
func Template(code int) string {
	return catalog[code].template
}

// Name returns the catalog name of code (e.g. SEND_COMMAND_ERROR), or "" if unknown.
func Name(code int) string {
	return catalog[code].name
}

// Format renders the template of code with args.
func Format(code int, args ...any) string {
	e, ok := catalog[code]
	if !ok {
		return catalog[UnknownError].template
	}
	if len(args) == 0 {
		return e.template
	}
	return fmt.Sprintf(e.template, args...)
}

// Codes returns every catalog code in ascending order.
func Codes() []int {
	codes := make([]int, 0, len(catalog))
	for code := range catalog {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// SendCommand reports a driver failure while executing command against key.
func SendCommand(command, key string, cause error) *Error {
	return NewWithMetadata(SendCommandError,
		map[string]string{"command": command, "key": key},
		"%s", Format(SendCommandError, command, key, cause),
	).WithCause(cause)
}

// NotConnectedError reports a command issued outside the open state.
func NotConnectedError(command, key string) *Error {
	return NewWithMetadata(NotConnected,
		map[string]string{"command": command, "key": key},
		"%s", Format(NotConnected, command, key),
	)
}

// InvalidConfigError reports a configuration field that failed validation.
func InvalidConfigError(field, reason string) *Error {
	return NewWithMetadata(InvalidConfig,
		map[string]string{"field": field},
		"%s", Format(InvalidConfig, field, reason),
	)
}
