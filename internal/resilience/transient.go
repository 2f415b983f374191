package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// IsTransient reports whether err is worth retrying: network timeouts,
// refused or reset connections, DNS blips, and a Postgres server that is
// still starting up. Auth failures, bad URLs, and protocol errors are
// permanent and fail on the first attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// Drivers often flatten the syscall error into the message.
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset by peer",
		"broken pipe",
		"i/o timeout",
		"no such host",
		"temporary failure in name resolution",
		"the database system is starting up",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
