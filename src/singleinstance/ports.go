package singleinstance

import (
	"os"
	"strconv"
)

const (
	portStartEnv = "SINGLEINSTANCE_PORT_START"
	portEndEnv   = "SINGLEINSTANCE_PORT_END"

	firstPort = 49500
	lastPort  = 49550

	minUserPort = 1024
	maxPort     = 65535
)

// envPort reads an integer port from key, keeping fallback when the variable
// is missing or malformed.
func envPort(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

// getPortRange is the inclusive range the resident binds from and the
// detector scans, clamped to unprivileged ports.
func getPortRange() (int, int) {
	lo := max(envPort(portStartEnv, firstPort), minUserPort)
	hi := min(envPort(portEndEnv, lastPort), maxPort)
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo, hi
}

// PortRange reports the effective range.
func PortRange() (int, int) { return getPortRange() }
