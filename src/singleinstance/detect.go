package singleinstance

import (
	"context"
	"net"
	"strconv"
	"time"
)

const maxProbeTimeout = 300 * time.Millisecond

// probeTimeout is the per-port dial budget, shortened when ctx ends sooner.
func probeTimeout(ctx context.Context) time.Duration {
	dl, ok := ctx.Deadline()
	if !ok {
		return maxProbeTimeout
	}
	if left := time.Until(dl); left > 0 {
		return min(left, maxProbeTimeout)
	}
	return maxProbeTimeout
}

// DetectResidentPort walks the port range and reports the first port whose
// listener answers PING with PONG.
func DetectResidentPort(ctx context.Context) (int, bool) {
	timeout := probeTimeout(ctx)
	lo, hi := getPortRange()
	for port := lo; port <= hi && ctx.Err() == nil; port++ {
		if isResident(net.JoinHostPort(residentHost, strconv.Itoa(port)), timeout) {
			return port, true
		}
	}
	return 0, false
}

func isResident(addr string, timeout time.Duration) bool {
	resp, err := roundTrip(addr, pingRequest, timeout)
	return err == nil && resp == pongResponse
}
