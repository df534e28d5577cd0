package singleinstance

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

// usePort points the configured range at a single free loopback port.
func usePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback unavailable: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	if port < 1024 {
		t.Skipf("ephemeral port %d below clamp range", port)
	}
	t.Setenv("SINGLEINSTANCE_PORT_START", strconv.Itoa(port))
	t.Setenv("SINGLEINSTANCE_PORT_END", strconv.Itoa(port))
	return port
}

func TestServerClientRoundTrip(t *testing.T) {
	port := usePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var triggers atomic.Int32
	srv := NewServer(func() { triggers.Add(1) })
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.Close()
	if srv.Port() != port {
		t.Errorf("Port() = %d, expected %d", srv.Port(), port)
	}

	got, ok := DetectResidentPort(ctx)
	if !ok || got != port {
		t.Fatalf("DetectResidentPort = %d, %v", got, ok)
	}

	delegated, err := NewClient().Trigger(ctx)
	if err != nil || !delegated {
		t.Fatalf("Trigger = %v, %v", delegated, err)
	}
	if triggers.Load() != 1 {
		t.Errorf("onTrigger called %d times", triggers.Load())
	}
}

func TestSecondServerIsRejected(t *testing.T) {
	usePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := NewServer(nil)
	if err := first.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer first.Close()

	err := NewServer(nil).Start(ctx)
	if err == nil {
		t.Fatal("expected second Start to fail")
	}
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Logf("bind failed without EADDRINUSE: %v", err)
	}
}

func TestTriggerWithoutResident(t *testing.T) {
	usePort(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	delegated, err := NewClient().Trigger(ctx)
	if err != nil || delegated {
		t.Fatalf("Trigger = %v, %v; expected no resident", delegated, err)
	}
}

func TestUnknownRequest(t *testing.T) {
	port := usePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := NewServer(func() { t.Error("unexpected trigger") })
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.Close()

	resp, err := roundTrip(net.JoinHostPort(residentHost, strconv.Itoa(port)), "STDOUT\n", time.Second)
	if err != nil {
		t.Fatalf("roundTrip: %v", err)
	}
	if resp != unknownResponse {
		t.Errorf("resp = %q", resp)
	}
}

func TestServerStopsWithContext(t *testing.T) {
	usePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(nil)
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Port() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.Port() != 0 {
		t.Fatal("server still bound after context cancel")
	}
}

func TestPortRangeClamp(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "80")
	t.Setenv("SINGLEINSTANCE_PORT_END", "70000")
	start, end := PortRange()
	if start != 1024 || end != 65535 {
		t.Errorf("PortRange = %d..%d", start, end)
	}
}

func TestPortRangeDefaultsAndSwap(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "not-a-port")
	t.Setenv("SINGLEINSTANCE_PORT_END", "")
	if start, end := PortRange(); start != firstPort || end != lastPort {
		t.Errorf("PortRange = %d..%d, expected defaults", start, end)
	}

	t.Setenv("SINGLEINSTANCE_PORT_START", "50010")
	t.Setenv("SINGLEINSTANCE_PORT_END", "50000")
	if start, end := PortRange(); start != 50000 || end != 50010 {
		t.Errorf("PortRange = %d..%d, expected swapped bounds", start, end)
	}
}

func TestProbeTimeout(t *testing.T) {
	if got := probeTimeout(context.Background()); got != maxProbeTimeout {
		t.Errorf("probeTimeout without deadline = %v", got)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if got := probeTimeout(ctx); got > 50*time.Millisecond || got <= 0 {
		t.Errorf("probeTimeout with 50ms deadline = %v", got)
	}
}
