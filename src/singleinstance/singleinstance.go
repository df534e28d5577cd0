// Package singleinstance keeps one resident per user session. The resident
// listens on a loopback TCP port; later invocations find it there and either
// give up or ask it to open the capture overlay.
package singleinstance

import (
	"context"
	"errors"
)

// ErrAlreadyRunning is returned by Server.Start when another resident owns
// the port.
var ErrAlreadyRunning = errors.New("another instance is already running")

const (
	residentHost = "127.0.0.1"

	pingRequest     = "PING\n"
	pongResponse    = "PONG\n"
	triggerRequest  = "TRIGGER\n"
	okResponse      = "OK\n"
	unknownResponse = "ERR unknown command\n"
)

// Server is the resident's endpoint.
type Server interface {
	// Start binds the first port of the configured range and serves clients
	// until ctx is done or Close is called.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	Close() error
}

// Client talks to a running resident.
type Client interface {
	// Trigger asks the resident to open the capture overlay. It reports
	// false with a nil error when no resident is found.
	Trigger(ctx context.Context) (bool, error)
}

// NewServer returns a TCP server that calls onTrigger for every TRIGGER
// request. onTrigger runs on the connection goroutine and must not block.
func NewServer(onTrigger func()) Server { return newTcpServer(onTrigger) }

func NewClient() Client { return newTcpClient() }
