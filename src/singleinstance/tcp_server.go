package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"syscall"
	"time"
)

// tcpServer implements Server over TCP loopback.
type tcpServer struct {
	mu        sync.Mutex
	lis       net.Listener
	port      int
	onTrigger func()
}

func newTcpServer(onTrigger func()) *tcpServer { return &tcpServer{onTrigger: onTrigger} }

// Start binds ONLY the start port of the configured range. If occupied, fail.
func (s *tcpServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}
	start, _ := getPortRange()
	addr := fmt.Sprintf("%s:%d", residentHost, start)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("singleinstance: failed to bind %s: %v", addr, err)
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%w (port %d)", ErrAlreadyRunning, start)
		}
		return err
	}
	s.lis = lis
	s.port = start
	log.Printf("singleinstance: listening on %s", addr)

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()
	go s.acceptLoop(lis)
	return nil
}

// Port returns the bound port (0 if not started).
func (s *tcpServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

func (s *tcpServer) acceptLoop(lis net.Listener) {
	for {
		c, err := lis.Accept()
		if err != nil {
			return
		}
		go s.serve(c)
	}
}

func (s *tcpServer) serve(c net.Conn) {
	defer c.Close()
	remote := c.RemoteAddr().String()
	_ = c.SetDeadline(time.Now().Add(3 * time.Second))

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("singleinstance: read from %s: %v", remote, err)
		return
	}

	var resp string
	switch line {
	case pingRequest:
		resp = pongResponse
	case triggerRequest:
		log.Printf("singleinstance: TRIGGER from %s", remote)
		if s.onTrigger != nil {
			s.onTrigger()
		}
		resp = okResponse
	default:
		log.Printf("singleinstance: unknown request %q from %s", line, remote)
		resp = unknownResponse
	}
	_, _ = c.Write([]byte(resp))
}

func (s *tcpServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	err := s.lis.Close()
	s.lis = nil
	s.port = 0
	return err
}
