// Package httpx is a single-threaded HTTP/1.0 file server meant to be driven
// from a UI frame loop: the caller invokes PollOnce once per frame and the
// server handles at most one connection per call.
package httpx

import (
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"

	"media-share-server/mount"
	"media-share-server/utils"
)

const (
	DefaultRecvTimeout  = time.Second
	DefaultWriteTimeout = 5 * time.Second
	DefaultBacklog      = 10

	// acceptGrace bounds Accept after poll reported a pending connection, in
	// case the client went away in between.
	acceptGrace = 50 * time.Millisecond
)

type State int

const (
	StateIdle State = iota
	StateRunning
	StateRestarting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateRestarting:
		return "restarting"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Config struct {
	// Port 0 lets the kernel choose; the chosen port is kept for restarts.
	Port int
	// Iface selects the interface whose address Address reports.
	Iface        string
	RecvTimeout  time.Duration
	WriteTimeout time.Duration
	Backlog      int
	Debug        bool
	Logger       *log.Logger
}

// Server must be driven from a single goroutine: Start, Stop, AddMountPoint
// and PollOnce are not safe for concurrent use.
type Server struct {
	cfg    Config
	port   int
	mounts *mount.Table
	state  State
	ln     *net.TCPListener
	logger *log.Logger
}

func New(cfg Config) *Server {
	if cfg.RecvTimeout <= 0 {
		cfg.RecvTimeout = DefaultRecvTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = DefaultBacklog
	}
	return &Server{
		cfg:    cfg,
		port:   cfg.Port,
		mounts: mount.NewTable(),
		logger: cfg.Logger,
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

func (s *Server) debugf(format string, args ...any) {
	if s.cfg.Debug {
		s.logf(format, args...)
	}
}

// AddMountPoint registers dir as the lowest priority mount point.
func (s *Server) AddMountPoint(dir string) {
	s.mounts.AddDir(dir)
}

// AddFilesystem registers fs as the lowest priority mount point.
func (s *Server) AddFilesystem(name string, fs billy.Filesystem) {
	s.mounts.Add(name, fs)
}

// Mounts exposes the mount table so other fronts can serve the same files.
func (s *Server) Mounts() *mount.Table { return s.mounts }

func (s *Server) State() State { return s.state }

// Port is the configured port, or the bound one once a Port 0 server started.
func (s *Server) Port() int { return s.port }

// Start binds and listens. It is a no-op while running. On failure the server
// stays not running and Start may be retried.
func (s *Server) Start() error {
	if s.state == StateRunning {
		return nil
	}
	ln, err := listenTCP4(s.port, s.cfg.Backlog)
	if err != nil {
		s.logf("failed to start http server: %v", err)
		return err
	}
	s.ln = ln
	s.port = ln.Addr().(*net.TCPAddr).Port
	s.state = StateRunning
	s.logf("http server listening on :%d (%d mount points)", s.port, s.mounts.Len())
	return nil
}

// Stop releases the listening socket. Calling it again is harmless.
func (s *Server) Stop() {
	s.state = StateStopped
	if s.ln == nil {
		return
	}
	if err := shutdownListener(s.ln); err != nil {
		s.debugf("close listener: %v", err)
	}
	s.ln = nil
	s.logf("http server stopped")
}

// PollOnce serves at most one pending connection and reports whether it did.
// It returns at once when no client is waiting.
func (s *Server) PollOnce() bool {
	if s.state != StateRunning {
		return false
	}
	ready, err := pollReadable(s.ln)
	if err != nil {
		s.debugf("poll: %v", err)
		return false
	}
	if !ready {
		return false
	}

	_ = s.ln.SetDeadline(time.Now().Add(acceptGrace))
	conn, err := s.ln.AcceptTCP()
	if err != nil {
		s.acceptFailed(err)
		return false
	}

	id := uuid.NewString()
	s.debugf("[%s] accepted %s", id, conn.RemoteAddr())
	s.serveConn(id, conn)
	if err := conn.Close(); err != nil {
		s.debugf("[%s] close: %v", id, err)
	}
	return true
}

func (s *Server) acceptFailed(err error) {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return
	}
	if isConnAborted(err) {
		// Go's Accept already retries ECONNABORTED, so only an injected error lands here.
		s.restart(err)
		return
	}
	s.debugf("accept: %v", err)
}

// restart moves running -> restarting -> running, rebinding the same port.
// If the rebind fails the server ends up idle.
func (s *Server) restart(cause error) {
	if s.state != StateRunning {
		return
	}
	s.logf("accept failed (%v), restarting listener on port %d", cause, s.port)
	s.state = StateRestarting
	if s.ln != nil {
		_ = shutdownListener(s.ln)
		s.ln = nil
	}
	if err := s.Start(); err != nil {
		s.state = StateIdle
	}
}

// Address formats the URL clients on the LAN should open.
func (s *Server) Address() string {
	var (
		ip  net.IP
		err error
	)
	if s.cfg.Iface != "" {
		ip, err = utils.FirstIPv4Addr(s.cfg.Iface)
	} else {
		ip, err = utils.HostIPv4()
	}
	if err != nil {
		s.debugf("address lookup: %v", err)
		ip = net.IPv4(127, 0, 0, 1)
	}
	return fmt.Sprintf("http://%s:%d/", ip, s.port)
}
