package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/marcelocantos/shrun/internal/audit"
	"github.com/marcelocantos/shrun/internal/cli"
	"github.com/marcelocantos/shrun/internal/config"
	"github.com/marcelocantos/shrun/internal/ipc"
)

// Server is the persistent daemon process that accepts IPC connections
// and executes command lists on behalf of CLI clients.
type Server struct {
	cfg         *config.Config
	logger      *audit.Logger
	idleTimeout time.Duration

	mu        sync.Mutex
	idleTimer *time.Timer
	active    sync.WaitGroup
}

// New creates a daemon server.
func New(cfg *config.Config, logger *audit.Logger, idleTimeout time.Duration) *Server {
	return &Server{
		cfg:         cfg,
		logger:      logger,
		idleTimeout: idleTimeout,
	}
}

// Run creates a listener at the standard socket path and calls Serve.
func (s *Server) Run(ctx context.Context) error {
	sockPath, err := ipc.SocketPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(sockPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}

	if err := cleanStaleSocket(sockPath); err != nil {
		return err
	}

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	if err := os.Chmod(sockPath, 0600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	if err := writePidFile(); err != nil {
		ln.Close()
		return fmt.Errorf("write pid: %w", err)
	}

	defer func() {
		os.Remove(sockPath)
		if pidPath, err := ipc.PidPath(); err == nil {
			os.Remove(pidPath)
		}
	}()

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or the idle timer
// fires. The listener is closed on return. Exported so tests can pass a
// listener on a temp socket.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	// Idle timer cancels idleCtx when no connections arrive for idleTimeout.
	idleCtx, idleCancel := context.WithCancel(ctx)
	defer idleCancel()

	s.mu.Lock()
	s.idleTimer = time.AfterFunc(s.idleTimeout, idleCancel)
	s.mu.Unlock()

	// Close the listener when the context is done (idle or parent cancel).
	go func() {
		<-idleCtx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			// Check if this is a clean shutdown.
			select {
			case <-idleCtx.Done():
				s.active.Wait()
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		s.resetIdle()

		s.active.Add(1)
		go func() {
			defer s.active.Done()
			defer conn.Close()
			defer s.resetIdle()
			s.handleConnection(idleCtx, conn)
		}()
	}
}

func (s *Server) resetIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Reset(s.idleTimeout)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	tag, payload, err := ipc.ReadFrame(conn)
	if err != nil {
		writeExit(conn, fmt.Sprintf("read request: %v", err))
		return
	}
	if tag != ipc.TagRequest {
		writeExit(conn, fmt.Sprintf("expected request frame (0x%02x), got 0x%02x", ipc.TagRequest, tag))
		return
	}

	var req ipc.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		writeExit(conn, fmt.Sprintf("unmarshal request: %v", err))
		return
	}

	// Per-request context with cancellation for signal handling.
	reqCtx, reqCancel := context.WithCancel(ctx)
	defer reqCancel()

	// Stdin pipe: the demux goroutine writes to it, the child shell reads
	// from it.
	stdinR, stdinW := io.Pipe()

	// Demux goroutine: reads stdin data, stdin EOF, and signal frames.
	go func() {
		defer stdinW.Close()
		for {
			t, p, err := ipc.ReadFrame(conn)
			if err != nil {
				return
			}
			switch t {
			case ipc.TagStdinData:
				if _, err := stdinW.Write(p); err != nil {
					return
				}
			case ipc.TagStdinEOF:
				return
			case ipc.TagSignal:
				var sig ipc.SignalMsg
				if json.Unmarshal(p, &sig) == nil && sig.Signal == "INT" {
					reqCancel()
				}
			}
		}
	}()

	// The shell's merged stdout/stderr stream and the exit frame share the
	// connection; the mutex keeps frame bytes from interleaving.
	var connMu sync.Mutex
	outW := newFrameWriter(conn, &connMu, ipc.TagOutputData)

	result := cli.ExecuteRequest(reqCtx, s.cfg, s.logger, &req, stdinR, outW)

	connMu.Lock()
	defer connMu.Unlock()
	ipc.WriteJSON(conn, ipc.TagExit, result)
}

func writeExit(conn net.Conn, msg string) {
	ipc.WriteJSON(conn, ipc.TagExit, ipc.ExitResult{Code: 2, Error: msg})
}
