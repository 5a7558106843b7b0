package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marcelocantos/shrun/internal/config"
	"github.com/marcelocantos/shrun/internal/ipc"
	"github.com/marcelocantos/shrun/internal/shell"
)

// TestMain lets the test binary double as the status reporter for the
// shells spawned by ExecuteRequest.
func TestMain(m *testing.M) {
	if len(os.Args) > 2 && os.Args[1] == shell.ReportArg {
		os.Exit(shell.Report(os.Stdout, os.Args[2]))
	}
	os.Exit(m.Run())
}

func requireShell(t *testing.T, name string) string {
	t.Helper()
	p, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not installed", name)
	}
	return p
}

func testServer(t *testing.T, idleTimeout time.Duration) (*Server, net.Listener, string) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Audit.Path = filepath.Join(t.TempDir(), "audit.jsonl")

	// Use /tmp directly for the socket to stay within macOS's 104-char
	// unix socket path limit (t.TempDir() paths can be too long).
	sockDir, err := os.MkdirTemp("", "shrun-test-")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(sockDir) })

	sockPath := filepath.Join(sockDir, "s.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	srv := New(cfg, nil, idleTimeout)
	return srv, ln, sockPath
}

func quietRequest(t *testing.T, sh string, commands ...string) ipc.Request {
	t.Helper()
	yes, no := true, false
	return ipc.Request{
		Commands:     commands,
		Shell:        sh,
		ShowOutput:   &yes,
		ShowCommands: &no,
		Cwd:          t.TempDir(),
	}
}

func sendRequest(t *testing.T, conn net.Conn, req ipc.Request) {
	t.Helper()
	if err := ipc.WriteJSON(conn, ipc.TagRequest, &req); err != nil {
		t.Fatalf("send request: %v", err)
	}
	// No stdin for this request.
	if err := ipc.WriteFrame(conn, ipc.TagStdinEOF, nil); err != nil {
		t.Fatalf("send stdin eof: %v", err)
	}
}

func readUntilExit(t *testing.T, conn net.Conn) (output string, exit ipc.ExitResult) {
	t.Helper()
	var outBuf strings.Builder
	for {
		tag, payload, err := ipc.ReadFrame(conn)
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		switch tag {
		case ipc.TagOutputData, ipc.TagErrorData:
			outBuf.Write(payload)
		case ipc.TagExit:
			if err := json.Unmarshal(payload, &exit); err != nil {
				t.Fatalf("unmarshal exit: %v", err)
			}
			return outBuf.String(), exit
		}
	}
}

func TestServerRunsCommands(t *testing.T) {
	sh := requireShell(t, "sh")
	srv, ln, sockPath := testServer(t, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Serve(ctx, ln)

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sendRequest(t, conn, quietRequest(t, sh, "echo hello world"))
	output, exit := readUntilExit(t, conn)

	if exit.Code != 0 {
		t.Errorf("exit code = %d, want 0 (error: %s)", exit.Code, exit.Error)
	}
	if len(exit.PipeStatus) != 1 || exit.PipeStatus[0] != 0 {
		t.Errorf("pipestatus = %v, want [0]", exit.PipeStatus)
	}
	if !strings.Contains(output, "hello world") {
		t.Errorf("output = %q, want to contain %q", output, "hello world")
	}
}

func TestServerPropagatesFailingStatus(t *testing.T) {
	sh := requireShell(t, "sh")
	srv, ln, sockPath := testServer(t, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Serve(ctx, ln)

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sendRequest(t, conn, quietRequest(t, sh, "sh -c 'exit 9'"))
	_, exit := readUntilExit(t, conn)

	if exit.Code != 9 || exit.Status != 9 {
		t.Errorf("code/status = %d/%d, want 9/9", exit.Code, exit.Status)
	}
	if exit.Error != "" {
		t.Errorf("error = %q, want silent check failure", exit.Error)
	}
}

func TestServerStdinReachesCommands(t *testing.T) {
	sh := requireShell(t, "sh")
	srv, ln, sockPath := testServer(t, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Serve(ctx, ln)

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := ipc.WriteJSON(conn, ipc.TagRequest, quietRequest(t, sh, "tr a-z A-Z")); err != nil {
		t.Fatalf("send request: %v", err)
	}
	if err := ipc.WriteFrame(conn, ipc.TagStdinData, []byte("hello ")); err != nil {
		t.Fatalf("send stdin data: %v", err)
	}
	if err := ipc.WriteFrame(conn, ipc.TagStdinData, []byte("world")); err != nil {
		t.Fatalf("send stdin data: %v", err)
	}
	if err := ipc.WriteFrame(conn, ipc.TagStdinEOF, nil); err != nil {
		t.Fatalf("send stdin eof: %v", err)
	}

	output, exit := readUntilExit(t, conn)
	if exit.Code != 0 {
		t.Errorf("exit code = %d, want 0 (error: %s)", exit.Code, exit.Error)
	}
	if !strings.Contains(output, "HELLO WORLD") {
		t.Errorf("output = %q, want to contain %q", output, "HELLO WORLD")
	}
}

func TestServerSignalCancelsRequest(t *testing.T) {
	sh := requireShell(t, "sh")
	srv, ln, sockPath := testServer(t, 30*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Serve(ctx, ln)

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := ipc.WriteJSON(conn, ipc.TagRequest, quietRequest(t, sh, "sleep 30")); err != nil {
		t.Fatalf("send request: %v", err)
	}

	// Give the server a moment to start the shell.
	time.Sleep(100 * time.Millisecond)

	if err := ipc.WriteJSON(conn, ipc.TagSignal, ipc.SignalMsg{Signal: "INT"}); err != nil {
		t.Fatalf("send signal: %v", err)
	}

	// Should complete (not hang).
	done := make(chan struct{})
	go func() {
		readUntilExit(t, conn)
		close(done)
	}()

	select {
	case <-done:
		// OK
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for exit after signal")
	}
}

func TestServerConcurrentConnections(t *testing.T) {
	sh := requireShell(t, "sh")
	srv, ln, sockPath := testServer(t, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Serve(ctx, ln)

	const n = 5
	var wg sync.WaitGroup
	wg.Add(n)

	for i := range n {
		go func() {
			defer wg.Done()

			conn, err := net.Dial("unix", sockPath)
			if err != nil {
				t.Errorf("dial %d: %v", i, err)
				return
			}
			defer conn.Close()

			msg := fmt.Sprintf("msg-%d", i)
			sendRequest(t, conn, quietRequest(t, sh, "echo "+msg))
			output, exit := readUntilExit(t, conn)

			if exit.Code != 0 {
				t.Errorf("conn %d: exit code = %d, want 0", i, exit.Code)
			}
			if !strings.Contains(output, msg) {
				t.Errorf("conn %d: output = %q, want to contain %q", i, output, msg)
			}
		}()
	}

	wg.Wait()
}

func TestServerIdleTimeout(t *testing.T) {
	srv, ln, _ := testServer(t, 100*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(context.Background(), ln)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for idle shutdown")
	}
}

func TestServerInvalidFirstFrame(t *testing.T) {
	srv, ln, sockPath := testServer(t, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Serve(ctx, ln)

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := ipc.WriteFrame(conn, ipc.TagStdinData, []byte("bogus")); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, exit := readUntilExit(t, conn)
	if exit.Code != 2 {
		t.Errorf("exit code = %d, want 2", exit.Code)
	}
	if exit.Error == "" {
		t.Error("expected non-empty error in exit result")
	}
}

func TestCleanStaleSocket(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "test.sock")

	// No socket — should be a no-op.
	if err := cleanStaleSocket(sockPath); err != nil {
		t.Fatalf("no socket: %v", err)
	}

	// Create a stale socket file (just a regular file, nobody listening).
	if err := os.WriteFile(sockPath, nil, 0600); err != nil {
		t.Fatalf("create fake socket: %v", err)
	}

	if err := cleanStaleSocket(sockPath); err != nil {
		t.Fatalf("stale socket: %v", err)
	}

	if _, err := os.Stat(sockPath); !os.IsNotExist(err) {
		t.Error("stale socket should have been removed")
	}
}

func TestCleanStaleSocketLiveDaemon(t *testing.T) {
	dir, err := os.MkdirTemp("", "shrun-test-")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	sockPath := filepath.Join(dir, "s.sock")

	// Start a real listener so the socket is active.
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	err = cleanStaleSocket(sockPath)
	if err == nil {
		t.Fatal("expected error for live socket, got nil")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Errorf("error = %q, want to contain 'already running'", err.Error())
	}
}
