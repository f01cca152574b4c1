package mpv

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	socketWaitRetries = 20
	socketWaitDelay   = 100 * time.Millisecond
)

// Launcher starts a player process and connects to its IPC socket. The
// returned closer terminates the process.
type Launcher interface {
	Launch(ctx context.Context) (net.Conn, io.Closer, error)
}

// ProcessLauncher spawns an idle, audio-only mpv.
type ProcessLauncher struct {
	Path      string
	ExtraArgs []string
}

type process struct {
	cmd    *exec.Cmd
	exited chan struct{}
	socket string
}

func (p *process) Close() error {
	select {
	case <-p.exited:
	default:
		_ = killProcess(p.cmd)
		<-p.exited
	}
	_ = os.Remove(p.socket)
	return nil
}

func (l ProcessLauncher) Launch(ctx context.Context) (net.Conn, io.Closer, error) {
	path := l.Path
	if path == "" {
		path = "mpv"
	}
	random := make([]byte, 4)
	if _, err := rand.Read(random); err != nil {
		return nil, nil, fmt.Errorf("generate socket name: %w", err)
	}
	socket := filepath.Join(os.TempDir(), fmt.Sprintf("riptide-%x.sock", random))

	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--idle=yes",
		"--no-video",
		"--pause",
		"--input-ipc-server=" + socket,
	}
	args = append(args, l.ExtraArgs...)

	cmd := exec.Command(path, args...)
	cmd.SysProcAttr = sysProcAttr()
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start mpv: %w", err)
	}
	p := &process{cmd: cmd, exited: make(chan struct{}), socket: socket}
	go func() {
		_ = cmd.Wait()
		close(p.exited)
	}()

	conn, err := p.waitForSocket(ctx)
	if err != nil {
		_ = p.Close()
		return nil, nil, fmt.Errorf("mpv socket not ready: %w", err)
	}
	return conn, p, nil
}

// waitForSocket polls until the IPC socket accepts a connection.
func (p *process) waitForSocket(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	for range socketWaitRetries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.exited:
			return nil, fmt.Errorf("mpv exited before socket was ready")
		case <-time.After(socketWaitDelay):
		}
		conn, err := d.DialContext(ctx, "unix", p.socket)
		if err == nil {
			return conn, nil
		}
	}
	return nil, fmt.Errorf("socket %s not ready after %d attempts", p.socket, socketWaitRetries)
}
