// Package supervisor owns the single application instance of the active
// deployment: it resolves the entrypoint inside an artifact directory, runs
// it as a child process serving HTTP over a unix domain socket, binds the
// deployment's TCP port itself and fronts the child with a reverse proxy.
//
// Keeping the port bind in the supervisor makes bind failures observable as
// their own step and guarantees the port is released the moment the frontend
// listener closes, independent of how fast the child dies.
package supervisor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/slipway-sh/slipway/internal/logger"
	"github.com/slipway-sh/slipway/pkg/deploy"
)

const checkInterval = 100 * time.Millisecond

// Config controls instance startup and shutdown behavior.
type Config struct {
	// ReadyTimeout is how long a started process has to begin accepting
	// connections on its socket before the start is declared failed.
	ReadyTimeout time.Duration

	// StopGracePeriod is how long a SIGTERM'd process has to exit before it
	// is killed.
	StopGracePeriod time.Duration

	// SocketDir is the directory unix sockets are created in. Defaults to
	// the system temp directory.
	SocketDir string
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ReadyTimeout:    10 * time.Second,
		StopGracePeriod: 5 * time.Second,
		SocketDir:       os.TempDir(),
	}
}

// instance is one running application process and its frontend.
type instance struct {
	desc       *deploy.Descriptor
	cmd        *exec.Cmd
	socketPath string
	frontend   *http.Server

	stopping atomic.Bool
	exited   chan struct{}
}

// Supervisor runs at most one application instance at a time.
// Start and Stop are safe for concurrent use.
type Supervisor struct {
	root string
	cfg  Config

	mtx  sync.Mutex
	inst *instance
}

// New creates a Supervisor for artifacts materialized under root.
func New(root string, cfg Config) *Supervisor {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultConfig().ReadyTimeout
	}
	if cfg.StopGracePeriod <= 0 {
		cfg.StopGracePeriod = DefaultConfig().StopGracePeriod
	}
	if cfg.SocketDir == "" {
		cfg.SocketDir = os.TempDir()
	}
	return &Supervisor{root: root, cfg: cfg}
}

// Running reports whether an instance is currently running.
func (s *Supervisor) Running() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.inst != nil
}

// Pid returns the process ID of the running instance, or 0 when none is
// running.
func (s *Supervisor) Pid() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.inst == nil || s.inst.cmd.Process == nil {
		return 0
	}
	return s.inst.cmd.Process.Pid
}

// Start launches the instance described by desc and returns once it is
// serving traffic. Returns ErrRunning if an instance is already running,
// ErrEntrypointNotFound if the entrypoint does not resolve to an executable,
// ErrAppLoad if the process exits or does not become ready in time, and
// ErrBind if the deployment port cannot be bound.
func (s *Supervisor) Start(ctx context.Context, desc *deploy.Descriptor) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.inst != nil {
		return ErrRunning
	}

	dir := filepath.Join(s.root, desc.Version)
	entry, err := resolveEntrypoint(dir, desc.Entrypoint)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.cfg.SocketDir, 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}
	socketPath := filepath.Join(s.cfg.SocketDir, "slipway-"+desc.Version+".sock")
	// A stale socket from a previous run of the same version would make the
	// readiness probe succeed before the new process is up.
	_ = os.Remove(socketPath)

	cmd := exec.Command(entry)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"SLIPWAY_SOCKET="+socketPath,
		"SLIPWAY_VERSION="+desc.Version,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrAppLoad, err)
	}

	inst := &instance{
		desc:       desc.Clone(),
		cmd:        cmd,
		socketPath: socketPath,
		exited:     make(chan struct{}),
	}
	go s.monitor(inst)

	logger.InfoCtx(ctx, "instance process started",
		"version", desc.Version, "pid", cmd.Process.Pid, "entrypoint", desc.Entrypoint)

	if err := s.waitReady(ctx, inst); err != nil {
		s.kill(inst)
		return err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", desc.Port))
	if err != nil {
		s.kill(inst)
		return fmt.Errorf("%w %d: %v", ErrBind, desc.Port, err)
	}

	inst.frontend = &http.Server{Handler: newProxy(socketPath)}
	go func() {
		if err := inst.frontend.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("instance frontend stopped", "version", inst.desc.Version, "error", err)
		}
	}()

	s.inst = inst
	logger.InfoCtx(ctx, "instance serving",
		"version", desc.Version, "port", desc.Port, "pid", cmd.Process.Pid)
	return nil
}

// Stop terminates the running instance. The frontend listener is closed
// first so the port is released before the process is signalled. Stopping
// when no instance is running is a no-op.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	inst := s.inst
	if inst == nil {
		return nil
	}
	s.inst = nil

	logger.InfoCtx(ctx, "stopping instance",
		"version", inst.desc.Version, "pid", inst.cmd.Process.Pid)

	inst.stopping.Store(true)
	if inst.frontend != nil {
		_ = inst.frontend.Close()
	}

	defer func() { _ = os.Remove(inst.socketPath) }()

	select {
	case <-inst.exited:
		// Already gone, nothing to signal.
		return nil
	default:
	}

	if err := inst.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		logger.WarnCtx(ctx, "failed to signal instance",
			"pid", inst.cmd.Process.Pid, "signal", "SIGTERM", "error", err)
	}

	select {
	case <-inst.exited:
		return nil
	case <-time.After(s.cfg.StopGracePeriod):
	case <-ctx.Done():
	}

	logger.WarnCtx(ctx, "instance did not exit within grace period, killing",
		"version", inst.desc.Version, "pid", inst.cmd.Process.Pid)
	if err := inst.cmd.Process.Kill(); err != nil {
		logger.WarnCtx(ctx, "failed to kill instance",
			"pid", inst.cmd.Process.Pid, "error", err)
	}

	select {
	case <-inst.exited:
		return nil
	case <-time.After(s.cfg.StopGracePeriod):
		return fmt.Errorf("instance pid %d did not exit after SIGKILL", inst.cmd.Process.Pid)
	}
}

// monitor reaps the process and flags unexpected exits.
func (s *Supervisor) monitor(inst *instance) {
	err := inst.cmd.Wait()
	if !inst.stopping.Load() {
		logger.Error("instance exited unexpectedly",
			"version", inst.desc.Version, "error", err)
	}
	close(inst.exited)
}

// waitReady blocks until the instance's socket accepts a connection, the
// process exits early, the ready timeout elapses or ctx is cancelled.
func (s *Supervisor) waitReady(ctx context.Context, inst *instance) error {
	timer := time.NewTimer(s.cfg.ReadyTimeout)
	defer timer.Stop()

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		conn, err := net.DialTimeout("unix", inst.socketPath, checkInterval)
		if err == nil {
			_ = conn.Close()
			return nil
		}

		select {
		case <-inst.exited:
			return fmt.Errorf("%w: process exited before becoming ready", ErrAppLoad)
		case <-timer.C:
			return fmt.Errorf("%w: not ready after %s", ErrAppLoad, s.cfg.ReadyTimeout)
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// kill forcefully terminates a half-started instance and waits for the
// reaper.
func (s *Supervisor) kill(inst *instance) {
	inst.stopping.Store(true)
	select {
	case <-inst.exited:
	default:
		_ = inst.cmd.Process.Kill()
		<-inst.exited
	}
	_ = os.Remove(inst.socketPath)
}

// resolveEntrypoint resolves rel inside dir and verifies it is an executable
// regular file confined to the artifact directory.
func resolveEntrypoint(dir, rel string) (string, error) {
	if rel == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: invalid entrypoint %q", ErrEntrypointNotFound, rel)
	}
	entry := filepath.Join(dir, rel)
	info, err := os.Stat(entry)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrEntrypointNotFound, rel)
	}
	if !info.Mode().IsRegular() || info.Mode()&0111 == 0 {
		return "", fmt.Errorf("%w: %s is not executable", ErrEntrypointNotFound, rel)
	}
	return entry, nil
}
