package subprocess

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/wagiedev/mcp-stdio-go/internal/config"
)

// ExecSpawner launches server processes with os/exec.
//
// The standard streams are plain os.Pipe pairs rather than Cmd.*Pipe, so the
// read ends stay valid after Wait returns and Wait can run as soon as the
// process starts.
type ExecSpawner struct {
	log *slog.Logger
}

// Compile-time verification that ExecSpawner implements config.Spawner.
var _ config.Spawner = (*ExecSpawner)(nil)

// NewExecSpawner creates the default spawner.
func NewExecSpawner(log *slog.Logger) *ExecSpawner {
	return &ExecSpawner{log: log.With("component", "exec_spawner")}
}

// Spawn resolves cmd.Path through PATH and the common install locations and
// starts it.
func (s *ExecSpawner) Spawn(ctx context.Context, cmd config.Command) (config.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := resolveCommand(s.log, cmd.Path, commonDirs())
	if err != nil {
		return nil, err
	}

	var files []*os.File

	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	pipe := func() (*os.File, *os.File, error) {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, nil, err
		}

		files = append(files, r, w)

		return r, w, nil
	}

	stdinR, stdinW, err := pipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdoutR, stdoutW, err := pipe()
	if err != nil {
		closeAll()

		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	stderrR, stderrW, err := pipe()
	if err != nil {
		closeAll()

		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	// The process outlives the start context, so it is not bound to ctx.
	//nolint:gosec // G204: launching a configured server command is the point
	c := exec.Command(path, cmd.Args...)
	c.Env = cmd.Env
	c.Dir = cmd.Dir
	c.Stdin = stdinR
	c.Stdout = stdoutW
	c.Stderr = stderrW

	if err := c.Start(); err != nil {
		closeAll()

		return nil, fmt.Errorf("start process: %w", err)
	}

	// The child holds its own copies of these ends.
	_ = stdinR.Close()
	_ = stdoutW.Close()
	_ = stderrW.Close()

	p := &execProcess{
		cmd:    c,
		stdin:  stdinW,
		stdout: stdoutR,
		stderr: stderrR,
		done:   make(chan struct{}),
	}

	go p.wait(s.log)

	s.log.Debug("Spawned server process", "path", path, "pid", c.Process.Pid)

	return p, nil
}

// execProcess adapts an *exec.Cmd to config.Process.
type execProcess struct {
	cmd    *exec.Cmd
	stdin  *os.File
	stdout *os.File
	stderr *os.File

	done     chan struct{}
	mu       sync.Mutex
	exitCode int
}

func (p *execProcess) wait(log *slog.Logger) {
	err := p.cmd.Wait()

	p.mu.Lock()
	p.exitCode = p.cmd.ProcessState.ExitCode()
	p.mu.Unlock()

	if err != nil {
		log.Debug("Server process wait returned", "pid", p.cmd.Process.Pid, "error", err)
	}

	close(p.done)
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.ReadCloser { return p.stdout }
func (p *execProcess) Stderr() io.ReadCloser { return p.stderr }
func (p *execProcess) Pid() int              { return p.cmd.Process.Pid }
func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *execProcess) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.exitCode
}

// Terminate sends SIGTERM. Platforms without it return an error and the
// caller escalates to Kill.
func (p *execProcess) Terminate() error {
	err := p.cmd.Process.Signal(syscall.SIGTERM)
	if stderrors.Is(err, os.ErrProcessDone) {
		return nil
	}

	return err
}

func (p *execProcess) Kill() error {
	err := p.cmd.Process.Kill()
	if stderrors.Is(err, os.ErrProcessDone) {
		return nil
	}

	return err
}
