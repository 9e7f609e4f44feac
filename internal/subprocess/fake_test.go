package subprocess

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/mcp-stdio-go/internal/config"
	"github.com/wagiedev/mcp-stdio-go/internal/jsonrpc"
)

// fakeProcess is an in-memory server process wired with io.Pipe.
type fakeProcess struct {
	pid int

	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	// ignoreTerm makes Terminate a no-op so shutdown has to kill.
	ignoreTerm bool

	terminated atomic.Bool
	killed     atomic.Bool

	exitOnce sync.Once
	mu       sync.Mutex
	exitCode int
	done     chan struct{}

	stdoutMu sync.Mutex
}

func newFakeProcess(pid int) *fakeProcess {
	p := &fakeProcess{pid: pid, done: make(chan struct{})}
	p.stdinR, p.stdinW = io.Pipe()
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()

	return p
}

func (p *fakeProcess) Stdin() io.WriteCloser { return p.stdinW }
func (p *fakeProcess) Stdout() io.ReadCloser { return p.stdoutR }
func (p *fakeProcess) Stderr() io.ReadCloser { return p.stderrR }
func (p *fakeProcess) Pid() int              { return p.pid }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *fakeProcess) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.exitCode
}

func (p *fakeProcess) Terminate() error {
	p.terminated.Store(true)

	if !p.ignoreTerm {
		p.exit(143)
	}

	return nil
}

func (p *fakeProcess) Kill() error {
	p.killed.Store(true)
	p.exit(137)

	return nil
}

// exit simulates the process ending: its ends of the pipes close.
func (p *fakeProcess) exit(code int) {
	p.exitOnce.Do(func() {
		p.mu.Lock()
		p.exitCode = code
		p.mu.Unlock()

		_ = p.stdinR.CloseWithError(io.ErrClosedPipe)
		_ = p.stdoutW.Close()
		_ = p.stderrW.Close()

		close(p.done)
	})
}

// stderr writes a line to the process stderr. Errors after exit are ignored.
func (p *fakeProcess) stderr(line string) {
	_, _ = fmt.Fprintln(p.stderrW, line)
}

// send writes a raw line to the process stdout.
func (p *fakeProcess) send(line string) {
	p.stdoutMu.Lock()
	defer p.stdoutMu.Unlock()

	_, _ = fmt.Fprintln(p.stdoutW, line)
}

// respond writes a success response for id.
func (p *fakeProcess) respond(id int64, result any) {
	resp, err := jsonrpc.NewResultResponse(id, result)
	if err != nil {
		panic(err)
	}

	frame, err := jsonrpc.Encode(resp)
	if err != nil {
		panic(err)
	}

	p.send(string(frame[:len(frame)-1]))
}

// serve decodes every frame the client writes and passes it to handle.
func (p *fakeProcess) serve(handle func(msg jsonrpc.Message)) {
	go func() {
		scanner := bufio.NewScanner(p.stdinR)
		for scanner.Scan() {
			msg, err := jsonrpc.Decode(scanner.Bytes())
			if err != nil {
				continue
			}

			handle(msg)
		}
	}()
}

// echo answers every request with its params.
func (p *fakeProcess) echo() {
	p.serve(func(msg jsonrpc.Message) {
		if req, ok := msg.(*jsonrpc.Request); ok {
			p.respond(req.ID, json.RawMessage(req.Params))
		}
	})
}

// fakeSpawner hands out prepared fake processes in order.
type fakeSpawner struct {
	mu       sync.Mutex
	procs    []*fakeProcess
	commands []config.Command
	err      error
}

func (s *fakeSpawner) Spawn(_ context.Context, cmd config.Command) (config.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands = append(s.commands, cmd)

	if s.err != nil {
		return nil, s.err
	}

	if len(s.procs) == 0 {
		return nil, fmt.Errorf("no fake process left")
	}

	p := s.procs[0]
	s.procs = s.procs[1:]

	return p, nil
}

func newTestTransport(t *testing.T, opts *config.Options, procs ...*fakeProcess) (*StdioTransport, *fakeSpawner) {
	t.Helper()

	spawner := &fakeSpawner{procs: procs}

	if opts == nil {
		opts = &config.Options{}
	}

	if opts.Command == "" {
		opts.Command = "fake-server"
	}

	opts.Spawner = spawner

	transport := NewStdioTransport(slog.Default(), opts)

	t.Cleanup(func() {
		require.NoError(t, transport.Stop(context.Background()))
	})

	return transport, spawner
}
