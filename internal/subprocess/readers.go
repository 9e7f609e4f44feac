package subprocess

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/wagiedev/mcp-stdio-go/internal/errors"
	"github.com/wagiedev/mcp-stdio-go/internal/jsonrpc"
)

// lineReader splits a stream into newline-terminated lines of at most limit
// bytes. A longer line is consumed through its newline and reported as
// oversized with no content.
type lineReader struct {
	br    *bufio.Reader
	limit int
	buf   []byte
}

func newLineReader(r io.Reader, limit int) *lineReader {
	return &lineReader{br: bufio.NewReaderSize(r, 64*1024), limit: limit}
}

// next returns the next line without its terminator. The returned slice is
// only valid until the following call. A final line without a newline is
// returned before the stream error.
func (l *lineReader) next() (line []byte, oversized bool, err error) {
	l.buf = l.buf[:0]

	for {
		chunk, err := l.br.ReadSlice('\n')

		content := chunk
		if err == nil {
			content = chunk[:len(chunk)-1]
		}

		if !oversized {
			if len(l.buf)+len(content) > l.limit {
				oversized = true
				l.buf = l.buf[:0]
			} else {
				l.buf = append(l.buf, content...)
			}
		}

		switch {
		case err == nil:
			return l.buf, oversized, nil
		case stderrors.Is(err, bufio.ErrBufferFull):
			continue
		case oversized || len(l.buf) > 0:
			return l.buf, oversized, nil
		default:
			return nil, false, err
		}
	}
}

// readStdout dispatches every message the server writes on stdout until the
// stream ends. Malformed and oversized lines are logged and skipped.
func (t *StdioTransport) readStdout(r *run) error {
	defer t.log.Debug("Stdout reader stopped", "pid", r.proc.Pid())

	reader := newLineReader(r.proc.Stdout(), t.options.MaxLineSize)
	lines := 0

	for {
		raw, oversized, err := reader.next()
		if err != nil {
			if !isClosedPipe(err) {
				t.log.Debug("Stdout read error", "error", err, "lines", lines)
			}

			return nil
		}

		if oversized {
			t.log.Warn("Skipping oversized line from server", "max_line_size", t.options.MaxLineSize)
			t.telemetry.parseError()

			continue
		}

		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}

		lines++

		msg, err := jsonrpc.Decode(line)
		if err != nil {
			t.log.Debug("Skipping malformed line from server", "error", err, "line", string(line))
			t.telemetry.parseError()

			continue
		}

		switch m := msg.(type) {
		case *jsonrpc.Response:
			t.log.Debug("Received response", "request_id", m.ID, "frame", string(line))

			if !r.correlator.Deliver(m) {
				t.telemetry.responseDropped()
			}

		case *jsonrpc.Notification:
			t.log.Debug("Received notification", "method", m.Method)

			if t.options.NotificationHandler != nil {
				t.options.NotificationHandler(m)
			}

		case *jsonrpc.Request:
			r.group.Go(func() error {
				t.answerServerRequest(r, m)

				return nil
			})
		}
	}
}

// answerServerRequest replies to a request initiated by the server. Only ping
// is understood; everything else gets method-not-found.
func (t *StdioTransport) answerServerRequest(r *run, req *jsonrpc.Request) {
	var resp *jsonrpc.Response

	if req.Method == "ping" {
		var err error

		resp, err = jsonrpc.NewResultResponse(req.ID, struct{}{})
		if err != nil {
			t.log.Debug("Build ping reply", "error", err)

			return
		}
	} else {
		t.log.Debug("Rejecting server request", "method", req.Method, "request_id", req.ID)

		resp = jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeMethodNotFound, "method not found: "+req.Method)
	}

	frame, err := jsonrpc.Encode(resp)
	if err != nil {
		t.log.Debug("Encode reply to server request", "error", err)

		return
	}

	if err := t.writeFrame(context.Background(), r, frame); err != nil {
		t.log.Debug("Reply to server request failed", "method", req.Method, "error", err)
	}
}

// readStderr records diagnostic lines, forwards them to the Stderr callback
// and watches for the readiness signal.
func (t *StdioTransport) readStderr(r *run) error {
	defer close(r.stderrDone)
	defer t.log.Debug("Stderr reader stopped", "pid", r.proc.Pid())

	reader := newLineReader(r.proc.Stderr(), t.options.MaxLineSize)
	signal := t.options.ReadySignal

	for {
		raw, oversized, err := reader.next()
		if err != nil {
			if !isClosedPipe(err) {
				t.log.Debug("Stderr read error", "error", err)
			}

			return nil
		}

		if oversized {
			t.log.Debug("Skipping oversized stderr line", "max_line_size", t.options.MaxLineSize)

			continue
		}

		line := strings.TrimSpace(string(raw))
		if line == "" {
			continue
		}

		r.stderr.Append(line)
		t.log.Debug("Server stderr", "line", line)

		if t.options.Stderr != nil {
			t.options.Stderr(line)
		}

		if signal != "" && strings.Contains(line, signal) {
			r.markReady()
		}
	}
}

// watch waits for the process to exit. An exit nobody asked for fails every
// pending and future request with a ProcessError.
func (t *StdioTransport) watch(r *run) error {
	<-r.proc.Done()

	if r.stopping.Load() {
		return nil
	}

	// Let the last lines the server wrote reach the buffer.
	select {
	case <-r.stderrDone:
	case <-time.After(drainTimeout):
	}

	exitCode := r.proc.ExitCode()
	recent := r.stderr.Last(t.options.DiagnosticLines)

	t.log.Error("Server process exited unexpectedly",
		"pid", r.proc.Pid(),
		"exit_code", exitCode,
		"pending", r.correlator.Pending(),
	)

	r.correlator.Close(&errors.ProcessError{
		ExitCode: exitCode,
		Stderr:   strings.Join(recent, "\n"),
		Err:      errors.ErrTransportClosed,
	})

	t.mu.Lock()
	if t.current == r {
		t.state = StateTerminated
	}
	t.mu.Unlock()

	return nil
}

func isClosedPipe(err error) bool {
	return stderrors.Is(err, os.ErrClosed) ||
		stderrors.Is(err, io.ErrClosedPipe) ||
		stderrors.Is(err, io.EOF)
}
