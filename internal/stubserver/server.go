package stubserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-stdio-go/internal/jsonrpc"
)

// Server identity reported in the initialize result.
const (
	Name    = "mcpstub"
	Version = "0.1.0"

	// ReadyLine is printed on stderr once the server reads stdin.
	ReadyLine = "mcpstub server running on stdio"

	defaultProtocolVersion = "2024-11-05"
	maxLineSize            = 1024 * 1024
)

// Server is a minimal MCP server speaking line-delimited JSON-RPC. Requests
// are handled concurrently, so responses may leave in a different order than
// the requests arrived.
type Server struct {
	log      *slog.Logger
	registry *Registry

	// exit ends the process for the exit tool.
	exit func(code int)

	outMu sync.Mutex
}

// New creates a server with the default tools: echo, add, fail, sleep and exit.
func New(log *slog.Logger) *Server {
	s := &Server{
		log:      log.With("component", "stubserver"),
		registry: NewRegistry(),
		exit:     os.Exit,
	}

	s.registerDefaults()

	return s
}

// Registry exposes the tool table for additional registrations.
func (s *Server) Registry() *Registry {
	return s.registry
}

func (s *Server) registerDefaults() {
	s.registry.AddRawTool(
		NewTool("echo", "Returns its arguments verbatim as the result", &jsonschema.Schema{Type: "object"}),
		func(_ context.Context, arguments json.RawMessage) (json.RawMessage, error) {
			return arguments, nil
		},
	)

	s.registry.AddTool(
		NewTool("add", "Adds two numbers", SimpleSchema(map[string]string{"a": "number", "b": "number"})),
		func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := ParseArguments(req)
			if err != nil {
				return nil, err
			}

			a, aok := args["a"].(float64)
			b, bok := args["b"].(float64)

			if !aok || !bok {
				return ErrorResult("a and b must be numbers"), nil
			}

			return TextResult(fmt.Sprintf("%g", a+b)), nil
		},
	)

	s.registry.AddTool(
		NewTool("fail", "Always fails", nil),
		func(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return nil, fmt.Errorf("requested failure")
		},
	)

	s.registry.AddTool(
		NewTool("sleep", "Waits ms milliseconds, then replies", SimpleSchema(map[string]string{"ms": "integer"})),
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := ParseArguments(req)
			if err != nil {
				return nil, err
			}

			ms, _ := args["ms"].(float64)

			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}

			return TextResult(fmt.Sprintf("slept %gms", ms)), nil
		},
	)

	s.registry.AddTool(
		NewTool("exit", "Terminates the server process with the given code", SimpleSchema(map[string]string{"code": "integer"})),
		func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := ParseArguments(req)
			if err != nil {
				return nil, err
			}

			code, _ := args["code"].(float64)
			s.log.Info("Exiting on request", "code", int(code))
			s.exit(int(code))

			return TextResult("exiting"), nil
		},
	)
}

// Serve reads requests from in until EOF and writes responses to out. The
// readiness line and diagnostics go to errw.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer, errw io.Writer) error {
	if _, err := fmt.Fprintln(errw, ReadyLine); err != nil {
		return fmt.Errorf("write ready line: %w", err)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var wg sync.WaitGroup
	defer wg.Wait()

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		msg, err := jsonrpc.Decode(line)
		if err != nil {
			s.log.Warn("Ignoring malformed line", "error", err)

			continue
		}

		switch m := msg.(type) {
		case *jsonrpc.Request:
			wg.Go(func() {
				s.reply(out, s.dispatch(ctx, m))
			})

		case *jsonrpc.Notification:
			s.log.Debug("Received notification", "method", m.Method)

		case *jsonrpc.Response:
			s.log.Debug("Ignoring response", "request_id", m.ID)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	return nil
}

func (s *Server) reply(out io.Writer, resp *jsonrpc.Response) {
	frame, err := jsonrpc.Encode(resp)
	if err != nil {
		s.log.Error("Encode response", "request_id", resp.ID, "error", err)

		return
	}

	s.outMu.Lock()
	defer s.outMu.Unlock()

	if _, err := out.Write(frame); err != nil {
		s.log.Error("Write response", "request_id", resp.ID, "error", err)
	}
}

func (s *Server) dispatch(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	s.log.Debug("Handling request", "method", req.Method, "request_id", req.ID)

	switch req.Method {
	case "initialize":
		var params struct {
			ProtocolVersion string `json:"protocolVersion"`
		}

		_ = json.Unmarshal(req.Params, &params)

		version := params.ProtocolVersion
		if version == "" {
			version = defaultProtocolVersion
		}

		return s.result(req.ID, map[string]any{
			"protocolVersion": version,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": Name, "version": Version},
			"instructions":    "Test server. echo returns its arguments.",
		})

	case "tools/list":
		return s.result(req.ID, map[string]any{"tools": s.registry.ListTools()})

	case "tools/call":
		var params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}

		if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeInvalidParams, "tools/call requires a tool name")
		}

		result, err := s.registry.CallTool(ctx, params.Name, params.Arguments)
		if err != nil {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeInternalError, err.Error())
		}

		return s.result(req.ID, result)

	case "ping":
		return s.result(req.ID, map[string]any{})

	default:
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeMethodNotFound, "Method not found")
	}
}

func (s *Server) result(id int64, v any) *jsonrpc.Response {
	resp, err := jsonrpc.NewResultResponse(id, v)
	if err != nil {
		return jsonrpc.NewErrorResponse(id, jsonrpc.CodeInternalError, err.Error())
	}

	return resp
}

// Main runs the server on the process's standard streams and returns the
// exit code.
func Main() int {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := New(log).Serve(context.Background(), os.Stdin, os.Stdout, os.Stderr); err != nil {
		log.Error("Server stopped", "error", err)

		return 1
	}

	return 0
}
