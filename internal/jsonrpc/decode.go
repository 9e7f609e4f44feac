package jsonrpc

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/wagiedev/mcp-stdio-go/internal/errors"
)

// envelope captures every field any message shape may carry so the shape can
// be decided after a single unmarshal.
type envelope struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  json.RawMessage       `json:"params"`
	ID      json.RawMessage       `json:"id"`
	Result  json.RawMessage       `json:"result"`
	Error   *errors.ProtocolError `json:"error"`
}

// DecodeError describes a line that is not a valid JSON-RPC 2.0 message.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid JSON-RPC message: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses one wire line into a *Request, *Notification, or *Response.
//
// Responses must carry an integer id and exactly one of result and error.
func Decode(line []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, &DecodeError{Line: string(line), Err: err}
	}

	if env.JSONRPC != Version {
		return nil, &DecodeError{
			Line: string(line),
			Err:  fmt.Errorf("unsupported jsonrpc version %q", env.JSONRPC),
		}
	}

	hasID := len(env.ID) > 0 && !bytes.Equal(env.ID, []byte("null"))
	hasResult := len(env.Result) > 0

	if env.Method != "" {
		if hasResult || env.Error != nil {
			return nil, &DecodeError{Line: string(line), Err: stderrors.New("request carries result or error")}
		}

		if !hasID {
			return &Notification{JSONRPC: env.JSONRPC, Method: env.Method, Params: env.Params}, nil
		}

		id, err := parseID(env.ID)
		if err != nil {
			return nil, &DecodeError{Line: string(line), Err: err}
		}

		return &Request{JSONRPC: env.JSONRPC, Method: env.Method, Params: env.Params, ID: id}, nil
	}

	if !hasID {
		return nil, &DecodeError{Line: string(line), Err: stderrors.New("response without id")}
	}

	if hasResult == (env.Error != nil) {
		return nil, &DecodeError{Line: string(line), Err: stderrors.New("response must carry exactly one of result and error")}
	}

	id, err := parseID(env.ID)
	if err != nil {
		return nil, &DecodeError{Line: string(line), Err: err}
	}

	return &Response{JSONRPC: env.JSONRPC, ID: id, Result: env.Result, Error: env.Error}, nil
}

// Encode marshals a message as one wire frame terminated by a newline.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	return append(data, '\n'), nil
}

func parseID(raw json.RawMessage) (int64, error) {
	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, fmt.Errorf("id %s is not an integer", raw)
	}

	return id, nil
}
