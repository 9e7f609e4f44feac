package jsonrpc

import (
	"encoding/json"

	"github.com/wagiedev/mcp-stdio-go/internal/errors"
)

// Version is the only JSON-RPC version spoken on the wire.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Message is implemented by the four message shapes that travel over stdio:
// *Request, *Notification, and *Response (success or error).
type Message interface {
	message()
}

// Request is an outbound or inbound call that expects a response.
//
// Wire format:
//
//	{"jsonrpc":"2.0","method":"tools/list","params":{},"id":3}
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      int64           `json:"id"`
}

func (*Request) message() {}

// Notification is a Request without an id. No response is expected.
//
// Wire format:
//
//	{"jsonrpc":"2.0","method":"notifications/initialized"}
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (*Notification) message() {}

// Response answers the Request with the same ID. Exactly one of Result and
// Error is set.
//
// Wire format for success:
//
//	{"jsonrpc":"2.0","id":3,"result":{"tools":[]}}
//
// Wire format for error:
//
//	{"jsonrpc":"2.0","id":3,"error":{"code":-32601,"message":"Method not found"}}
type Response struct {
	JSONRPC string                `json:"jsonrpc"`
	ID      int64                 `json:"id"`
	Result  json.RawMessage       `json:"result,omitempty"`
	Error   *errors.ProtocolError `json:"error,omitempty"`
}

func (*Response) message() {}

// IsError reports whether the response carries an error object.
func (r *Response) IsError() bool {
	return r.Error != nil
}

// DecodeResult unmarshals the result payload into v. An error response is
// returned as its *errors.ProtocolError.
func (r *Response) DecodeResult(v any) error {
	if r.Error != nil {
		return r.Error
	}

	return json.Unmarshal(r.Result, v)
}

// ResultMap returns the result as a generic object, or nil when the response
// is an error or the result is not a JSON object.
func (r *Response) ResultMap() map[string]any {
	if r.Error != nil || len(r.Result) == 0 {
		return nil
	}

	var m map[string]any
	if err := json.Unmarshal(r.Result, &m); err != nil {
		return nil
	}

	return m
}

// NewRequest builds a request with params marshalled from v. A nil v is sent
// as an empty object.
func NewRequest(id int64, method string, params any) (*Request, error) {
	raw, err := marshalParams(params, true)
	if err != nil {
		return nil, err
	}

	return &Request{JSONRPC: Version, Method: method, Params: raw, ID: id}, nil
}

// NewNotification builds a notification. A nil params omits the field.
func NewNotification(method string, params any) (*Notification, error) {
	raw, err := marshalParams(params, false)
	if err != nil {
		return nil, err
	}

	return &Notification{JSONRPC: Version, Method: method, Params: raw}, nil
}

// NewResultResponse builds a successful response.
func NewResultResponse(id int64, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	return &Response{JSONRPC: Version, ID: id, Result: raw}, nil
}

// NewErrorResponse builds an error response.
func NewErrorResponse(id int64, code int, message string) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &errors.ProtocolError{Code: code, Message: message},
	}
}

func marshalParams(params any, emptyObject bool) (json.RawMessage, error) {
	if params == nil {
		if emptyObject {
			return json.RawMessage(`{}`), nil
		}

		return nil, nil
	}

	return json.Marshal(params)
}
