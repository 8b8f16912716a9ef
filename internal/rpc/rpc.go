// Package rpc holds the method registry that the SD handlers are
// registered with, plus the request/response frames used on the wire.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Error is an RPC failure with a status code
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Errorf builds an *Error
func Errorf(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError converts any error into an *Error, defaulting to code 500.
func AsError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return &Error{Code: 500, Message: err.Error()}
}

// Handler serves one method. args is the raw JSON argument object and may
// be empty.
type Handler func(ctx context.Context, args json.RawMessage) (interface{}, error)

type method struct {
	argsFmt string
	handler Handler
}

// Registry maps method names to handlers
type Registry struct {
	mu      sync.RWMutex
	methods map[string]method
}

// NewRegistry creates a registry with the RPC.List and RPC.Describe
// introspection methods installed.
func NewRegistry() *Registry {
	r := &Registry{methods: make(map[string]method)}
	r.Add("RPC.List", "", r.list)
	r.Add("RPC.Describe", "{name: %Q}", r.describe)
	return r
}

// Add registers handler under name, replacing any previous one.
// argsFmt documents the expected arguments.
func (r *Registry) Add(name, argsFmt string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[name] = method{argsFmt: argsFmt, handler: handler}
}

// Methods returns the registered method names, sorted
func (r *Registry) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes the named method
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	r.mu.RLock()
	m, ok := r.methods[name]
	r.mu.RUnlock()

	if !ok {
		return nil, Errorf(404, "No handler for %s", name)
	}
	return m.handler(ctx, args)
}

// Dispatch runs a request frame and builds the matching response frame.
func (r *Registry) Dispatch(ctx context.Context, req *Frame) *Response {
	resp := &Response{ID: req.ID, Src: req.Dst, Dst: req.Src}

	if req.Method == "" {
		resp.Error = Errorf(400, "method is required")
		return resp
	}

	result, err := r.Call(ctx, req.Method, req.Args)
	if err != nil {
		resp.Error = AsError(err)
		return resp
	}

	data, err := json.Marshal(result)
	if err != nil {
		resp.Error = Errorf(500, "could not encode result: %v", err)
		return resp
	}
	resp.Result = data
	return resp
}

func (r *Registry) list(ctx context.Context, args json.RawMessage) (interface{}, error) {
	return r.Methods(), nil
}

func (r *Registry) describe(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var req struct {
		Name string `json:"name"`
	}
	if err := DecodeArgs(args, &req); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, Errorf(400, "name is required")
	}

	r.mu.RLock()
	m, ok := r.methods[req.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, Errorf(404, "No handler for %s", req.Name)
	}

	return map[string]string{"name": req.Name, "args_fmt": m.argsFmt}, nil
}

// DecodeArgs unmarshals args into dst. Empty args leave dst untouched.
func DecodeArgs(args json.RawMessage, dst interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, dst); err != nil {
		return Errorf(400, "invalid args: %v", err)
	}
	return nil
}
