package rpc

import "encoding/json"

// Frame is an incoming request
type Frame struct {
	ID     int64           `json:"id"`
	Src    string          `json:"src,omitempty"`
	Dst    string          `json:"dst,omitempty"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// Response answers a Frame. Exactly one of Result and Error is set.
type Response struct {
	ID     int64           `json:"id"`
	Src    string          `json:"src,omitempty"`
	Dst    string          `json:"dst,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}
