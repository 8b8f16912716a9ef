package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echo(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var req struct {
		Path string `json:"path"`
	}
	if err := DecodeArgs(args, &req); err != nil {
		return nil, err
	}
	return map[string]string{"path": req.Path}, nil
}

func TestRegistryCall(t *testing.T) {
	r := NewRegistry()
	r.Add("Test.Echo", "{path: %Q}", echo)

	result, err := r.Call(context.Background(), "Test.Echo", json.RawMessage(`{"path":"a/b"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"path": "a/b"}, result)
}

func TestRegistryUnknownMethod(t *testing.T) {
	_, err := NewRegistry().Call(context.Background(), "SD.Nope", nil)
	require.Error(t, err)

	rpcErr := AsError(err)
	assert.Equal(t, 404, rpcErr.Code)
	assert.Equal(t, "No handler for SD.Nope", rpcErr.Message)
}

func TestRegistryBadArgs(t *testing.T) {
	r := NewRegistry()
	r.Add("Test.Echo", "{path: %Q}", echo)

	_, err := r.Call(context.Background(), "Test.Echo", json.RawMessage(`{"path":`))
	require.Error(t, err)
	assert.Equal(t, 400, AsError(err).Code)
}

func TestMethodsSorted(t *testing.T) {
	r := NewRegistry()
	r.Add("SD.Size", "", echo)
	r.Add("SD.Info", "", echo)

	assert.Equal(t, []string{"RPC.Describe", "RPC.List", "SD.Info", "SD.Size"}, r.Methods())
}

func TestDescribe(t *testing.T) {
	r := NewRegistry()
	r.Add("SD.List", "{path: %Q}", echo)

	result, err := r.Call(context.Background(), "RPC.Describe", json.RawMessage(`{"name":"SD.List"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "SD.List", "args_fmt": "{path: %Q}"}, result)

	_, err = r.Call(context.Background(), "RPC.Describe", nil)
	assert.Equal(t, 400, AsError(err).Code)
}

func TestDispatch(t *testing.T) {
	r := NewRegistry()
	r.Add("Test.Echo", "{path: %Q}", echo)

	resp := r.Dispatch(context.Background(), &Frame{
		ID:     7,
		Src:    "client",
		Dst:    "device",
		Method: "Test.Echo",
		Args:   json.RawMessage(`{"path":"x"}`),
	})
	require.Nil(t, resp.Error)
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, "device", resp.Src)
	assert.Equal(t, "client", resp.Dst)
	assert.JSONEq(t, `{"path":"x"}`, string(resp.Result))
}

func TestDispatchErrors(t *testing.T) {
	r := NewRegistry()
	r.Add("Test.Fail", "", func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		return nil, errors.New("boom")
	})

	resp := r.Dispatch(context.Background(), &Frame{ID: 1, Method: "Test.Fail"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, 500, resp.Error.Code)
	assert.Equal(t, "boom", resp.Error.Message)
	assert.Nil(t, resp.Result)

	resp = r.Dispatch(context.Background(), &Frame{ID: 2})
	require.NotNil(t, resp.Error)
	assert.Equal(t, 400, resp.Error.Code)
}
