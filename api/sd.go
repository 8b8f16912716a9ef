package api

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"syscall"

	"github.com/CristiGvl/picoSD/internal/card"
	"github.com/CristiGvl/picoSD/internal/rpc"
)

// registerSDHandlers installs the SD.* methods
func (s *Server) registerSDHandlers() {
	s.registry.Add("SD.GetMountPoint", "", s.sdGetMountPoint)
	s.registry.Add("SD.List", "{path: %Q}", s.sdList)
	s.registry.Add("SD.Mkdir", "{path: %Q}", s.sdMkdir)
	s.registry.Add("SD.Info", "", s.sdInfo)
	s.registry.Add("SD.Size", "{unit: %Q}", s.sdSize)
	s.registry.Add("SD.Used", "{unit: %Q}", s.sdUsed)
	s.registry.Add("SD.Free", "{unit: %Q}", s.sdFree)
	s.registry.Add("SD.Get", "{filename: %Q, offset: %ld, len: %ld}", s.sdGet)
	s.registry.Add("SD.Put", "{filename: %Q, data: %V, append: %B}", s.sdPut)
}

type pathArgs struct {
	Path string `json:"path"`
}

type unitArgs struct {
	Unit string `json:"unit"`
}

type getArgs struct {
	Filename string `json:"filename"`
	Offset   int64  `json:"offset"`
	Len      int64  `json:"len"`
}

type putArgs struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
	Append   bool   `json:"append"`
}

// sdError maps card errors onto RPC errors
func sdError(err error) error {
	switch {
	case errors.Is(err, card.ErrNoCard):
		return rpc.Errorf(400, "No SD found!")
	case errors.Is(err, card.ErrPathRequired):
		return rpc.Errorf(400, "Path is required")
	case errors.Is(err, card.ErrEmptyChunk):
		return rpc.Errorf(500, "%s", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return rpc.Errorf(503, "%s", err.Error())
	case errors.Is(err, card.ErrFilenameRequired),
		errors.Is(err, card.ErrIllegalOffset),
		errors.Is(err, card.ErrOutsideMount),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrExist),
		errors.Is(err, fs.ErrPermission):
		return rpc.Errorf(400, "%s", err.Error())
	}
	return rpc.Errorf(500, "%s", err.Error())
}

func (s *Server) sdGetMountPoint(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if err := s.sd.Ready(); err != nil {
		return nil, sdError(err)
	}
	return map[string]string{"mountPoint": s.sd.MountPoint()}, nil
}

func (s *Server) sdList(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var req pathArgs
	if err := rpc.DecodeArgs(args, &req); err != nil {
		return nil, err
	}

	entries, err := s.sd.List(req.Path)
	if err != nil {
		log.Printf("SD.List %q: %v", req.Path, err)
		return nil, sdError(err)
	}
	return entries, nil
}

func (s *Server) sdMkdir(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var req pathArgs
	if err := rpc.DecodeArgs(args, &req); err != nil {
		return nil, err
	}

	created, err := s.sd.Mkdir(req.Path)
	if err != nil {
		if errors.Is(err, card.ErrNoCard) || errors.Is(err, card.ErrPathRequired) ||
			errors.Is(err, card.ErrOutsideMount) {
			return nil, sdError(err)
		}
		var errno syscall.Errno
		if errors.As(err, &errno) {
			return nil, rpc.Errorf(400, "Could not create %s (%d)", created, int(errno))
		}
		return nil, rpc.Errorf(400, "Could not create %s (%v)", created, err)
	}
	return map[string]string{"Created": created}, nil
}

func (s *Server) sdInfo(ctx context.Context, args json.RawMessage) (interface{}, error) {
	info, err := s.sd.Info(ctx)
	if err != nil {
		return nil, sdError(err)
	}
	return info, nil
}

func (s *Server) unit(args json.RawMessage) (card.Unit, error) {
	var req unitArgs
	if err := rpc.DecodeArgs(args, &req); err != nil {
		return 0, err
	}
	unit, err := card.ParseUnit(req.Unit)
	if err != nil {
		return 0, rpc.Errorf(400, "%s", err.Error())
	}
	return unit, nil
}

func (s *Server) sdSize(ctx context.Context, args json.RawMessage) (interface{}, error) {
	unit, err := s.unit(args)
	if err != nil {
		return nil, err
	}
	size, err := s.sd.Size(unit)
	if err != nil {
		return nil, sdError(err)
	}
	return map[string]uint64{"sd_size": size}, nil
}

func (s *Server) sdUsed(ctx context.Context, args json.RawMessage) (interface{}, error) {
	unit, err := s.unit(args)
	if err != nil {
		return nil, err
	}
	used, err := s.sd.Used(unit)
	if err != nil {
		return nil, sdError(err)
	}
	return map[string]uint64{"sd_used": used}, nil
}

func (s *Server) sdFree(ctx context.Context, args json.RawMessage) (interface{}, error) {
	unit, err := s.unit(args)
	if err != nil {
		return nil, err
	}
	free, err := s.sd.Free(unit)
	if err != nil {
		return nil, sdError(err)
	}
	return map[string]uint64{"sd_free": free}, nil
}

func (s *Server) sdGet(ctx context.Context, args json.RawMessage) (interface{}, error) {
	req := getArgs{Len: -1}
	if err := rpc.DecodeArgs(args, &req); err != nil {
		return nil, err
	}

	data, left, err := s.sd.Get(ctx, req.Filename, req.Offset, req.Len)
	if err != nil {
		return nil, sdError(err)
	}
	return map[string]interface{}{"data": data, "left": left}, nil
}

func (s *Server) sdPut(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var req putArgs
	if err := rpc.DecodeArgs(args, &req); err != nil {
		return nil, err
	}

	n, err := s.sd.Put(ctx, req.Filename, req.Data, req.Append)
	if err != nil {
		return nil, sdError(err)
	}
	return map[string]int{"written": n}, nil
}
