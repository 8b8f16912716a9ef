package api

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/CristiGvl/picoSD/internal/rpc"
	"github.com/gofiber/fiber/v2"
)

// rpcCall serves /rpc/:method. POST takes the arguments from the JSON
// body, GET from the query string.
func (s *Server) rpcCall(c *fiber.Ctx) error {
	method := c.Params("method")

	var args json.RawMessage
	if c.Method() == fiber.MethodPost && len(c.Body()) > 0 {
		if !json.Valid(c.Body()) {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}
		args = json.RawMessage(append([]byte(nil), c.Body()...))
	} else {
		var err error
		if args, err = queryArgs(c); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.registry.Call(ctx, method, args)
	if err != nil {
		rpcErr := rpc.AsError(err)
		return c.Status(rpcErr.Code).JSON(fiber.Map{"error": rpcErr.Message})
	}

	return c.JSON(result)
}

// rpcFrame serves POST /rpc with a complete request frame. The reply is a
// response frame, failures included.
func (s *Server) rpcFrame(c *fiber.Ctx) error {
	var frame rpc.Frame
	if err := json.Unmarshal(c.Body(), &frame); err != nil {
		return c.JSON(&rpc.Response{Error: rpc.Errorf(400, "invalid request body")})
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return c.JSON(s.registry.Dispatch(ctx, &frame))
}

// queryArgs turns the query string into a JSON argument object. Integers
// and booleans keep their type, everything else is a string.
func queryArgs(c *fiber.Ctx) (json.RawMessage, error) {
	args := map[string]interface{}{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		v := string(value)
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			args[string(key)] = n
		} else if v == "true" || v == "false" {
			args[string(key)] = v == "true"
		} else {
			args[string(key)] = v
		}
	})
	if len(args) == 0 {
		return nil, nil
	}
	return json.Marshal(args)
}
