package worker

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/kasboek/internal/journal"
	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/money"
)

// handler runs one method on decoded params.
type handler func(params json.RawMessage) (any, error)

type server struct {
	handlers map[string]handler
	log      zerolog.Logger
}

func newServer(log zerolog.Logger) *server {
	s := &server{handlers: make(map[string]handler), log: log}
	s.register()
	return s
}

// serve answers one request per line until r is exhausted.
func (s *server) serve(r io.Reader, w io.Writer) {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			data, merr := json.Marshal(s.handle(line))
			if merr != nil {
				data, _ = json.Marshal(Response{JSONRPC: "2.0", Error: &RPCError{Code: CodeInternal, Message: merr.Error()}})
			}
			if _, werr := fmt.Fprintf(w, "%s\n", data); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *server) handle(line []byte) (resp Response) {
	var msg rawMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return Response{JSONRPC: "2.0", Error: &RPCError{Code: CodeParseError, Message: err.Error()}}
	}
	resp = Response{JSONRPC: "2.0", ID: msg.ID}

	h, ok := s.handlers[msg.Method]
	if !ok {
		resp.Error = &RPCError{Code: CodeMethodNotFound, Message: "unknown method: " + msg.Method}
		return resp
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			resp.Result = nil
			resp.Error = panicError(r)
			s.log.Error().Str("method", msg.Method).Str("error", resp.Error.Message).Msg("request panicked")
		}
	}()

	result, err := h(msg.Params)
	if err != nil {
		var rpcErr *RPCError
		if !errors.As(err, &rpcErr) {
			rpcErr = &RPCError{Code: CodeEngine, Message: err.Error()}
		}
		resp.Error = rpcErr
		return resp
	}
	resp.Result = result
	s.log.Debug().Str("method", msg.Method).Dur("took", time.Since(start)).Msg("request served")
	return resp
}

// panicError maps an engine panic to an error response. The engine's typed
// invariant failures keep their message under CodeEngine; anything else
// is an internal error.
func panicError(v any) *RPCError {
	if err, ok := v.(error); ok {
		if errors.Is(err, journal.ErrIntegrityViolation) ||
			errors.Is(err, model.ErrUnknownReference) ||
			errors.Is(err, money.ErrCurrencyMismatch) {
			return &RPCError{Code: CodeEngine, Message: err.Error()}
		}
		return &RPCError{Code: CodeInternal, Message: err.Error()}
	}
	return &RPCError{Code: CodeInternal, Message: fmt.Sprint(v)}
}

func decode(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return &RPCError{Code: CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(params, v); err != nil {
		return &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}
	return nil
}
