// Package worker runs pure engine computations in an isolated goroutine.
// Requests and responses cross the boundary as newline-delimited JSON-RPC
// 2.0 messages only, each request carrying a full snapshot of the ledger
// state and chart of accounts; nothing is shared in memory.
package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/kasboek/internal/logger"
)

// DefaultTimeout bounds a Call whose context carries no deadline.
const DefaultTimeout = 30 * time.Second

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
	CodeEngine         = -32000
)

var (
	// ErrClosed is returned by Call after Close or when the worker died.
	ErrClosed = errors.New("worker is closed")
	// ErrTimeout is returned when a call exceeds DefaultTimeout.
	ErrTimeout = errors.New("worker call timed out")
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      any    `json:"id,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
// Result must NOT have omitempty: a null result still answers the call.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result"`
	Error   *RPCError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("worker error %d: %s", e.Code, e.Message)
}

type rawMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// Worker is the client side of the boundary. It is safe for concurrent
// use; the worker goroutine handles requests one at a time.
type Worker struct {
	stdin   io.WriteCloser
	reader  *bufio.Reader
	mu      sync.Mutex // guards nextID and pending
	writeMu sync.Mutex
	nextID  int
	pending map[int]chan *rawMessage
	done    chan struct{}
	served  chan struct{}
	log     zerolog.Logger
}

// Start launches the worker goroutine. Cancelling ctx stops it like Close.
func Start(ctx context.Context, log zerolog.Logger) *Worker {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	w := &Worker{
		stdin:   reqW,
		reader:  bufio.NewReader(respR),
		pending: make(map[int]chan *rawMessage),
		done:    make(chan struct{}),
		served:  make(chan struct{}),
		log:     logger.WithComponent(log, "worker"),
	}

	srv := newServer(w.log)
	go func() {
		defer close(w.served)
		srv.serve(reqR, respW)
		_ = respW.Close()
	}()
	go w.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			_ = w.Close()
		case <-w.done:
		}
	}()
	return w
}

// Call sends method with params and decodes the result into result, which
// may be nil. Without a deadline on ctx the call gives up after
// DefaultTimeout.
func (w *Worker) Call(ctx context.Context, method string, params, result any) error {
	w.mu.Lock()
	w.nextID++
	id := w.nextID
	ch := make(chan *rawMessage, 1)
	w.pending[id] = ch
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.pending, id)
		w.mu.Unlock()
	}()

	if err := w.send(Request{JSONRPC: "2.0", Method: method, Params: params, ID: id}); err != nil {
		return err
	}

	var timeout <-chan time.Time
	if _, ok := ctx.Deadline(); !ok {
		t := time.NewTimer(DefaultTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case msg := <-ch:
		if msg.Error != nil {
			return msg.Error
		}
		if result == nil || msg.Result == nil {
			return nil
		}
		if err := json.Unmarshal(msg.Result, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
		return nil
	case <-w.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return fmt.Errorf("%w after %s: %s", ErrTimeout, DefaultTimeout, method)
	}
}

// Close stops the worker and waits for it to exit.
func (w *Worker) Close() error {
	err := w.stdin.Close()
	<-w.served
	<-w.done
	return err
}

func (w *Worker) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	select {
	case <-w.done:
		return ErrClosed
	default:
	}
	w.writeMu.Lock()
	_, err = fmt.Fprintf(w.stdin, "%s\n", data)
	w.writeMu.Unlock()
	if errors.Is(err, io.ErrClosedPipe) {
		return ErrClosed
	}
	return err
}

func (w *Worker) readLoop() {
	defer close(w.done)
	for {
		line, err := w.reader.ReadBytes('\n')
		if err != nil {
			return
		}

		var msg rawMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			w.log.Warn().Err(err).Msg("dropping undecodable response")
			continue
		}

		id := toInt(msg.ID)
		w.mu.Lock()
		ch, ok := w.pending[id]
		if ok {
			delete(w.pending, id)
		}
		w.mu.Unlock()
		if ok {
			ch <- &msg
		}
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}
