package tellustest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// JSON-RPC error codes mirrored from the platform.
const (
	codeParse         = -32700
	codeInvalidParams = -32602
	codeMethodMissing = -32601
	codeEvaluation    = -32000
	codeUnauthorized  = -32001
	codeNotFound      = -32004
)

// evalError carries a platform error code out of graph evaluation.
type evalError struct {
	code int
	msg  string
}

func (e *evalError) Error() string { return e.msg }

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Server is an in-process stand-in for a Tellus deployment. Mount it on an
// httptest.Server and point a client at its URL. The zero value is not
// usable; call NewServer.
//
// Coordinates in geometries are interpreted as fractions of the pixel grid
// in [0, 1]. See the package comment for the emulator's other limits.
type Server struct {
	store *SceneStore

	mu    sync.Mutex
	token string
	tasks map[string]*taskRecord
	seq   int
}

type taskRecord struct {
	state string
	err   string
}

// NewServer creates an emulator with an empty scene store.
func NewServer() *Server {
	return &Server{store: NewSceneStore(), tasks: make(map[string]*taskRecord)}
}

// Store exposes the asset store for test setup.
func (s *Server) Store() *SceneStore { return s.store }

// RequireToken makes every request demand the given bearer token.
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// ServeHTTP implements the /rpc/v1 endpoint.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/rpc/v1") {
		http.NotFound(w, r)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: codeParse, Message: "parse error: " + err.Error()},
		})
		return
	}

	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	if err := s.checkAuth(r); err != nil {
		resp.Error = err
	} else {
		result, err := s.dispatch(&req)
		if err != nil {
			resp.Error = err
		} else {
			resp.Result = result
		}
	}
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) checkAuth(r *http.Request) *rpcError {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token == "" {
		return nil
	}
	if r.Header.Get("Authorization") != "Bearer "+token {
		return &rpcError{Code: codeUnauthorized, Message: "invalid or missing bearer token"}
	}
	return nil
}

func (s *Server) dispatch(req *rpcRequest) (any, *rpcError) {
	switch req.Method {
	case "ping":
		return map[string]string{"status": "ok"}, nil
	case "value.compute":
		return s.handleCompute(req.Params)
	case "image.thumbnail":
		return s.handleThumbnail(req.Params)
	case "image.export":
		return s.handleExport(req.Params)
	case "task.status":
		return s.handleTaskStatus(req.Params)
	case "algorithms.list":
		return algorithmCatalog(), nil
	}
	return nil, &rpcError{Code: codeMethodMissing, Message: fmt.Sprintf("unknown method %q", req.Method)}
}

// evalFailure maps an evaluation error to a wire error, defaulting to the
// generic evaluation code.
func evalFailure(err error) *rpcError {
	if ee, ok := err.(*evalError); ok {
		return &rpcError{Code: ee.code, Message: ee.msg}
	}
	if msg := err.Error(); strings.Contains(msg, "no such") {
		return &rpcError{Code: codeNotFound, Message: msg}
	}
	return &rpcError{Code: codeEvaluation, Message: err.Error()}
}

func (s *Server) handleCompute(params json.RawMessage) (any, *rpcError) {
	var p struct {
		Graph json.RawMessage `json:"graph"`
	}
	if err := json.Unmarshal(params, &p); err != nil || len(p.Graph) == 0 {
		return nil, &rpcError{Code: codeInvalidParams, Message: "compute needs a graph"}
	}
	v, err := evalGraph(p.Graph, s.store)
	if err != nil {
		return nil, evalFailure(err)
	}
	return encodeResult(v)
}

// encodeResult converts an evaluated value to its wire form. Images cannot
// materialize through value.compute.
func encodeResult(v any) (any, *rpcError) {
	switch t := v.(type) {
	case *Raster:
		return nil, &rpcError{
			Code:    codeEvaluation,
			Message: "an image cannot be materialized directly; reduce it or request a thumbnail",
		}
	case []*Scene:
		return nil, &rpcError{
			Code:    codeEvaluation,
			Message: "an image collection cannot be materialized directly",
		}
	case []Feature:
		out := make([]any, len(t))
		for i, f := range t {
			out[i] = map[string]any{"x": f.X, "y": f.Y, "properties": f.Props}
		}
		return out, nil
	case *confusion:
		return nil, &rpcError{
			Code:    codeEvaluation,
			Message: "materialize an error matrix through its accuracy, kappa or matrix accessors",
		}
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			enc, rpcErr := encodeResult(el)
			if rpcErr != nil {
				return nil, rpcErr
			}
			out[i] = enc
		}
		return out, nil
	}
	return v, nil
}

func (s *Server) handleThumbnail(params json.RawMessage) (any, *rpcError) {
	var p struct {
		Graph  json.RawMessage `json:"graph"`
		Params renderOptions   `json:"params"`
	}
	if err := json.Unmarshal(params, &p); err != nil || len(p.Graph) == 0 {
		return nil, &rpcError{Code: codeInvalidParams, Message: "thumbnail needs a graph"}
	}
	v, err := evalGraph(p.Graph, s.store)
	if err != nil {
		return nil, evalFailure(err)
	}
	r, ok := v.(*Raster)
	if !ok {
		return nil, &rpcError{Code: codeEvaluation, Message: "thumbnail graph must evaluate to an image"}
	}
	res, err := renderThumbnail(r, p.Params)
	if err != nil {
		return nil, evalFailure(err)
	}
	return res, nil
}

// handleExport runs the export synchronously and records a finished task;
// tests poll task.status once and see a terminal state immediately.
func (s *Server) handleExport(params json.RawMessage) (any, *rpcError) {
	var p struct {
		Graph json.RawMessage `json:"graph"`
	}
	if err := json.Unmarshal(params, &p); err != nil || len(p.Graph) == 0 {
		return nil, &rpcError{Code: codeInvalidParams, Message: "export needs a graph"}
	}
	rec := &taskRecord{state: "COMPLETED"}
	v, err := evalGraph(p.Graph, s.store)
	if err != nil {
		rec.state, rec.err = "FAILED", err.Error()
	} else if _, ok := v.(*Raster); !ok {
		rec.state, rec.err = "FAILED", "export graph must evaluate to an image"
	}

	s.mu.Lock()
	s.seq++
	id := fmt.Sprintf("task-%04d", s.seq)
	s.tasks[id] = rec
	s.mu.Unlock()
	return map[string]string{"task_id": id}, nil
}

func (s *Server) handleTaskStatus(params json.RawMessage) (any, *rpcError) {
	var p struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(params, &p); err != nil || p.TaskID == "" {
		return nil, &rpcError{Code: codeInvalidParams, Message: "task.status needs a task_id"}
	}
	s.mu.Lock()
	rec, ok := s.tasks[p.TaskID]
	s.mu.Unlock()
	if !ok {
		return nil, &rpcError{Code: codeNotFound, Message: fmt.Sprintf("no such task %q", p.TaskID)}
	}
	out := map[string]any{"state": rec.state}
	if rec.err != "" {
		out["error"] = rec.err
	}
	return out, nil
}
