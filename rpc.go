package tellus

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// rpcRequest is a JSON-RPC 2.0 request as sent to <endpoint>/rpc/v1.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// rpcResponse is a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
}

// computeParams carries a serialized graph for value.compute.
type computeParams struct {
	Graph json.RawMessage `json:"graph"`
}

// thumbnailParams carries a graph plus rendering options for
// image.thumbnail.
type thumbnailParams struct {
	Graph  json.RawMessage  `json:"graph"`
	Params ThumbnailOptions `json:"params"`
}

// ThumbnailOptions controls server-side quicklook rendering.
type ThumbnailOptions struct {
	// Dimensions is the length in pixels of the longer output edge.
	Dimensions int `json:"dimensions"`
	// Bands selects one band (palette rendering) or three (RGB).
	Bands []string `json:"bands,omitempty"`
	// Min and Max stretch pixel values onto the display range.
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	// Palette is a ramp of "#RRGGBB" stops for single-band rendering.
	Palette []string `json:"palette,omitempty"`
}

// thumbnailResult is the wire form of a rendered quicklook.
type thumbnailResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Thumbnail is a rendered quicklook of an image graph.
type Thumbnail struct {
	Width    int
	Height   int
	MIMEType string
	// Data is the encoded image, typically PNG.
	Data []byte
}

func (t *thumbnailResult) decode() (*Thumbnail, error) {
	data, err := base64.StdEncoding.DecodeString(t.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("decoding thumbnail payload: %w", err)
	}
	return &Thumbnail{
		Width:    t.Width,
		Height:   t.Height,
		MIMEType: t.MimeType,
		Data:     data,
	}, nil
}

// exportParams starts a long-running export of an image graph.
type exportParams struct {
	Graph       json.RawMessage `json:"graph"`
	Description string          `json:"description,omitempty"`
	Scale       float64         `json:"scale,omitempty"`
}

// Task identifies a long-running platform job.
type Task struct {
	ID string `json:"task_id"`
}

// Task states reported by task.status.
const (
	TaskPending   = "PENDING"
	TaskRunning   = "RUNNING"
	TaskCompleted = "COMPLETED"
	TaskFailed    = "FAILED"
)

// TaskStatus is a snapshot of a long-running job.
type TaskStatus struct {
	State  string          `json:"state"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Algorithm describes one remote function, as listed by algorithms.list.
type Algorithm struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Arguments   json.RawMessage `json:"arguments,omitempty"`
}

// Result wraps a computed value returned by value.compute and offers typed
// decoders for the shapes the helpers use most.
type Result struct {
	raw json.RawMessage
}

// Raw returns the undecoded JSON value.
func (r Result) Raw() json.RawMessage { return r.raw }

// Decode unmarshals the result into v.
func (r Result) Decode(v any) error {
	if err := json.Unmarshal(r.raw, v); err != nil {
		return fmt.Errorf("tellus: decoding result: %w", err)
	}
	return nil
}

// Float64 decodes a scalar numeric result.
func (r Result) Float64() (float64, error) {
	var v float64
	err := r.Decode(&v)
	return v, err
}

// Float64Slice decodes a numeric list result.
func (r Result) Float64Slice() ([]float64, error) {
	var v []float64
	err := r.Decode(&v)
	return v, err
}

// Matrix decodes a row-major matrix result.
func (r Result) Matrix() ([][]float64, error) {
	var v [][]float64
	err := r.Decode(&v)
	return v, err
}

// FloatMap decodes a dictionary result with numeric values, the shape of
// most per-band reductions.
func (r Result) FloatMap() (map[string]float64, error) {
	var v map[string]float64
	err := r.Decode(&v)
	return v, err
}

// Tuple decodes a List result into its raw elements, matching a graph
// built with Tuple.
func (r Result) Tuple() ([]Result, error) {
	var elems []json.RawMessage
	if err := r.Decode(&elems); err != nil {
		return nil, err
	}
	out := make([]Result, len(elems))
	for i, e := range elems {
		out[i] = Result{raw: e}
	}
	return out, nil
}
