package tellus

import (
	"bytes"
	"encoding/json"
	"testing"
)

type wireGraph struct {
	Values map[string]struct {
		FunctionName string                     `json:"functionName"`
		Arguments    map[string]json.RawMessage `json:"arguments"`
	} `json:"values"`
	Result string `json:"result"`
}

func mustGraph(t *testing.T, op Operand) wireGraph {
	t.Helper()
	raw, err := MarshalGraph(op)
	if err != nil {
		t.Fatalf("MarshalGraph failed: %v", err)
	}
	var g wireGraph
	if err := json.Unmarshal(raw, &g); err != nil {
		t.Fatalf("graph is not valid JSON: %v", err)
	}
	return g
}

func TestMarshalGraph_Shape(t *testing.T) {
	g := mustGraph(t, NewImage("LC08/001"))

	if len(g.Values) != 1 {
		t.Fatalf("values: got %d entries, want 1", len(g.Values))
	}
	root, ok := g.Values[g.Result]
	if !ok {
		t.Fatalf("result id %q missing from values", g.Result)
	}
	if root.FunctionName != "Image.load" {
		t.Errorf("functionName: got %q, want Image.load", root.FunctionName)
	}
	var id string
	if err := json.Unmarshal(root.Arguments["id"], &id); err != nil || id != "LC08/001" {
		t.Errorf("id argument: got %q (err %v), want LC08/001", id, err)
	}
}

func TestMarshalGraph_SharedNodeSerializedOnce(t *testing.T) {
	img := NewImage("LC08/001")
	g := mustGraph(t, img.Add(img))

	var loads int
	for _, v := range g.Values {
		if v.FunctionName == "Image.load" {
			loads++
		}
	}
	if loads != 1 {
		t.Errorf("shared load node serialized %d times, want 1", loads)
	}
	// Two handles built separately are distinct nodes even with equal
	// arguments.
	g = mustGraph(t, NewImage("LC08/001").Add(NewImage("LC08/001")))
	loads = 0
	for _, v := range g.Values {
		if v.FunctionName == "Image.load" {
			loads++
		}
	}
	if loads != 2 {
		t.Errorf("distinct load nodes serialized %d times, want 2", loads)
	}
}

func TestMarshalGraph_ReferencesResolve(t *testing.T) {
	ndvi := NewImage("LC08/001").NormalizedDifference("B5", "B4")
	g := mustGraph(t, ndvi)

	root := g.Values[g.Result]
	if root.FunctionName != "Image.normalizedDifference" {
		t.Fatalf("root: got %q", root.FunctionName)
	}
	var ref struct {
		ValueReference string `json:"valueReference"`
	}
	if err := json.Unmarshal(root.Arguments["input"], &ref); err != nil {
		t.Fatalf("input argument is not a reference: %v", err)
	}
	if _, ok := g.Values[ref.ValueReference]; !ok {
		t.Errorf("input references %q, which is not in values", ref.ValueReference)
	}
}

func TestMarshalGraph_Deterministic(t *testing.T) {
	build := func() Operand {
		img := NewImage("LC08/001").Select("B4", "B5")
		return img.ReduceRegion(Mean().Combine(Max()), Rectangle(0, 0, 1, 1), 30)
	}
	a, err := MarshalGraph(build())
	if err != nil {
		t.Fatalf("MarshalGraph failed: %v", err)
	}
	b, err := MarshalGraph(build())
	if err != nil {
		t.Fatalf("MarshalGraph failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("same graph serialized differently:\n%s\n%s", a, b)
	}
}

func TestMarshalGraph_ZeroHandle(t *testing.T) {
	if _, err := MarshalGraph(Image{}); err == nil {
		t.Error("expected error for zero-valued handle")
	}
}

func TestTuple(t *testing.T) {
	img := NewImage("LC08/001")
	g := mustGraph(t, Tuple(img.BandNames(), img.BandNames()))

	root := g.Values[g.Result]
	if root.FunctionName != "List" {
		t.Fatalf("root: got %q, want List", root.FunctionName)
	}
	var refs []struct {
		ValueReference string `json:"valueReference"`
	}
	if err := json.Unmarshal(root.Arguments["values"], &refs); err != nil {
		t.Fatalf("values argument: %v", err)
	}
	if len(refs) != 2 {
		t.Errorf("values: got %d references, want 2", len(refs))
	}
}

func TestAPIError_Sentinels(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want func(error) bool
	}{
		{"not found", &APIError{Code: CodeNotFound, Message: "no such asset"}, IsNotFound},
		{"unauthorized", &APIError{Code: CodeUnauthorized, Message: "bad token"}, IsUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.want(tt.err) {
				t.Errorf("sentinel did not match %v", tt.err)
			}
			if IsNotFound(tt.err) && IsUnauthorized(tt.err) {
				t.Error("error matched both sentinels")
			}
		})
	}
}
