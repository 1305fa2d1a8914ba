package tellus

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Node is a single invocation of a remote platform function. Nodes form a
// DAG: arguments may reference other nodes, and shared subexpressions are
// serialized exactly once.
//
// Nodes are created by handle methods and are never mutated afterwards.
type Node struct {
	fn   string
	args map[string]any
}

func invoke(fn string, args map[string]any) *Node {
	return &Node{fn: fn, args: args}
}

// Operand is anything that can stand at the root of a computation graph:
// Image, ImageCollection, FeatureCollection, Geometry, Matrix, Value and
// friends all implement it.
type Operand interface {
	node() *Node
}

// graphEncoder flattens a node DAG into the wire form
//
//	{"values": {"0": {"functionName": ..., "arguments": ...}, ...}, "result": "0"}
//
// Node arguments referencing other nodes become {"valueReference": id}.
type graphEncoder struct {
	ids    map[*Node]string
	values map[string]any
}

// MarshalGraph serializes the computation graph rooted at op into the wire
// format accepted by value.compute and friends.
func MarshalGraph(op Operand) ([]byte, error) {
	n := op.node()
	if n == nil {
		return nil, fmt.Errorf("tellus: cannot serialize zero-valued handle")
	}
	enc := &graphEncoder{
		ids:    make(map[*Node]string),
		values: make(map[string]any),
	}
	root, err := enc.visit(n)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{
		"values": enc.values,
		"result": root,
	})
}

func (e *graphEncoder) visit(n *Node) (string, error) {
	if id, ok := e.ids[n]; ok {
		return id, nil
	}
	id := fmt.Sprintf("%d", len(e.ids))
	// Reserve the id before recursing so shared nodes resolve to it.
	e.ids[n] = id

	args := make(map[string]any, len(n.args))
	// Deterministic argument order keeps serialized graphs stable for tests
	// and for platform-side caching.
	keys := make([]string, 0, len(n.args))
	for k := range n.args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := e.encodeArg(n.args[k])
		if err != nil {
			return "", fmt.Errorf("argument %q of %s: %w", k, n.fn, err)
		}
		args[k] = v
	}
	e.values[id] = map[string]any{
		"functionName": n.fn,
		"arguments":    args,
	}
	return id, nil
}

func (e *graphEncoder) encodeArg(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *Node:
		id, err := e.visit(t)
		if err != nil {
			return nil, err
		}
		return map[string]any{"valueReference": id}, nil
	case Operand:
		return e.encodeArg(t.node())
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			enc, err := e.encodeArg(el)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, el := range t {
			enc, err := e.encodeArg(el)
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	case bool, string, int, int64, float64, []string, []float64, [][]float64:
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported argument type %T", v)
	}
}

// Value is an untyped handle to a computed result: a number, list,
// dictionary, matrix, or anything else a graph can evaluate to.
type Value struct {
	n *Node
}

func (v Value) node() *Node { return v.n }

// NewValue wraps an arbitrary invocation in a Value handle. Most callers
// never need this; it exists for platform functions that have no dedicated
// helper yet.
func NewValue(fn string, args map[string]any) Value {
	return Value{n: invoke(fn, args)}
}

// Tuple bundles several computations into one list result so a single
// Compute round trip materializes all of them.
func Tuple(ops ...Operand) Value {
	vals := make([]any, len(ops))
	for i, op := range ops {
		vals[i] = op.node()
	}
	return Value{n: invoke("List", map[string]any{"values": vals})}
}
