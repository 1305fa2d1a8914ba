package tellustest

import (
	"math"
	"testing"
)

func TestParseExpression(t *testing.T) {
	tests := []struct {
		expr string
		vars map[string]float64
		want float64
	}{
		{"1 + 2 * 3", nil, 7},
		{"(1 + 2) * 3", nil, 9},
		{"2 ** 3 ** 2", nil, 512}, // right-associative
		{"-2 ** 2", nil, 4},       // unary minus binds tighter than **
		{"(nir - red) / (nir + red)", map[string]float64{"nir": 0.3, "red": 0.1}, 0.5},
		{"2.5 * (nir - red) / (nir + 6 * red - 7.5 * blue + 1)",
			map[string]float64{"nir": 0.3, "red": 0.1, "blue": 0.05}, 2.5 * 0.2 / 1.525},
		{"sqrt(x)", map[string]float64{"x": 9}, 3},
		{"pow(x, 3)", map[string]float64{"x": 2}, 8},
		{"min(a, b) + max(a, b)", map[string]float64{"a": 1, "b": 5}, 6},
		{"abs(-3.5)", nil, 3.5},
		{"log(exp(2))", nil, 2},
		{"x < 1", map[string]float64{"x": 0.5}, 1},
		{"x >= 1", map[string]float64{"x": 0.5}, 0},
		{"x == 2", map[string]float64{"x": 2}, 1},
		{"x != 2", map[string]float64{"x": 2}, 0},
		{"1e-2 + 1E2", nil, 100.01},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			node, err := parseExpression(tt.expr)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			got, err := node.eval(tt.vars)
			if err != nil {
				t.Fatalf("eval failed: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("got %g, want %g", got, tt.want)
			}
		})
	}
}

func TestParseExpression_Errors(t *testing.T) {
	bad := []string{
		"",
		"1 +",
		"(1 + 2",
		"1 2",
		"@",
	}
	for _, expr := range bad {
		if _, err := parseExpression(expr); err == nil {
			t.Errorf("%q: expected a parse error", expr)
		}
	}

	// Unknown functions and arity mismatches surface at evaluation.
	badEval := []string{"nope(1)", "sqrt(1, 2)"}
	for _, expr := range badEval {
		node, err := parseExpression(expr)
		if err != nil {
			t.Fatalf("%q: parse failed: %v", expr, err)
		}
		if _, err := node.eval(nil); err == nil {
			t.Errorf("%q: expected an evaluation error", expr)
		}
	}
}

func TestParseExpression_UnknownVariable(t *testing.T) {
	node, err := parseExpression("x + y")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if _, err := node.eval(map[string]float64{"x": 1}); err == nil {
		t.Error("expected an error for the unbound variable")
	}
}
