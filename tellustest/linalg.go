package tellustest

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// applyMatrix evaluates the Matrix.* primitives with gonum. Values flow
// through the graph as [][]float64.
func applyMatrix(fn string, a args) (any, error) {
	switch fn {
	case "Matrix.constant":
		m, err := a.matrix("values")
		if err != nil {
			return nil, err
		}
		if len(m) == 0 {
			return nil, fmt.Errorf("empty matrix")
		}
		cols := len(m[0])
		for _, row := range m {
			if len(row) != cols {
				return nil, fmt.Errorf("ragged matrix")
			}
		}
		return m, nil

	case "Matrix.cholesky":
		m, err := a.matrix("input")
		if err != nil {
			return nil, err
		}
		sym, err := toSym(m)
		if err != nil {
			return nil, err
		}
		var chol mat.Cholesky
		if !chol.Factorize(sym) {
			return nil, fmt.Errorf("matrix is not positive definite")
		}
		var l mat.TriDense
		chol.LTo(&l)
		return fromDense(&l), nil

	case "Matrix.transpose":
		m, err := a.matrix("input")
		if err != nil {
			return nil, err
		}
		d := toDense(m)
		return fromDense(d.T()), nil

	case "Matrix.multiply":
		left, err := a.matrix("left")
		if err != nil {
			return nil, err
		}
		right, err := a.matrix("right")
		if err != nil {
			return nil, err
		}
		var out mat.Dense
		out.Mul(toDense(left), toDense(right))
		return fromDense(&out), nil

	case "Matrix.solve":
		m, err := a.matrix("input")
		if err != nil {
			return nil, err
		}
		rhs, err := a.matrix("rhs")
		if err != nil {
			return nil, err
		}
		var out mat.Dense
		if err := out.Solve(toDense(m), toDense(rhs)); err != nil {
			return nil, fmt.Errorf("singular system: %w", err)
		}
		return fromDense(&out), nil

	case "Matrix.inverse":
		m, err := a.matrix("input")
		if err != nil {
			return nil, err
		}
		var out mat.Dense
		if err := out.Inverse(toDense(m)); err != nil {
			return nil, fmt.Errorf("singular matrix: %w", err)
		}
		return fromDense(&out), nil

	case "Matrix.eigen", "Matrix.eigenValues", "Matrix.eigenVectors":
		m, err := a.matrix("input")
		if err != nil {
			return nil, err
		}
		vals, vecs, err := symEigen(m)
		if err != nil {
			return nil, err
		}
		switch fn {
		case "Matrix.eigenValues":
			return floatsToAny(vals), nil
		case "Matrix.eigenVectors":
			return vecs, nil
		}
		return map[string]any{"values": floatsToAny(vals), "vectors": vecs}, nil
	}
	return nil, fmt.Errorf("unknown function")
}

func toDense(m [][]float64) *mat.Dense {
	rows, cols := len(m), len(m[0])
	d := mat.NewDense(rows, cols, nil)
	for i, row := range m {
		d.SetRow(i, row)
	}
	return d
}

func toSym(m [][]float64) (*mat.SymDense, error) {
	n := len(m)
	for _, row := range m {
		if len(row) != n {
			return nil, fmt.Errorf("matrix is not square")
		}
	}
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, (m[i][j]+m[j][i])/2)
		}
	}
	return s, nil
}

func fromDense(m mat.Matrix) [][]float64 {
	rows, cols := m.Dims()
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
		for j := range out[i] {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

func floatsToAny(v []float64) []any {
	out := make([]any, len(v))
	for i, f := range v {
		out[i] = f
	}
	return out
}

// symEigen decomposes a symmetric matrix and returns eigenvalues ascending
// with the eigenvector columns in matching order.
func symEigen(m [][]float64) ([]float64, [][]float64, error) {
	sym, err := toSym(m)
	if err != nil {
		return nil, nil, err
	}
	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return nil, nil, fmt.Errorf("eigen-decomposition failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	n := len(vals)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return vals[order[a]] < vals[order[b]] })

	outVals := make([]float64, n)
	outVecs := make([][]float64, n)
	for i := range outVecs {
		outVecs[i] = make([]float64, n)
	}
	for j, src := range order {
		outVals[j] = vals[src]
		for i := 0; i < n; i++ {
			outVecs[i][j] = vecs.At(i, src)
		}
	}
	return outVals, outVecs, nil
}
