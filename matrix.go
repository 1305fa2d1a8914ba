package tellus

// Matrix is an opaque handle to a small dense matrix on the platform.
// Matrix operations run remotely; the client only ferries coefficient
// matrices small enough to embed in a request.
type Matrix struct {
	n *Node
}

func (m Matrix) node() *Node { return m.n }

// NewMatrix embeds a constant row-major matrix into the graph.
func NewMatrix(rows [][]float64) Matrix {
	return Matrix{n: invoke("Matrix.constant", map[string]any{"values": rows})}
}

// Cholesky computes the lower-triangular Cholesky factor L with m = L Lᵀ.
// The platform rejects non-positive-definite inputs.
func (m Matrix) Cholesky() Matrix {
	return Matrix{n: invoke("Matrix.cholesky", map[string]any{"input": m.n})}
}

// Transpose returns mᵀ.
func (m Matrix) Transpose() Matrix {
	return Matrix{n: invoke("Matrix.transpose", map[string]any{"input": m.n})}
}

// MatMul returns the matrix product m · other.
func (m Matrix) MatMul(other Matrix) Matrix {
	return Matrix{n: invoke("Matrix.multiply", map[string]any{
		"left": m.n, "right": other.n,
	})}
}

// Solve returns X with m · X = b.
func (m Matrix) Solve(b Matrix) Matrix {
	return Matrix{n: invoke("Matrix.solve", map[string]any{
		"input": m.n, "rhs": b.n,
	})}
}

// Inverse returns m⁻¹.
func (m Matrix) Inverse() Matrix {
	return Matrix{n: invoke("Matrix.inverse", map[string]any{"input": m.n})}
}

// Eigen computes the eigen-decomposition of a symmetric matrix. The result
// materializes as {"values": ascending eigenvalues, "vectors": matrix whose
// columns are the matching eigenvectors}.
func (m Matrix) Eigen() Value {
	return Value{n: invoke("Matrix.eigen", map[string]any{"input": m.n})}
}

// EigenValues evaluates to the ascending eigenvalues of a symmetric matrix
// as a list. Unlike Eigen, the result can feed further computations in the
// same graph.
func (m Matrix) EigenValues() Value {
	return Value{n: invoke("Matrix.eigenValues", map[string]any{"input": m.n})}
}

// EigenVectors returns the matrix whose columns are the eigenvectors of a
// symmetric matrix, ordered by ascending eigenvalue.
func (m Matrix) EigenVectors() Matrix {
	return Matrix{n: invoke("Matrix.eigenVectors", map[string]any{"input": m.n})}
}
