package distance

import (
	"math"
	"slices"
)

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	b = b[:len(a)]

	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= len(a); i += 4 {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}
	for ; i < len(a); i++ {
		s0 += a[i] * b[i]
	}
	return s0 + s1 + s2 + s3
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float32 {
	return float32(math.Sqrt(float64(Dot(v, v))))
}

// Cosine returns the cosine similarity of a and b.
// The second result is false when either vector has zero norm, in which case
// the similarity is undefined.
func Cosine(a, b []float32) (float32, bool) {
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0, false
	}
	return Dot(a, b) / (na * nb), true
}

// DotBatch computes the dot product of query against every row of a row-major
// matrix with dim columns and writes the results to out.
// len(out) must be at least len(matrix)/dim.
func DotBatch(query, matrix []float32, dim int, out []float32) {
	if dim <= 0 {
		return
	}
	n := len(matrix) / dim
	for i := 0; i < n; i++ {
		out[i] = Dot(query, matrix[i*dim:(i+1)*dim])
	}
}

// NormBatch computes the L2 norm of every row of a row-major matrix.
func NormBatch(matrix []float32, dim int, out []float32) {
	if dim <= 0 {
		return
	}
	n := len(matrix) / dim
	for i := 0; i < n; i++ {
		out[i] = Norm(matrix[i*dim : (i+1)*dim])
	}
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm := Norm(v)
	if norm == 0 {
		return false
	}
	inv := 1 / norm
	for i := range v {
		v[i] *= inv
	}
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}

// IsFinite reports whether every component of v is neither NaN nor infinite.
func IsFinite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
