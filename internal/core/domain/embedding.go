package domain

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// EmbeddingVector is a document embedding stored in two representations:
// an opaque little-endian float32 payload and an ordered numeric sequence.
// Both decode to the same vector; if they ever diverge the payload wins.
type EmbeddingVector struct {
	DocumentID int64     `json:"document_id"`
	Bytes      []byte    `json:"-"`
	Values     []float64 `json:"values"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewEmbeddingVector builds both representations from a model output.
func NewEmbeddingVector(documentID int64, vec []float32) EmbeddingVector {
	values := make([]float64, len(vec))
	for i, v := range vec {
		values[i] = float64(v)
	}
	return EmbeddingVector{
		DocumentID: documentID,
		Bytes:      EncodeVector(vec),
		Values:     values,
	}
}

// Vector decodes the authoritative byte payload.
func (e EmbeddingVector) Vector() ([]float32, error) {
	return DecodeVector(e.Bytes)
}

// Dimension returns the vector length implied by the byte payload.
func (e EmbeddingVector) Dimension() int {
	return len(e.Bytes) / 4
}

// Consistent reports whether both representations agree within tol elementwise.
func (e EmbeddingVector) Consistent(tol float64) bool {
	vec, err := e.Vector()
	if err != nil || len(vec) != len(e.Values) {
		return false
	}
	for i := range vec {
		if math.Abs(float64(vec[i])-e.Values[i]) > tol {
			return false
		}
	}
	return true
}

// EncodeVector converts a []float32 to its little-endian byte payload.
func EncodeVector(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector converts a byte payload back to []float32.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: payload length %d is not a multiple of 4", ErrInvalidInput, len(data))
	}
	if len(data) == 0 {
		return nil, nil
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
