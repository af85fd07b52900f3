package cache

import (
	"encoding/binary"
	"fmt"
	"math"
)

const vectorHeaderSize = 4

// EncodeVector packs a float32 vector into a blob for sqlite storage:
// a 4-byte little-endian dimension followed by the little-endian values.
func EncodeVector(vector []float32) ([]byte, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("encode vector: empty vector")
	}

	blob := make([]byte, vectorHeaderSize+len(vector)*4)
	binary.LittleEndian.PutUint32(blob[:vectorHeaderSize], uint32(len(vector)))

	offset := vectorHeaderSize
	for _, value := range vector {
		binary.LittleEndian.PutUint32(blob[offset:offset+4], math.Float32bits(value))
		offset += 4
	}
	return blob, nil
}

// DecodeVector unpacks a blob produced by EncodeVector.
func DecodeVector(blob []byte) ([]float32, error) {
	if len(blob) < vectorHeaderSize {
		return nil, fmt.Errorf("decode vector: blob too short: %d bytes", len(blob))
	}

	dim := int(binary.LittleEndian.Uint32(blob[:vectorHeaderSize]))
	if dim <= 0 {
		return nil, fmt.Errorf("decode vector: invalid dimension: %d", dim)
	}
	if len(blob) != vectorHeaderSize+dim*4 {
		return nil, fmt.Errorf("decode vector: dimension mismatch: dim=%d payload=%d", dim, len(blob)-vectorHeaderSize)
	}

	vector := make([]float32, dim)
	offset := vectorHeaderSize
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[offset : offset+4]))
		offset += 4
	}
	return vector, nil
}
