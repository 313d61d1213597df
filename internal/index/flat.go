package index

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// flatMagic marks the head of a serialized flat index artifact.
const flatMagic uint32 = 0x41444958 // "ADIX"

// flat is a brute-force vector index over squared L2 distance. Vectors
// are position-aligned with the metadata log; the ordinal of a vector
// is the line number of its chunk. Not safe for concurrent use, the
// Store serializes access.
type flat struct {
	dim  int
	vecs [][]float32
}

// hit is one nearest-neighbor result by vector ordinal.
type hit struct {
	ordinal  int
	distance float64
}

func (f *flat) len() int { return len(f.vecs) }

// add appends vectors, fixing the index dimension on first insert.
// On error nothing is appended.
func (f *flat) add(vectors [][]float32) error {
	dim := f.dim
	for _, v := range vectors {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dim)
		}
	}
	f.dim = dim
	f.vecs = append(f.vecs, vectors...)
	return nil
}

// search returns the k nearest vectors by squared L2 distance,
// ascending. Over unit-normalized vectors this orders identically to
// cosine distance.
func (f *flat) search(query []float32, k int) ([]hit, error) {
	if len(f.vecs) == 0 {
		return nil, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), f.dim)
	}
	hits := make([]hit, len(f.vecs))
	for i, v := range f.vecs {
		hits[i] = hit{ordinal: i, distance: squaredL2(query, v)}
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].distance < hits[b].distance })
	if k > 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// MarshalBinary encodes the index as magic(uint32), dim(uint32),
// count(uint32), then count*dim little-endian float32 values.
func (f *flat) MarshalBinary() ([]byte, error) {
	out := make([]byte, 12, 12+4*f.dim*len(f.vecs))
	binary.LittleEndian.PutUint32(out[0:4], flatMagic)
	binary.LittleEndian.PutUint32(out[4:8], uint32(f.dim))
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(f.vecs)))
	var scratch [4]byte
	for _, v := range f.vecs {
		for _, x := range v {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(x))
			out = append(out, scratch[:]...)
		}
	}
	return out, nil
}

// UnmarshalBinary restores an index serialized by MarshalBinary.
func (f *flat) UnmarshalBinary(data []byte) error {
	if len(data) < 12 {
		return fmt.Errorf("%w: index artifact too short", ErrCorrupted)
	}
	if binary.LittleEndian.Uint32(data[0:4]) != flatMagic {
		return fmt.Errorf("%w: bad index magic", ErrCorrupted)
	}
	dim := int(binary.LittleEndian.Uint32(data[4:8]))
	n := int(binary.LittleEndian.Uint32(data[8:12]))
	if n > 0 && dim == 0 {
		return fmt.Errorf("%w: zero dimension with %d vectors", ErrCorrupted, n)
	}
	want := 12 + 4*dim*n
	if len(data) != want {
		return fmt.Errorf("%w: index artifact has %d bytes, want %d", ErrCorrupted, len(data), want)
	}
	vecs := make([][]float32, n)
	off := 12
	for i := range vecs {
		v := make([]float32, dim)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
		vecs[i] = v
	}
	f.dim = dim
	f.vecs = vecs
	return nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
