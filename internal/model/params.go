package model

import "fmt"

// ParameterVector is an ordered sequence of physical parameters describing
// one fin instance. The meaning of each entry is given by a Schema.
type ParameterVector []float64

// Clone returns an independent copy of the vector.
func (p ParameterVector) Clone() ParameterVector {
	out := make(ParameterVector, len(p))
	copy(out, p)
	return out
}

// Schema names the entries of a ParameterVector. The layout is fixed:
// one conductivity per sub-fin pair (bottom to top), then the Biot number,
// then the post conductivity.
type Schema struct {
	SubFins int
	Names   []string
}

// NewSchema builds the schema for a fin with the given number of sub-fin
// pairs. subFins may be zero (a plain rectangular post).
func NewSchema(subFins int) Schema {
	names := make([]string, 0, subFins+2)
	for i := 1; i <= subFins; i++ {
		names = append(names, fmt.Sprintf("k%d", i))
	}
	names = append(names, "biot", "k0")
	return Schema{SubFins: subFins, Names: names}
}

// Len is the number of parameters in a vector laid out by this schema.
func (s Schema) Len() int { return s.SubFins + 2 }

// SubFinIndex returns the vector index of the i-th (0-based, bottom-up)
// sub-fin conductivity.
func (s Schema) SubFinIndex(i int) int { return i }

// BiotIndex returns the vector index of the Biot number.
func (s Schema) BiotIndex() int { return s.SubFins }

// PostIndex returns the vector index of the post conductivity.
func (s Schema) PostIndex() int { return s.SubFins + 1 }
