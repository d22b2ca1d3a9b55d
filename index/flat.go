// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package index

import (
	"fmt"
	"slices"

	"github.com/poiesic/intentdb/core"
)

// Candidate is a raw search result: a position into the index and the
// distance between the stored vector and the query.
type Candidate struct {
	Position int
	Distance float32
}

// Options contains configuration options for a Flat index.
type Options struct {
	// Distance selects the distance strategy. Default is squared L2.
	Distance DistanceType
}

// Option configures a Flat index at construction.
type Option func(*Options)

// WithDistance sets the distance strategy.
func WithDistance(dt DistanceType) Option {
	return func(o *Options) {
		o.Distance = dt
	}
}

// Flat is a flat index for exact nearest-neighbor search. Vectors are
// stored row-major in a single contiguous slice; the i-th row is the
// i-th added vector.
type Flat struct {
	dimension int
	distType  DistanceType
	distance  DistanceFunc
	data      []float32 // len(data) == count * dimension
	count     int
}

// New creates an empty Flat index for vectors of the given dimension.
func New(dimension int, opts ...Option) (*Flat, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension %d must be positive", dimension)
	}

	options := Options{Distance: DistanceTypeSquaredL2}
	for _, opt := range opts {
		opt(&options)
	}

	distance, err := distanceFuncFor(options.Distance)
	if err != nil {
		return nil, err
	}

	return &Flat{
		dimension: dimension,
		distType:  options.Distance,
		distance:  distance,
	}, nil
}

// Dimension returns the vector dimensionality of the index.
func (f *Flat) Dimension() int {
	return f.dimension
}

// Count returns the number of stored vectors.
func (f *Flat) Count() int {
	return f.count
}

// Add appends vectors to the index in input order. Each vector must have
// the index dimension; the input slices are copied, not retained.
//
// Add must not be called concurrently with Search or another Add.
func (f *Flat) Add(vectors ...[]float32) error {
	for i, vector := range vectors {
		if len(vector) != f.dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, index dimension is %d",
				core.ErrDimensionMismatch, i, len(vector), f.dimension)
		}
	}

	for _, vector := range vectors {
		f.data = append(f.data, vector...)
		f.count++
	}
	return nil
}

// Vector returns a copy of the vector at the given position.
func (f *Flat) Vector(position int) ([]float32, error) {
	if position < 0 || position >= f.count {
		return nil, fmt.Errorf("position %d out of range [0, %d)", position, f.count)
	}
	out := make([]float32, f.dimension)
	copy(out, f.data[position*f.dimension:(position+1)*f.dimension])
	return out, nil
}

// Search returns the min(k, Count()) nearest neighbors of the query by
// the index's distance strategy, ordered by ascending distance. Ties on
// exact-equal distance break by lower position, so rankings are stable
// across calls. Searching an empty index returns an empty slice.
//
// Any number of goroutines may Search concurrently once construction is
// complete.
func (f *Flat) Search(query []float32, k int) ([]Candidate, error) {
	if len(query) != f.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index dimension is %d",
			core.ErrDimensionMismatch, len(query), f.dimension)
	}

	if k <= 0 || f.count == 0 {
		return []Candidate{}, nil
	}

	candidates := make([]Candidate, f.count)
	for i := 0; i < f.count; i++ {
		row := f.data[i*f.dimension : (i+1)*f.dimension]
		candidates[i] = Candidate{
			Position: i,
			Distance: f.distance(query, row),
		}
	}

	slices.SortFunc(candidates, func(a, b Candidate) int {
		if a.Distance < b.Distance {
			return -1
		}
		if a.Distance > b.Distance {
			return 1
		}
		return a.Position - b.Position
	})

	if k > f.count {
		k = f.count
	}
	return candidates[:k], nil
}
