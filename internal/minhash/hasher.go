// Package minhash computes min-hash and min-max-hash vectors over the
// character n-grams of a string.
//
// Two seeded hash families are available. "fast" hashes each n-gram once
// with xxhash64 and derives the k functions by splitmix64 mixing with
// per-function seeds; "murmur" evaluates 32-bit murmur3 with seed+i for
// function i. Hash values are scaled into [0, 1).
package minhash

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"

	"github.com/paveg/tabprep/internal/config"
	"github.com/paveg/tabprep/internal/errors"
	"github.com/paveg/tabprep/internal/validation"
)

const (
	// 2^-53 and 2^-32 scale 53-bit and 32-bit hashes into [0, 1).
	scale53 = 1.0 / (1 << 53)
	scale32 = 1.0 / (1 << 32)
)

// Params are the hyperparameters that determine a vector.
type Params struct {
	NComponents int
	NGramMin    int
	NGramMax    int
	Hashing     string
	MinMax      bool
	Seed        uint64
}

// Validate reports the first configuration problem in p.
func (p Params) Validate(op string) error {
	if err := validation.ValidateChoice(op, "hashing", p.Hashing, config.HashingChoices...); err != nil {
		return err
	}
	if p.NComponents <= 0 {
		return errors.NewConfigurationError(op, fmt.Sprintf("n_components must be positive, got %d", p.NComponents))
	}
	if p.NGramMin <= 0 || p.NGramMax < p.NGramMin {
		return errors.NewConfigurationError(op,
			fmt.Sprintf("ngram_range must satisfy 0 < min <= max, got (%d, %d)", p.NGramMin, p.NGramMax))
	}
	if p.MinMax {
		if p.Hashing == config.HashingMurmur {
			return errors.NewConfigurationError(op,
				"minmax_hash encoding is not supported with the murmur hashing function")
		}
		if p.NComponents%2 != 0 {
			return errors.NewConfigurationError(op,
				fmt.Sprintf("n_components should be even when using minmax_hash encoding, got %d", p.NComponents))
		}
	}
	return nil
}

// Hasher maps strings to vectors. It is immutable and safe for concurrent use.
type Hasher struct {
	params Params
	nFuncs int
	seeds  []uint64
}

// New validates p and builds a Hasher.
func New(p Params) (*Hasher, error) {
	if err := p.Validate("minhash.New"); err != nil {
		return nil, err
	}

	nFuncs := p.NComponents
	if p.MinMax {
		nFuncs /= 2
	}

	h := &Hasher{params: p, nFuncs: nFuncs}
	if p.Hashing == config.HashingFast {
		h.seeds = make([]uint64, nFuncs)
		for i := range h.seeds {
			h.seeds[i] = splitmix64(p.Seed + uint64(i))
		}
	}
	return h, nil
}

// Params returns the hyperparameters of h.
func (h *Hasher) Params() Params {
	return h.params
}

// Vector returns the feature vector of s. Strings without any n-gram after
// normalisation map to the zero vector.
func (h *Hasher) Vector(s string) []float64 {
	out := make([]float64, h.params.NComponents)
	grams := NGrams(Normalize(s), h.params.NGramMin, h.params.NGramMax)
	if len(grams) == 0 {
		return out
	}

	mins := out[:h.nFuncs]
	for i := range mins {
		mins[i] = math.Inf(1)
	}
	var maxs []float64
	if h.params.MinMax {
		maxs = out[h.nFuncs:]
		for i := range maxs {
			maxs[i] = math.Inf(-1)
		}
	}

	for _, gram := range grams {
		switch h.params.Hashing {
		case config.HashingMurmur:
			data := []byte(gram)
			for i := range mins {
				v := float64(murmur3.Sum32WithSeed(data, uint32(h.params.Seed)+uint32(i))) * scale32
				mins[i] = min(mins[i], v)
			}
		default:
			base := xxhash.Sum64String(gram)
			for i, seed := range h.seeds {
				v := float64(splitmix64(base^seed)>>11) * scale53
				mins[i] = min(mins[i], v)
				if maxs != nil {
					maxs[i] = max(maxs[i], v)
				}
			}
		}
	}
	return out
}

// splitmix64 is the finaliser of the SplitMix64 generator.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
