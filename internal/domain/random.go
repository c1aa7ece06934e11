package domain

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	mrand "math/rand/v2"
	"sync"
)

const maxBound = 1 << 32

// SecureSource draws uniform integers from a cryptographically strong byte
// stream using 32-bit rejection sampling, so no value is favoured when 2^32
// is not a multiple of the bound.
type SecureSource struct {
	r io.Reader
}

// NewSecureSource returns a SecureSource reading from r. A nil reader means
// crypto/rand.Reader.
func NewSecureSource(r io.Reader) *SecureSource {
	if r == nil {
		r = rand.Reader
	}
	return &SecureSource{r: r}
}

func (s *SecureSource) Next(maxExclusive int) (int, error) {
	if maxExclusive <= 0 || uint64(maxExclusive) > maxBound {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidBound, maxExclusive)
	}
	m := uint64(maxExclusive)
	limit := (maxBound / m) * m

	var buf [4]byte
	for {
		if _, err := io.ReadFull(s.r, buf[:]); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrEntropyUnavailable, err)
		}
		x := uint64(binary.BigEndian.Uint32(buf[:]))
		if x < limit {
			return int(x % m), nil
		}
	}
}

// SeededSource is a reproducible PCG-based source for simulations and
// replays. It is NOT cryptographically strong: anyone who learns the seed
// can predict every spin.
type SeededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SeededSource) Next(maxExclusive int) (int, error) {
	if maxExclusive <= 0 || uint64(maxExclusive) > maxBound {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidBound, maxExclusive)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(maxExclusive), nil
}
