// Package xorshift provides the cheap per-worker generator used to pick
// exchange cells and to drive benchmark workloads.
package xorshift

// Rand is Marsaglia's xorshift96 (period 2^96-1). Not safe for concurrent
// use; every worker owns one.
type Rand struct {
	x, y, z uint64
}

const (
	seedX = 123456789
	seedY = 362436069
	seedZ = 521288629
)

// New returns a generator with the classic fixed seeds.
func New() *Rand {
	return &Rand{x: seedX, y: seedY, z: seedZ}
}

// NewSeeded returns a generator whose stream is derived from seed, so
// workers with different ids do not walk the same sequence.
func NewSeeded(seed uint64) *Rand {
	r := &Rand{}
	r.Seed(seed)
	return r
}

// Seed resets the generator state from seed.
func (r *Rand) Seed(seed uint64) {
	r.x = seedX ^ splitmix(&seed)
	r.y = seedY ^ splitmix(&seed)
	r.z = seedZ ^ splitmix(&seed)
	if r.x|r.y|r.z == 0 {
		r.x = seedX
	}
}

// Uint64 returns the next value.
func (r *Rand) Uint64() uint64 {
	x := r.x
	x ^= x << 16
	x ^= x >> 5
	x ^= x << 1

	t := x
	r.x = r.y
	r.y = r.z
	r.z = t ^ r.x ^ r.y
	return r.z
}

// Intn returns a value in [0, n). n must be positive.
func (r *Rand) Intn(n int) int {
	return int(r.Uint64() % uint64(n))
}

func splitmix(s *uint64) uint64 {
	*s += 0x9e3779b97f4a7c15
	z := *s
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
