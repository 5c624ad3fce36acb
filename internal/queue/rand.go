package queue

import (
	"crypto/rand"
	"encoding/binary"
)

// rng is a Park-Miller minimal-standard multiplicative congruential
// generator with a 32-entry Bays-Durham shuffle table, ported from
// rng.c/rng.h (Numerical Recipes in C, 2nd ed.). It is seeded from
// crypto/rand instead of gcrypt's GCRY_STRONG_RANDOM.
type rng struct {
	seed int32
	iv   [32]int32
	iy   int32
}

const rngMax = 0x7fffffff // 2147483647

func rngRandInternal(seed *int32) int32 {
	hi := *seed / 127773
	lo := *seed % 127773
	res := 16807*lo - 2836*hi
	if res < 0 {
		res += rngMax
	}
	*seed = res
	return res
}

func newRNG() *rng {
	r := &rng{}
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is a fatal environment problem; a fixed
		// non-zero seed keeps queue construction from panicking.
		b = [4]byte{1, 2, 3, 4}
	}
	r.seed = int32(binary.LittleEndian.Uint32(b[:]) & 0x7fffffff)
	if r.seed == 0 {
		r.seed = 1
	}

	// Load the shuffle array; the first 8 iterations are discarded.
	for i := len(r.iv) + 7; i >= 0; i-- {
		val := rngRandInternal(&r.seed)
		if i < len(r.iv) {
			r.iv[i] = val
		}
	}
	r.iy = r.iv[0]
	return r
}

func (r *rng) rand() int32 {
	i := r.iy / (1 + (rngMax-1)/int32(len(r.iv)))
	r.iy = r.iv[i]
	r.iv[i] = rngRandInternal(&r.seed)
	return r.iy
}

// randRange returns a uniform value in [min, max) via rejection sampling,
// translated from GLib's g_rand_int_range.
func (r *rng) randRange(min, max int32) int32 {
	dist := max - min
	if dist <= 0 {
		return min
	}

	var maxvalue uint32
	if uint32(dist) <= 0x80000000 {
		leftover := (0x80000000 % uint32(dist)) * 2
		if leftover >= uint32(dist) {
			leftover -= uint32(dist)
		}
		maxvalue = 0xffffffff - leftover
	} else {
		maxvalue = uint32(dist) - 1
	}

	var res int32
	for {
		res = r.rand()
		if uint32(res) <= maxvalue {
			break
		}
	}
	return min + res%dist
}

// shuffle performs an in-place Fisher-Yates (Durstenfeld) shuffle.
func (r *rng) shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := int(r.randRange(0, int32(i+1)))
		swap(i, j)
	}
}
