package information

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

const (
	shingleSize     = 5 // byte shingles
	numPermutations = 128
	lshBands        = 32
	lshRows         = 4 // lshBands * lshRows == numPermutations
)

// mersennePrime is 2^61 - 1, the modulus of the permutation family.
const mersennePrime = uint64(1)<<61 - 1

// permutation coefficients, generated once from a fixed seed so
// signatures are stable across runs and processes.
var permA, permB = func() ([numPermutations]uint64, [numPermutations]uint64) {
	var a, b [numPermutations]uint64
	state := uint64(0x51_7c_c1_b7_27_22_0a_95)
	next := func() uint64 {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		return state
	}
	for i := 0; i < numPermutations; i++ {
		a[i] = next()%(mersennePrime-1) + 1
		b[i] = next() % mersennePrime
	}
	return a, b
}()

// Signature is a 128-permutation MinHash signature.
type Signature [numPermutations]uint64

// MinHash computes the signature of a byte payload over its k-byte
// shingles. Shingle base hashes use blake2b so unrelated content cannot
// collide systematically. Payloads shorter than one shingle hash as a
// single shingle.
func MinHash(content []byte) Signature {
	var sig Signature
	for i := range sig {
		sig[i] = ^uint64(0)
	}

	update := func(shingle []byte) {
		sum := blake2b.Sum256(shingle)
		h := binary.LittleEndian.Uint64(sum[:8]) % mersennePrime
		for i := 0; i < numPermutations; i++ {
			v := (permA[i]*h + permB[i]) % mersennePrime
			if v < sig[i] {
				sig[i] = v
			}
		}
	}

	if len(content) < shingleSize {
		update(content)
		return sig
	}
	for i := 0; i+shingleSize <= len(content); i++ {
		update(content[i : i+shingleSize])
	}
	return sig
}

// EstimatedJaccard estimates the Jaccard similarity of the underlying
// shingle sets from two signatures.
func EstimatedJaccard(a, b Signature) float64 {
	match := 0
	for i := range a {
		if a[i] == b[i] {
			match++
		}
	}
	return float64(match) / float64(numPermutations)
}

// lshKey is one band's bucket key.
type lshKey struct {
	band int
	hash uint64
}

// lshBuckets assigns each signature to its 32 band buckets. Two
// signatures sharing any bucket become a candidate pair.
func lshBuckets(sig Signature) []lshKey {
	keys := make([]lshKey, lshBands)
	for band := 0; band < lshBands; band++ {
		var raw [lshRows * 8]byte
		for row := 0; row < lshRows; row++ {
			binary.LittleEndian.PutUint64(raw[row*8:], sig[band*lshRows+row])
		}
		sum := blake2b.Sum256(raw[:])
		keys[band] = lshKey{band: band, hash: binary.LittleEndian.Uint64(sum[:8])}
	}
	return keys
}
