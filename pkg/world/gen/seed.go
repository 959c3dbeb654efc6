package gen

import "math/rand/v2"

// seedStream is the fixed PCG stream selector used for every generator in
// this package. Changing it changes every cave ever generated.
const seedStream = 0x9e3779b97f4a7c15

// NewRand returns a PCG generator deterministically seeded by seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), seedStream))
}

// DeriveSeed returns the seed of chunk (chunkX, chunkY) for a world seed.
// Two nested draws: the first keyed by the world seed and chunkX, the second
// by that result and chunkY. The result depends on nothing else, so chunks
// can be generated in any order.
func DeriveSeed(globalSeed int64, chunkX, chunkY int) int64 {
	column := int64(NewRand(globalSeed).Uint64()) + int64(chunkX)
	return int64(NewRand(column).Uint64()) + int64(chunkY)
}
