package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mrand "math/rand"
)

// GenerateID returns a random hex string of the given byte length
func GenerateID(byteLen int) string {
	b := make([]byte, byteLen)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// GenerateUUID returns a random UUIDv4 string
func GenerateUUID() string {
	b := make([]byte, 16)
	rand.Read(b)
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

// Simulation randomness. math/rand's top-level functions are safe
// for concurrent use, and every arena ticks on its own goroutine.

func randFloat() float64 {
	return mrand.Float64()
}

// randRange returns a random float64 in [lo, hi)
func randRange(lo, hi float64) float64 {
	return lo + mrand.Float64()*(hi-lo)
}
