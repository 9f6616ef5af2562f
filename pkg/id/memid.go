package id

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"time"
)

// utcCompactLayout renders the current instant with no separators, the
// "utc_compact" format a Memory id embeds.
const utcCompactLayout = "20060102150405"

// NewMemoryID builds a Memory id: "mem_" + utc_compact(now) + "_" +
// 4 lowercase hex digits of randomness. The timestamp prefix keeps ids
// roughly time-ordered; the random suffix disambiguates ids minted within
// the same second.
func NewMemoryID(now time.Time) string {
	var suffix [2]byte
	_, _ = io.ReadFull(rand.Reader, suffix[:])
	return "mem_" + now.UTC().Format(utcCompactLayout) + "_" + hex.EncodeToString(suffix[:])
}
