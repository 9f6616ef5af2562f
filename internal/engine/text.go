package engine

import (
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// tokenRe splits on anything that isn't an ASCII letter, digit, or underscore,
// matching the index's own word-tokenized text index (min token length 2,
// lowercased).
var tokenRe = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// Tokenize lowercases and splits s into index-compatible word tokens,
// dropping anything shorter than 2 characters.
func Tokenize(s string) []string {
	raw := tokenRe.FindAllString(strings.ToLower(s), -1)
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if len(t) >= 2 {
			out = append(out, t)
		}
	}
	return out
}

// SparseVector builds a stateless BM25-style sparse embedding from text:
// each token hashes to a dimension, weighted by log-scaled term frequency.
// A full corpus-level IDF needs a stateful index pass this engine doesn't
// keep, so the hashing trick stands in for it — good enough to drive the
// sparse ANN leg without a second service.
func SparseVector(text string) map[uint32]float32 {
	tokens := Tokenize(text)
	counts := make(map[uint32]int, len(tokens))
	for _, t := range tokens {
		counts[hashToken(t)]++
	}
	out := make(map[uint32]float32, len(counts))
	for dim, tf := range counts {
		out[dim] = float32(1 + math.Log(float64(tf)))
	}
	return out
}

func hashToken(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return h.Sum32()
}
