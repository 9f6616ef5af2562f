package id

import (
	"crypto/rand"
	"io"

	"github.com/google/uuid"
)

// UUIDGenerator generates UUID v4 identifiers on top of google/uuid.
type UUIDGenerator struct {
	reader io.Reader
}

// UUIDOption is a functional option for UUIDGenerator.
type UUIDOption func(*UUIDGenerator)

// WithReader sets a custom random reader for UUID generation.
func WithReader(r io.Reader) UUIDOption {
	return func(g *UUIDGenerator) {
		g.reader = r
	}
}

// NewUUIDGenerator creates a new UUID v4 generator.
func NewUUIDGenerator(opts ...UUIDOption) *UUIDGenerator {
	g := &UUIDGenerator{
		reader: rand.Reader,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate creates a new UUID v4 string.
// Panics if the random source fails (should never happen with crypto/rand).
func (g *UUIDGenerator) Generate() string {
	id, err := g.GenerateE()
	if err != nil {
		panic("id: failed to generate UUID: " + err.Error())
	}
	return id
}

// GenerateE creates a new UUID v4 string, returning an error on failure.
// Use this variant when you need explicit error handling.
func (g *UUIDGenerator) GenerateE() (string, error) {
	id, err := uuid.NewRandomFromReader(g.reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// GenerateN creates n UUID v4 strings.
func (g *UUIDGenerator) GenerateN(n int) []string {
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = g.Generate()
	}
	return ids
}

// ParseUUID parses a UUID string and returns its raw bytes.
func ParseUUID(s string) ([16]byte, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return [16]byte{}, ErrInvalidUUID
	}
	return [16]byte(id), nil
}

// IsValidUUID checks if a string is a valid UUID format.
func IsValidUUID(s string) bool {
	_, err := ParseUUID(s)
	return err == nil
}
