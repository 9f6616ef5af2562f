package id

import (
	"strings"
	"testing"
	"time"
)

func TestNewMemoryIDShape(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 34, 56, 0, time.UTC)
	id := NewMemoryID(now)

	if !strings.HasPrefix(id, "mem_20260301123456_") {
		t.Errorf("expected prefix mem_20260301123456_, got %s", id)
	}

	suffix := id[strings.LastIndexByte(id, '_')+1:]
	if len(suffix) != 4 {
		t.Errorf("expected 4 hex digits of randomness, got %q", suffix)
	}
	for _, r := range suffix {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Errorf("suffix %q is not lowercase hex", suffix)
		}
	}
}

func TestNewMemoryID_DistinctWithinSameSecond(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		seen[NewMemoryID(now)] = true
	}
	if len(seen) < 2 {
		t.Error("expected random suffixes to disambiguate ids minted in the same second")
	}
}
