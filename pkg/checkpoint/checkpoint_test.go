package checkpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	s := NewSealer("test-key", "memoryctl", 0)

	token, err := s.Seal("u1", "teamA", "jrn_chk_1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := s.Open(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "teamA", claims.TeamID)
	assert.Equal(t, "jrn_chk_1", claims.JournalID)
}

func TestOpen_RejectsWrongKey(t *testing.T) {
	token, err := NewSealer("key-one", "memoryctl", 0).Seal("u1", "", "jrn_chk_2")
	require.NoError(t, err)

	_, err = NewSealer("key-two", "memoryctl", 0).Open(token)
	require.Error(t, err)
}

func TestOpen_RejectsExpiredToken(t *testing.T) {
	s := NewSealer("test-key", "memoryctl", time.Millisecond)
	token, err := s.Seal("u1", "", "jrn_chk_3")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = s.Open(token)
	require.Error(t, err)
}
