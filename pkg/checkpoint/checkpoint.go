// Package checkpoint seals a session hand-off payload into a signed JWT
// and opens it back up (see pkg/llm's provider registry for the sibling
// narrow-interface style).
package checkpoint

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/kart-io/memoryctl/pkg/errors"
)

// Claims is the checkpoint payload embedded in the token: the tenant it
// belongs to and the journal entry id it hands off from.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	TeamID    string `json:"tid,omitempty"`
	JournalID string `json:"jid"`
}

// Sealer seals and opens checkpoint tokens under one HMAC key.
type Sealer struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

// NewSealer builds a Sealer. ttl<=0 means checkpoint tokens never expire,
// matching a checkpoint's role as a durable session hand-off rather than
// a short-lived credential.
func NewSealer(key, issuer string, ttl time.Duration) *Sealer {
	return &Sealer{key: []byte(key), issuer: issuer, ttl: ttl}
}

// Seal produces a signed token carrying userID/teamID/journalID.
func (s *Sealer) Seal(userID, teamID, journalID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
		UserID:    userID,
		TeamID:    teamID,
		JournalID: journalID,
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", errors.ErrStorage.WithCause(err)
	}
	return signed, nil
}

// Open validates and decodes a sealed checkpoint token.
func (s *Sealer) Open(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return nil, errors.ErrValidation.WithCause(err)
	}
	if !token.Valid {
		return nil, errors.ErrValidation.WithMessage("checkpoint token invalid")
	}
	return claims, nil
}
