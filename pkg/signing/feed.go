// Package signing issues and verifies agenda feed subscription tokens.
package signing

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// FeedAudience is the audience claim every feed token carries. Access tokens never
// carry it, so a feed token is rejected wherever a bearer token is expected.
const FeedAudience = "agenda-feed"

var (
	// ErrInvalidToken indicates a token that is malformed or carries a bad signature.
	ErrInvalidToken = errors.New("signing: invalid feed token")
	// ErrExpiredToken indicates a correctly signed token past its expiry.
	ErrExpiredToken = errors.New("signing: feed token expired")
)

// FeedClaims identify whose agenda a subscription feed serves.
type FeedClaims struct {
	UserID         string
	Role           string
	OrganizationID string
	ExpiresAt      time.Time
}

type feedTokenClaims struct {
	Role           string `json:"role"`
	OrganizationID string `json:"org"`
	jwt.RegisteredClaims
}

// FeedSigner creates and validates HS256 feed tokens.
type FeedSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewFeedSigner constructs a signer with the provided secret and TTL.
func NewFeedSigner(secret string, ttl time.Duration) *FeedSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &FeedSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the signer's clock.
func (s *FeedSigner) WithClock(now func() time.Time) *FeedSigner {
	if now != nil {
		s.now = now
	}
	return s
}

// Issue returns a signed token for claims, stamping the expiry.
func (s *FeedSigner) Issue(claims FeedClaims) (string, time.Time, error) {
	if claims.UserID == "" || claims.OrganizationID == "" {
		return "", time.Time{}, fmt.Errorf("user and organization required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, feedTokenClaims{
		Role:           claims.Role,
		OrganizationID: claims.OrganizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID,
			Audience:  jwt.ClaimStrings{FeedAudience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign feed token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates token and returns its claims.
func (s *FeedSigner) Parse(token string) (FeedClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &feedTokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(FeedAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return FeedClaims{}, ErrExpiredToken
		}
		return FeedClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*feedTokenClaims)
	if !ok || !parsed.Valid || claims.Subject == "" || claims.OrganizationID == "" {
		return FeedClaims{}, ErrInvalidToken
	}
	return FeedClaims{
		UserID:         claims.Subject,
		Role:           claims.Role,
		OrganizationID: claims.OrganizationID,
		ExpiresAt:      claims.ExpiresAt.Time,
	}, nil
}
