package blob

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const downloadAudience = "export-download"

var ErrInvalidLink = errors.New("invalid or expired download link")

// Signer issues and checks HS256 tokens granting read access to one key.
type Signer struct {
	secret  []byte
	baseURL string
	now     func() time.Time
}

func NewSigner(secret, publicBaseURL string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("download signing secret is empty")
	}
	return &Signer{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		now:     time.Now,
	}, nil
}

func (s *Signer) SignURL(key string, ttl time.Duration) (string, error) {
	token, err := s.Sign(key, ttl)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/exports/download?token=" + url.QueryEscape(token), nil
}

func (s *Signer) Sign(key string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   key,
		Audience:  jwt.ClaimStrings{downloadAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign download token: %w", err)
	}
	return signed, nil
}

// Verify returns the object key the token grants access to.
func (s *Signer) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(downloadAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidLink
	}
	return claims.Subject, nil
}
