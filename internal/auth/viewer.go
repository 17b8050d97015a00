package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken is returned when a viewer token fails verification.
var ErrInvalidToken = errors.New("invalid viewer token")

// ViewerClaims identifies the table a viewer may watch.
type ViewerClaims struct {
	TableToken string `json:"table_token"`
	jwt.RegisteredClaims
}

// IssueViewerToken signs an HS256 token granting access to the frame stream
// of one table.
func IssueViewerToken(secret, tableToken string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := ViewerClaims{
		TableToken: tableToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tableToken,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign viewer token: %w", err)
	}
	return signed, exp, nil
}

// ParseViewerToken verifies the signature and expiry and returns the table
// token the viewer was issued for.
func ParseViewerToken(secret, token string) (string, error) {
	claims := &ViewerClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.TableToken == "" {
		return "", ErrInvalidToken
	}
	return claims.TableToken, nil
}
