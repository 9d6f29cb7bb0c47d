// Package auth issues and verifies the session tokens handed out at join
// time. A token binds a user id to the name and role granted by the hub,
// so the websocket endpoint never trusts client-supplied identity.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tableslate/server/internal/perms"
	"tableslate/server/internal/scene"
)

var ErrInvalidToken = errors.New("auth: invalid token")

// Claims is the payload signed into every session token.
type Claims struct {
	Name string     `json:"name"`
	Role perms.Role `json:"role"`
	jwt.RegisteredClaims
}

// Authority signs and verifies session tokens with a shared secret.
type Authority struct {
	secret []byte
	ttl    time.Duration
}

// New creates an authority. A zero ttl means tokens last one day.
func New(secret []byte, ttl time.Duration) *Authority {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authority{secret: secret, ttl: ttl}
}

// Issue signs a token for a freshly joined user.
func (a *Authority) Issue(user scene.Id, name string, role perms.Role) (string, error) {
	now := time.Now()
	claims := Claims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(int64(user), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return token, nil
}

// Verify checks a token's signature and expiry and returns the user id it
// was issued for.
func (a *Authority) Verify(token string) (scene.Id, *Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return 0, nil, ErrInvalidToken
	}
	user, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	return scene.Id(user), claims, nil
}
