package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"claimdesk/internal/domain/claim"
)

const tokenIssuer = "claimdesk"

type actorClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// issueActorToken signs an HS256 token whose subject is the user id.
func issueActorToken(secret string, user claim.User, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if strings.TrimSpace(secret) == "" {
		return "", time.Time{}, errors.New("jwt secret is required")
	}
	if strings.TrimSpace(user.ID) == "" {
		return "", time.Time{}, errors.New("user id is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	expireAt := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &actorClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expireAt),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expireAt, nil
}

// parseActorToken returns the user id carried by a valid token. The role claim
// is informational only; the caller reloads the user.
func parseActorToken(secret string, raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &actorClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	parsed, ok := token.Claims.(*actorClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return "", errors.New("token has no subject")
	}
	return parsed.Subject, nil
}

// bearerToken reads the Authorization header, falling back to ?access_token=
// for websocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

type actorContextKey struct{}

func withRequestActor(ctx context.Context, actor claim.User) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func requestActor(ctx context.Context) (claim.User, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(claim.User)
	return actor, ok
}
