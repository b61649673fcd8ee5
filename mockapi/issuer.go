package mockapi

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("mockapi: invalid access token")
	ErrTokenExpired = errors.New("mockapi: token is expired")
)

const (
	issuerName = "walletgate-mock"
	audience   = "walletgate"
	keyID      = "mock-1"

	clockSkew = 2 * time.Minute
)

type accessClaims struct {
	SessionID string `json:"sid"`

	jwt.RegisteredClaims
}

// issuer signs and verifies the HS256 access tokens handed out by the mock
// backend. Each token carries a session id so it can be revoked on logout.
type issuer struct {
	keys map[string][]byte
	ttl  time.Duration
	now  func() time.Time
}

func newIssuer(secret []byte, ttl time.Duration, now func() time.Time) *issuer {
	if now == nil {
		now = time.Now
	}
	return &issuer{
		keys: map[string][]byte{keyID: secret},
		ttl:  ttl,
		now:  now,
	}
}

func (i *issuer) issue(userID uuid.UUID) (string, string, error) {
	sid := uuid.NewString()
	now := i.now()

	claims := accessClaims{
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Audience:  []string{audience},
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = keyID

	s, err := token.SignedString(i.keys[keyID])
	if err != nil {
		return "", "", err
	}
	return s, sid, nil
}

func (i *issuer) verify(tokenString string) (uuid.UUID, string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(clockSkew),
		jwt.WithIssuer(issuerName),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(i.now),
	)

	token, err := parser.ParseWithClaims(tokenString, &accessClaims{}, i.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, "", ErrTokenExpired
		}
		return uuid.Nil, "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return uuid.Nil, "", ErrInvalidToken
	}

	if claims.Subject == "" || claims.SessionID == "" {
		return uuid.Nil, "", ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", ErrInvalidToken
	}

	return userID, claims.SessionID, nil
}

func (i *issuer) keyFunc(t *jwt.Token) (any, error) {
	kid, ok := t.Header["kid"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	key, ok := i.keys[kid]
	if !ok {
		return nil, ErrInvalidToken
	}

	return key, nil
}
