package auth

import (
	"crypto/ecdsa"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Claims carried by every access token.
type Claims struct {
	Session string `json:"session"`
	jwt.RegisteredClaims
}

// Token is returned to clients after login or refresh.
type Token struct {
	JWT          string    `json:"jwt_token"`
	RefreshToken string    `json:"refresh_token"`
	NotBefore    time.Time `json:"not_before"`
	NotAfter     time.Time `json:"not_after"`
}

// Issuer signs and verifies ES256 session tokens.
type Issuer struct {
	key    *ecdsa.PrivateKey
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(key *ecdsa.PrivateKey, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{key: key, issuer: issuer, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue creates a token for the session, valid from now for the issuer's TTL.
func (i *Issuer) Issue(sessionID, refreshToken string) (Token, error) {
	notBefore := i.now().UTC().Truncate(time.Second)
	notAfter := notBefore.Add(i.ttl)
	claims := Claims{
		Session: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(notBefore),
			NotBefore: jwt.NewNumericDate(notBefore),
			ExpiresAt: jwt.NewNumericDate(notAfter),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(i.key)
	if err != nil {
		return Token{}, errors.Wrap(err, "sign token")
	}
	return Token{JWT: signed, RefreshToken: refreshToken, NotBefore: notBefore, NotAfter: notAfter}, nil
}

// Parse verifies signature, issuer and time claims.
func (i *Issuer) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return &i.key.PublicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Session == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
