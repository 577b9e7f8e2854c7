package auth

import (
	"crypto/rsa"
	"errors"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSubject    = errors.New("user id not found in token")
)

// JWTVerifier verifies RS256 tokens issued by the auth service and returns the caller's user id.
type JWTVerifier struct {
	pub *rsa.PublicKey
}

func NewJWTVerifier(pubPath string) (*JWTVerifier, error) {
	b, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, err
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(b)
	if err != nil {
		return nil, err
	}
	return NewJWTVerifierFromKey(pub), nil
}

func NewJWTVerifierFromKey(pub *rsa.PublicKey) *JWTVerifier {
	return &JWTVerifier{pub: pub}
}

// VerifyToken returns the user id carried by a valid token.
func (j *JWTVerifier) VerifyToken(token string) (string, error) {
	t, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return j.pub, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	if !t.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	// try common claim keys
	for _, k := range []string{"user_id", "user_uuid", "sub"} {
		if v, ok := claims[k].(string); ok && v != "" {
			return v, nil
		}
	}
	return "", ErrNoSubject
}
