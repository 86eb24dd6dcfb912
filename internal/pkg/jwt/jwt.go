package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const (
	PurposeSession     = "session"
	PurposeVerifyEmail = "verify_email"
	PurposeReset       = "reset_password"
)

var ErrPurposeMismatch = errors.New("token purpose mismatch")

// Claims is shared by session, email verification and password reset
// tokens. Purpose keeps one kind from being accepted as another.
type Claims struct {
	Purpose string `json:"purpose"`
	UserID  string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
	jwtlib.RegisteredClaims
}

func GenerateToken(claims Claims, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	claims.RegisteredClaims = jwtlib.RegisteredClaims{
		ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwtlib.NewNumericDate(now),
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ParseToken(tokenString string, secret []byte, purpose string, now time.Time) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenString, &Claims{}, func(token *jwtlib.Token) (interface{}, error) {
		if token.Method.Alg() != jwtlib.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	},
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Purpose != purpose {
		return nil, ErrPurposeMismatch
	}
	return claims, nil
}

// ResetSecret derives the signing key of a password reset token. Changing
// the password changes the key, so outstanding reset tokens stop verifying.
func ResetSecret(secret []byte, passwordHash string) []byte {
	key := make([]byte, 0, len(secret)+len(passwordHash))
	key = append(key, secret...)
	return append(key, passwordHash...)
}
