// Package auth issues and verifies the signed session tokens carried in the
// web tier's session cookie.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/voicetranslator/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the registered claims plus the signed-in account.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"aid"`
	Username  string `json:"usr"`
}

// Session is the identity recovered from a valid token.
type Session struct {
	AccountID string
	Username  string
	ExpiresAt time.Time
}

func GenerateToken(accountID, username string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		AccountID: accountID,
		Username:  username,
	})

	return token.SignedString(secretKey)
}

// ParseToken validates tokenString and returns the session it carries.
// Expired tokens yield common.ErrTokenExpired, anything else that fails
// validation yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Session, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.AccountID == "" {
		return nil, common.ErrInvalidToken
	}

	s := &Session{AccountID: claims.AccountID, Username: claims.Username}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}
