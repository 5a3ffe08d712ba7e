// File: internal/auth/jwt.go
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is how long a form session cookie stays valid.
const DefaultSessionTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid form session token")

// FormClaims bind a browser client to one open form instance.
type FormClaims struct {
	ClientID string `json:"cid"`
	FormID   string `json:"fid"`
	jwt.RegisteredClaims
}

// ClientClaims identify a browser client across form sessions. They carry no
// expiry: the client id keys the stored draft, which never expires.
type ClientClaims struct {
	ClientID string `json:"cid"`
	jwt.RegisteredClaims
}

// GenerateFormToken signs a session token for clientID and formID.
func GenerateFormToken(clientID, formID string, secretKey []byte, ttl time.Duration) (string, error) {
	if clientID == "" || formID == "" {
		return "", errors.New("client ID and form ID are required")
	}
	if len(secretKey) == 0 {
		return "", errors.New("secret key is required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	now := time.Now()
	claims := FormClaims{
		ClientID: clientID,
		FormID:   formID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey)
}

// ValidateFormToken checks the signature and expiry and returns the claims.
func ValidateFormToken(tokenString string, secretKey []byte) (*FormClaims, error) {
	claims := &FormClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.ClientID == "" || claims.FormID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateClientToken signs a long-lived client token for clientID.
func GenerateClientToken(clientID string, secretKey []byte) (string, error) {
	if clientID == "" {
		return "", errors.New("client ID is required")
	}
	if len(secretKey) == 0 {
		return "", errors.New("secret key is required")
	}

	claims := ClientClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  clientID,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey)
}

// ClientIDFromToken returns the client id of a token signed with secretKey.
// Only the signature is checked, so an expired form session still names its
// client.
func ClientIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &ClientClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return "", err
	}
	if claims.ClientID == "" {
		return "", ErrInvalidToken
	}
	return claims.ClientID, nil
}
