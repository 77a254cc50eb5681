package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidAdminToken is returned when the presented admin token does
// not match the configured hash
var ErrInvalidAdminToken = errors.New("invalid admin token")

// VerifyAdminToken checks a presented token against the bcrypt hash
// configured for admin access
func VerifyAdminToken(token, tokenHash string) error {
	if tokenHash == "" {
		return errors.New("admin access is not configured")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
		return ErrInvalidAdminToken
	}
	return nil
}

// HashAdminToken produces a bcrypt hash for storing in configuration
func HashAdminToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenerateAdminToken creates a signed HS256 JWT for an admin session.
// The returned token id lets the session be revoked server-side.
func GenerateAdminToken(jwtSecret string, ttl time.Duration) (tokenString, tokenID string, err error) {
	tokenID = GenerateULID()
	now := time.Now().UTC()

	claims := jwt.MapClaims{
		"jti":   tokenID,
		"admin": true,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err = token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", "", err
	}
	return tokenString, tokenID, nil
}

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// TokenIDFromClaims extracts the jti claim for revocation checks
func TokenIDFromClaims(claims jwt.MapClaims) string {
	if jti, ok := claims["jti"].(string); ok {
		return jti
	}
	return ""
}
