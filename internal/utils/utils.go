package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateJWT generates a JWT token for the given user ID and role
func GenerateJWT(userID, email, role, secret string, expiresIn int) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  role,
		"exp":   time.Now().Add(time.Duration(expiresIn) * time.Second).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// GenerateTicketNumber generates a human-readable ticket reference, e.g.
// "TKT-LQ3D8M-4F2A1C". Uniqueness is enforced by the database index; the
// random suffix keeps collisions within one timestamp tick negligible.
func GenerateTicketNumber() (string, error) {
	suffix, err := GenerateRandomString(3)
	if err != nil {
		return "", err
	}
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	return fmt.Sprintf("TKT-%s-%s", ts, strings.ToUpper(suffix)), nil
}

// GenerateRandomString returns n random bytes hex-encoded (2n characters)
func GenerateRandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
