package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issue signs an HS256 token carrying the user id and staff flag. The
// echo-jwt middleware validates it on the way back in.
func Issue(secret string, userID int64, staff bool, ttlHours int) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID,
		"staff": staff,
		"exp":   time.Now().Add(time.Duration(ttlHours) * time.Hour).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}
