package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RevealClaims identify one player's secret in one room. A token holding them
// is a capability link, not a login.
type RevealClaims struct {
	RoomCode string `json:"room"`
	UserID   string `json:"uid"`
	jwt.RegisteredClaims
}

// GenerateRevealToken signs a reveal link token valid for ttl
func GenerateRevealToken(roomCode, userID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &RevealClaims{
		RoomCode: roomCode,
		UserID:   userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateRevealToken validates and parses a reveal link token
func ValidateRevealToken(tokenString, secret string) (*RevealClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RevealClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*RevealClaims); ok && token.Valid {
		if claims.RoomCode == "" || claims.UserID == "" {
			return nil, fmt.Errorf("incomplete reveal token")
		}
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
