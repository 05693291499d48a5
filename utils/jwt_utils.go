package utils

import (
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// ValidateToken parses and verifies a signed JWT against JWT_SECRET.
func ValidateToken(tokenString string) (*jwt.Token, error) {
	secretKey := os.Getenv("JWT_SECRET")
	if secretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("error parsing token: %v", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return token, nil
}

// ExtractUserIDFromToken pulls the _id claim out of a verified token.
func ExtractUserIDFromToken(tokenString string) (string, error) {
	token, err := ValidateToken(tokenString)
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	userID, exists := claims["_id"]
	if !exists {
		return "", fmt.Errorf("_id claim not found in token")
	}

	userIDStr, ok := userID.(string)
	if !ok {
		return "", fmt.Errorf("_id claim is not a string")
	}

	return userIDStr, nil
}
