package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xelth-com/agrocampo/internal/access"
	"github.com/xelth-com/agrocampo/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateToken signs an access token carrying the user's id, role and email
func GenerateToken(user *models.User, secret string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	claims := jwt.MapClaims{
		"id":    user.ID,
		"rol":   user.RoleID,
		"email": user.Email,
		"exp":   time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses and validates a token
func ValidateToken(tokenString string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// IdentityFromClaims builds the caller identity from validated claims.
// JSON numbers decode as float64
func IdentityFromClaims(claims jwt.MapClaims) (access.Identity, error) {
	id, ok := claims["id"].(float64)
	if !ok || id <= 0 {
		return access.Identity{}, errors.New("token without user id")
	}
	rol, ok := claims["rol"].(float64)
	if !ok {
		return access.Identity{}, errors.New("token without role")
	}
	role, err := access.ParseRole(int(rol))
	if err != nil {
		return access.Identity{}, fmt.Errorf("token role: %w", err)
	}
	email, _ := claims["email"].(string)
	return access.Identity{UserID: uint(id), Role: role, Email: email}, nil
}
