package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lumenlms/progression-backend/internal/config"
)

// TokenType distinguishes token audiences.
type TokenType string

const TokenTypeStudent TokenType = "student"

// Claims are the JWT claims this engine understands. Token issuance is the
// external auth layer's job; we share a signing secret and validate only.
type Claims struct {
	StudentID uuid.UUID `json:"student_id"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// AuthService validates bearer tokens for the progression endpoints.
type AuthService struct {
	cfg *config.Config
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{cfg: cfg}
}

// ValidateToken parses and validates a JWT, returning its claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	if claims.StudentID == uuid.Nil {
		return nil, errors.New("token has no student id")
	}
	return claims, nil
}

// GenerateStudentToken signs a student token. Used by the seed tooling and
// tests; production tokens come from the external auth service.
func (s *AuthService) GenerateStudentToken(studentID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		StudentID: studentID,
		TokenType: TokenTypeStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
