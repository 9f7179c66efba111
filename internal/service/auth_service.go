package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ujione-id/ujione-backend/internal/config"
	"github.com/ujione-id/ujione-backend/internal/model"
)

// TokenType distinguishes participant vs monitor tokens.
type TokenType string

const (
	TokenTypeParticipant TokenType = "participant"
	TokenTypeMonitor     TokenType = "monitor"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType  TokenType `json:"token_type"`
	AttemptID  string    `json:"attempt_id,omitempty"` // Participant only
	ExamID     string    `json:"exam_id,omitempty"`
	ExamineeID int       `json:"examinee_id,omitempty"` // Participant only
}

// AuthService issues and validates the JWTs that gate the participant
// stream and the monitor surface.
type AuthService struct {
	cfg *config.Config
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{cfg: cfg}
}

// IssueParticipantToken creates a JWT bound to a single attempt. The token
// is what the websocket stream authenticates with, so it carries everything
// the handler needs without a DB round trip.
func (s *AuthService) IssueParticipantToken(attempt *model.Attempt) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   attempt.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType:  TokenTypeParticipant,
		AttemptID:  attempt.ID.String(),
		ExamID:     attempt.ExamID.String(),
		ExamineeID: attempt.ExamineeID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// IssueMonitorToken creates a JWT scoped to one exam's monitor surface.
func (s *AuthService) IssueMonitorToken(examID uuid.UUID) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   examID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: TokenTypeMonitor,
		ExamID:    examID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
