package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/georgemunganga/pantry-backend/internal/config"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Subject is the token subject issued to the household.
const Subject = "household"

type service struct {
	passcodeHash []byte
	jwtKey       []byte
	ttl          time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates an auth service from cfg.
func NewService(cfg config.AuthConfig, logger *zap.Logger) Service {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &service{
		passcodeHash: []byte(cfg.PasscodeHash),
		jwtKey:       []byte(cfg.JWTSecret),
		ttl:          ttl,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *service) Enabled() bool { return len(s.passcodeHash) > 0 }

func (s *service) Login(ctx context.Context, passcode string) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	if err := bcrypt.CompareHashAndPassword(s.passcodeHash, []byte(passcode)); err != nil {
		s.logger.Warn("rejected login", zap.Error(err))
		return "", ErrInvalidCredentials
	}

	claims := &jwt.StandardClaims{
		Subject:   Subject,
		IssuedAt:  s.now().Unix(),
		ExpiresAt: s.now().Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

func (s *service) Verify(tokenString string) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtKey, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject != Subject {
		return "", fmt.Errorf("%w: unexpected subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
