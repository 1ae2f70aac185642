package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/foodgram/foodgram/backend/internal/metrics"
	"github.com/foodgram/foodgram/backend/internal/middleware"
	"github.com/foodgram/foodgram/backend/internal/models"
	"github.com/foodgram/foodgram/backend/internal/types"
)

// AuthService issues and validates access tokens
type AuthService struct {
	db          *gorm.DB
	jwtSecret   string
	tokenTTL    time.Duration
	revocations RevocationStore
}

func NewAuthService(db *gorm.DB, jwtSecret string, tokenTTL time.Duration, revocations RevocationStore) *AuthService {
	return &AuthService{
		db:          db,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
		revocations: revocations,
	}
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Login exchanges credentials for a signed token
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		metrics.AuthEvents.WithLabelValues("login_failed").Inc()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		metrics.AuthEvents.WithLabelValues("login_failed").Inc()
		return "", ErrInvalidCredentials
	}

	token, err := s.GenerateToken(&user)
	if err != nil {
		return "", err
	}

	metrics.AuthEvents.WithLabelValues("login").Inc()
	return token, nil
}

// GenerateToken signs a token for user
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		Role: string(user.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks the signature, expiry and revocation status of a
// token. The role is refreshed from the database so demotions apply at once.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*types.TokenClaims, error) {
	claims := &types.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	if claims.ID != "" {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return nil, errors.New("token has been revoked")
		}
	}

	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "role").First(&user, userID).Error; err != nil {
		return nil, errors.New("token user no longer exists")
	}
	claims.Role = string(user.Role)

	return claims, nil
}

// Logout revokes the caller's token until it would have expired
func (s *AuthService) Logout(ctx context.Context, caller middleware.Caller) error {
	if caller.IsAnonymous() {
		return ErrUnauthenticated
	}
	if caller.TokenID == "" {
		return nil
	}

	expiresAt := caller.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(s.tokenTTL)
	}
	if err := s.revocations.Revoke(ctx, caller.TokenID, expiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	metrics.AuthEvents.WithLabelValues("logout").Inc()
	return nil
}
