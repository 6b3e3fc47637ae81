package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tech-arch1tect/chatauth/config"
	"github.com/tech-arch1tect/chatauth/services/logging"
	"go.uber.org/zap"
)

// ClaimsVersion is stamped into every credential; anything else is rejected.
const ClaimsVersion = 1

var (
	ErrMalformed        = errors.New("malformed credential")
	ErrExpiredSignature = errors.New("credential has expired")
)

type Role string

const (
	RoleAccess  Role = "access"
	RoleRefresh Role = "refresh"
)

type Claims struct {
	Version int  `json:"version"`
	UserID  uint `json:"user_id"`
	jwt.RegisteredClaims
}

// Service signs and verifies access and refresh credentials. Each role has
// its own secret, so a credential of one role never verifies as the other.
type Service struct {
	config *config.Config
	logger *logging.Service
	now    func() time.Time
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		logger: logger.Named("codec"),
		now:    time.Now,
	}
}

// WithClock returns a copy of the service that reads time from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	clone := *s
	clone.now = now
	return &clone
}

func (s *Service) AccessExpirySeconds() int {
	return int(s.config.JWT.AccessExpiry.Seconds())
}

func (s *Service) IssueAccess(userID uint) (string, error) {
	return s.issue(userID, RoleAccess)
}

func (s *Service) IssueRefresh(userID uint) (string, error) {
	return s.issue(userID, RoleRefresh)
}

func (s *Service) Verify(tokenString string, role Role) (*Claims, error) {
	secret, _, err := s.roleParams(role)
	if err != nil {
		return nil, ErrMalformed
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.logger.Debug("credential expired", zap.String("role", string(role)))
			return nil, ErrExpiredSignature
		}
		s.logger.Debug("credential rejected", zap.String("role", string(role)), zap.Error(err))
		return nil, ErrMalformed
	}

	if !token.Valid || claims.Version != ClaimsVersion {
		return nil, ErrMalformed
	}

	return claims, nil
}

func (s *Service) issue(userID uint, role Role) (string, error) {
	secret, ttl, err := s.roleParams(role)
	if err != nil {
		return "", err
	}

	now := s.now()
	claims := Claims{
		Version: ClaimsVersion,
		UserID:  userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.config.JWT.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		s.logger.Error("failed to sign credential", zap.String("role", string(role)), zap.Error(err))
		return "", fmt.Errorf("failed to sign %s credential: %w", role, err)
	}

	return tokenString, nil
}

func (s *Service) roleParams(role Role) ([]byte, time.Duration, error) {
	switch role {
	case RoleAccess:
		return s.config.JWT.AccessSecret, s.config.JWT.AccessExpiry, nil
	case RoleRefresh:
		return s.config.JWT.RefreshSecret, s.config.JWT.RefreshExpiry, nil
	default:
		return nil, 0, fmt.Errorf("unknown credential role %q", role)
	}
}
