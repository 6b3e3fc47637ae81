package refreshtoken

import (
	"context"
	"errors"
	"fmt"

	"github.com/tech-arch1tect/chatauth/config"
	"github.com/tech-arch1tect/chatauth/services/jwt"
	"github.com/tech-arch1tect/chatauth/services/logging"
	"github.com/tech-arch1tect/chatauth/services/tokenfamily"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken   = errors.New("invalid refresh token")
	ErrExpiredToken   = errors.New("refresh token expired")
	ErrStorageFailure = errors.New("token storage failure")
)

type Codec interface {
	IssueAccess(userID uint) (string, error)
	IssueRefresh(userID uint) (string, error)
	Verify(token string, role jwt.Role) (*jwt.Claims, error)
	AccessExpirySeconds() int
}

type FamilyStore interface {
	CreateFamily(ctx context.Context, userID uint, token, deviceInfo string) (uint, error)
	AppendToFamily(ctx context.Context, familyID uint, supersedes, newToken string) error
	FindFamilyByToken(ctx context.Context, token string) (uint, error)
	RevokeFamily(ctx context.Context, familyID uint) error
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Service rotates refresh credentials within their token family.
type Service struct {
	codec  Codec
	store  FamilyStore
	config *config.Config
	logger *logging.Service
}

func NewService(codec Codec, store FamilyStore, cfg *config.Config, logger *logging.Service) *Service {
	logger = logger.Named("refresh")
	logger.Info("initializing refresh rotation service",
		zap.Duration("refresh_expiry", cfg.JWT.RefreshExpiry),
		zap.Bool("revoke_family_on_reuse", cfg.Refresh.RevokeFamilyOnReuse))

	return &Service{
		codec:  codec,
		store:  store,
		config: cfg,
		logger: logger,
	}
}

// NewFamily mints the first refresh credential of a new lineage.
func (s *Service) NewFamily(ctx context.Context, userID uint, deviceInfo string) (string, error) {
	token, err := s.codec.IssueRefresh(userID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	if _, err := s.store.CreateFamily(ctx, userID, token, deviceInfo); err != nil {
		s.logger.Error("failed to start token family", zap.Uint("user_id", userID), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	return token, nil
}

// Rotate exchanges a valid, still-active refresh credential for a new pair.
// The presented credential is superseded and can never be rotated again.
func (s *Service) Rotate(ctx context.Context, oldToken string) (*TokenPair, error) {
	claims, err := s.codec.Verify(oldToken, jwt.RoleRefresh)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredSignature) {
			s.logger.Debug("rotation rejected, credential expired", logging.Fingerprint(oldToken))
			return nil, ErrExpiredToken
		}
		s.logger.Debug("rotation rejected, credential malformed", logging.Fingerprint(oldToken))
		return nil, ErrInvalidToken
	}

	familyID, err := s.store.FindFamilyByToken(ctx, oldToken)
	if err != nil {
		return nil, s.lookupFailure(ctx, familyID, oldToken, err)
	}

	newRefresh, err := s.codec.IssueRefresh(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	if err := s.store.AppendToFamily(ctx, familyID, oldToken, newRefresh); err != nil {
		if errors.Is(err, tokenfamily.ErrTokenSuperseded) || errors.Is(err, tokenfamily.ErrFamilyNotFound) {
			return nil, ErrInvalidToken
		}
		s.logger.Error("failed to rotate token family", zap.Uint("family_id", familyID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	access, err := s.codec.IssueAccess(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	s.logger.Info("refresh credential rotated",
		zap.Uint("user_id", claims.UserID),
		zap.Uint("family_id", familyID))

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: newRefresh,
		ExpiresIn:    s.codec.AccessExpirySeconds(),
	}, nil
}

// Revoke ends the family of a refresh credential owned by userID. Expired
// credentials report ErrExpiredToken; unknown, foreign or already superseded
// ones report ErrInvalidToken.
func (s *Service) Revoke(ctx context.Context, refreshToken string, userID uint) error {
	claims, err := s.codec.Verify(refreshToken, jwt.RoleRefresh)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredSignature) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}
	if claims.UserID != userID {
		s.logger.Warn("revocation rejected, credential belongs to another user",
			zap.Uint("user_id", userID),
			logging.Fingerprint(refreshToken))
		return ErrInvalidToken
	}

	familyID, err := s.store.FindFamilyByToken(ctx, refreshToken)
	switch {
	case errors.Is(err, tokenfamily.ErrTokenNotFound), errors.Is(err, tokenfamily.ErrTokenSuperseded):
		return ErrInvalidToken
	case err != nil:
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	if err := s.store.RevokeFamily(ctx, familyID); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	s.logger.Info("token family revoked on request",
		zap.Uint("user_id", userID),
		zap.Uint("family_id", familyID))
	return nil
}

func (s *Service) lookupFailure(ctx context.Context, familyID uint, token string, err error) error {
	switch {
	case errors.Is(err, tokenfamily.ErrTokenNotFound):
		s.logger.Warn("rotation rejected, credential never issued", logging.Fingerprint(token))
		return ErrInvalidToken
	case errors.Is(err, tokenfamily.ErrTokenSuperseded):
		s.logger.Warn("rotation rejected, credential reused",
			zap.Uint("family_id", familyID),
			logging.Fingerprint(token))
		if s.config.Refresh.RevokeFamilyOnReuse && familyID != 0 {
			if revokeErr := s.store.RevokeFamily(ctx, familyID); revokeErr != nil {
				s.logger.Error("failed to revoke family after reuse",
					zap.Uint("family_id", familyID),
					zap.Error(revokeErr))
			}
		}
		return ErrInvalidToken
	default:
		s.logger.Error("failed to resolve token family", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
}
