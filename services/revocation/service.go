package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tech-arch1tect/chatauth/services/logging"
	"go.uber.org/zap"
)

var ErrStoreNotConfigured = errors.New("revocation store not configured")

// Service revokes individual access tokens by jti, used at logout so the
// still-valid access token stops working before it expires.
type Service struct {
	store  Store
	logger *logging.Service
}

func NewService(store Store, logger *logging.Service) *Service {
	return &Service{
		store:  store,
		logger: logger.Named("revocation"),
	}
}

func (s *Service) Revoke(jti string, expiresAt time.Time) error {
	if s.store == nil {
		return ErrStoreNotConfigured
	}
	if jti == "" {
		return fmt.Errorf("cannot revoke token without jti")
	}

	if err := s.store.Revoke(jti, expiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.logger.Info("access token revoked", zap.String("jti", jti))
	return nil
}

func (s *Service) IsRevoked(jti string) (bool, error) {
	if s.store == nil {
		return false, ErrStoreNotConfigured
	}

	revoked, err := s.store.IsRevoked(jti)
	if err != nil {
		s.logger.Error("failed to check revocation", zap.String("jti", jti), zap.Error(err))
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return revoked, nil
}

// RunCleanup prunes expired entries every interval until ctx is done.
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration) {
	if s.store == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.store.Cleanup()
			if err != nil {
				s.logger.Error("revocation cleanup failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				s.logger.Debug("revocation cleanup", zap.Int("removed", removed))
			}
		}
	}
}
