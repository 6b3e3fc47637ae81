package tokenfamily

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tech-arch1tect/chatauth/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTokenNotFound   = errors.New("refresh token was never issued")
	ErrTokenSuperseded = errors.New("refresh token is no longer active")
	ErrFamilyNotFound  = errors.New("token family not found")
)

type Store struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewStore(db *gorm.DB, logger *logging.Service) *Store {
	return &Store{
		db:     db,
		logger: logger.Named("tokenfamily"),
	}
}

// CreateFamily starts a new lineage whose only token is token.
func (s *Store) CreateFamily(ctx context.Context, userID uint, token, deviceInfo string) (uint, error) {
	var familyID uint

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		family := TokenFamily{UserID: userID, DeviceInfo: deviceInfo}
		if err := tx.Create(&family).Error; err != nil {
			return fmt.Errorf("failed to create token family: %w", err)
		}

		if err := insertActive(tx, family.ID, token); err != nil {
			return err
		}

		familyID = family.ID
		return nil
	})
	if err != nil {
		s.logger.Error("failed to create token family", zap.Uint("user_id", userID), zap.Error(err))
		return 0, err
	}

	s.logger.Info("token family created",
		zap.Uint("user_id", userID),
		zap.Uint("family_id", familyID),
		logging.Fingerprint(token))

	return familyID, nil
}

// AppendToFamily makes newToken the active token of the family. It fails with
// ErrTokenSuperseded unless supersedes is still the active token, so two
// rotations of the same credential cannot both succeed. All links are
// expired and the new link inserted in the same transaction.
func (s *Store) AppendToFamily(ctx context.Context, familyID uint, supersedes, newToken string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var family TokenFamily
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&family, familyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFamilyNotFound
			}
			return fmt.Errorf("failed to lock token family: %w", err)
		}
		if family.Revoked() {
			return ErrTokenSuperseded
		}

		var current TokenFamilyLink
		err := tx.Joins("JOIN refresh_tokens ON refresh_tokens.id = token_family_links.token_id").
			Where("token_family_links.family_id = ? AND token_family_links.status = ? AND refresh_tokens.token = ?",
				familyID, StatusActive, supersedes).
			First(&current).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTokenSuperseded
			}
			return fmt.Errorf("failed to load active link: %w", err)
		}

		if err := expireLinks(tx, familyID); err != nil {
			return err
		}

		return insertActive(tx, familyID, newToken)
	})
	if err != nil {
		if errors.Is(err, ErrTokenSuperseded) {
			s.logger.Warn("rotation rejected, token no longer active",
				zap.Uint("family_id", familyID),
				logging.Fingerprint(supersedes))
		} else {
			s.logger.Error("failed to append to token family", zap.Uint("family_id", familyID), zap.Error(err))
		}
		return err
	}

	s.logger.Info("token family rotated",
		zap.Uint("family_id", familyID),
		logging.Fingerprint(newToken))

	return nil
}

// FindFamilyByToken resolves a stored token to its family. The family ID is
// also returned alongside ErrTokenSuperseded so callers can act on reuse.
func (s *Store) FindFamilyByToken(ctx context.Context, token string) (uint, error) {
	db := s.db.WithContext(ctx)

	var stored RefreshToken
	if err := db.Where("token = ?", token).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Debug("refresh token not found", logging.Fingerprint(token))
			return 0, ErrTokenNotFound
		}
		s.logger.Error("failed to look up refresh token", zap.Error(err))
		return 0, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	var link TokenFamilyLink
	if err := db.Where("token_id = ?", stored.ID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("token %d has no family link: %w", stored.ID, ErrTokenNotFound)
		}
		s.logger.Error("failed to look up family link", zap.Uint("token_id", stored.ID), zap.Error(err))
		return 0, fmt.Errorf("failed to look up family link: %w", err)
	}

	var family TokenFamily
	if err := db.First(&family, link.FamilyID).Error; err != nil {
		s.logger.Error("failed to load token family", zap.Uint("family_id", link.FamilyID), zap.Error(err))
		return 0, fmt.Errorf("failed to load token family: %w", err)
	}

	if link.Status != StatusActive || family.Revoked() {
		s.logger.Warn("superseded refresh token presented",
			zap.Uint("family_id", family.ID),
			zap.Bool("family_revoked", family.Revoked()),
			logging.Fingerprint(token))
		return family.ID, ErrTokenSuperseded
	}

	return family.ID, nil
}

// RevokeFamily ends a lineage: every link is expired and the family is
// stamped revoked. Revoking twice is not an error.
func (s *Store) RevokeFamily(ctx context.Context, familyID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var family TokenFamily
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&family, familyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFamilyNotFound
			}
			return fmt.Errorf("failed to lock token family: %w", err)
		}

		if err := expireLinks(tx, familyID); err != nil {
			return err
		}

		if family.Revoked() {
			return nil
		}

		now := time.Now()
		if err := tx.Model(&family).Update("revoked_at", &now).Error; err != nil {
			return fmt.Errorf("failed to revoke token family: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to revoke token family", zap.Uint("family_id", familyID), zap.Error(err))
		return err
	}

	s.logger.Info("token family revoked", zap.Uint("family_id", familyID))
	return nil
}

func (s *Store) ActiveLinkCount(ctx context.Context, familyID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&TokenFamilyLink{}).
		Where("family_id = ? AND status = ?", familyID, StatusActive).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active links: %w", err)
	}
	return count, nil
}

// Links returns the family's links in issue order.
func (s *Store) Links(ctx context.Context, familyID uint) ([]TokenFamilyLink, error) {
	var links []TokenFamilyLink
	err := s.db.WithContext(ctx).
		Where("family_id = ?", familyID).
		Order("id ASC").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list family links: %w", err)
	}
	return links, nil
}

func (s *Store) Family(ctx context.Context, familyID uint) (*TokenFamily, error) {
	var family TokenFamily
	if err := s.db.WithContext(ctx).First(&family, familyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFamilyNotFound
		}
		return nil, fmt.Errorf("failed to load token family: %w", err)
	}
	return &family, nil
}

func expireLinks(tx *gorm.DB, familyID uint) error {
	err := tx.Model(&TokenFamilyLink{}).
		Where("family_id = ? AND status = ?", familyID, StatusActive).
		Update("status", StatusExpired).Error
	if err != nil {
		return fmt.Errorf("failed to expire family links: %w", err)
	}
	return nil
}

func insertActive(tx *gorm.DB, familyID uint, token string) error {
	stored := RefreshToken{Token: token}
	if err := tx.Create(&stored).Error; err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	link := TokenFamilyLink{FamilyID: familyID, TokenID: stored.ID, Status: StatusActive}
	if err := tx.Create(&link).Error; err != nil {
		return fmt.Errorf("failed to link refresh token: %w", err)
	}
	return nil
}
