package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tech-arch1tect/chatauth/config"
	"github.com/tech-arch1tect/chatauth/services/logging"
	"github.com/tech-arch1tect/chatauth/services/refreshtoken"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

var (
	ErrWrongCredentials  = errors.New("wrong credentials")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrStorageFailure    = errors.New("authentication storage failure")
	ErrWeakPassword      = errors.New("password does not meet requirements")
	ErrInvalidUsername   = errors.New("username is required")
)

type FamilyStarter interface {
	NewFamily(ctx context.Context, userID uint, deviceInfo string) (string, error)
}

type AccessIssuer interface {
	IssueAccess(userID uint) (string, error)
	AccessExpirySeconds() int
}

type Service struct {
	config    *config.Config
	db        *gorm.DB
	rotation  FamilyStarter
	codec     AccessIssuer
	logger    *logging.Service
	dummyHash []byte
}

func NewService(cfg *config.Config, db *gorm.DB, rotation FamilyStarter, codec AccessIssuer, logger *logging.Service) (*Service, error) {
	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		cfg.Auth.BcryptCost = bcrypt.DefaultCost
	}

	// Compared against when the user does not exist so both failure paths cost one bcrypt run.
	dummy, err := bcrypt.GenerateFromPassword([]byte("chatauth-unknown-user"), cfg.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password verifier: %w", err)
	}

	return &Service{
		config:    cfg,
		db:        db,
		rotation:  rotation,
		codec:     codec,
		logger:    logger.Named("auth"),
		dummyHash: dummy,
	}, nil
}

// Login verifies the credentials and starts a new token family.
func (s *Service) Login(ctx context.Context, username, password, deviceInfo string) (*refreshtoken.TokenPair, error) {
	username = NormalizeUsername(username)

	var user User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.logger.Info("login failed", zap.String("reason", "credentials"))
		return nil, ErrWrongCredentials
	case err != nil:
		s.logger.Error("failed to load user", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	if err := s.VerifyPassword(user.PasswordHash, password); err != nil {
		s.logger.Info("login failed", zap.String("reason", "credentials"))
		return nil, ErrWrongCredentials
	}

	refresh, err := s.rotation.NewFamily(ctx, user.ID, deviceInfo)
	if err != nil {
		s.logger.Error("failed to start token family", zap.Uint("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	access, err := s.codec.IssueAccess(user.ID)
	if err != nil {
		s.logger.Error("failed to issue access token", zap.Uint("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	s.logger.Info("login succeeded",
		zap.Uint("user_id", user.ID),
		zap.String("device", deviceInfo))

	return &refreshtoken.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.codec.AccessExpirySeconds(),
	}, nil
}

func (s *Service) Signup(ctx context.Context, username, password string) (*User, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return nil, ErrInvalidUsername
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	exists, err := s.userExists(db, username)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	user := User{Username: username, PasswordHash: hash}
	if err := db.Create(&user).Error; err != nil {
		// lost a race against a concurrent signup for the same name
		if exists, lookupErr := s.userExists(db, username); lookupErr == nil && exists {
			return nil, ErrUserAlreadyExists
		}
		s.logger.Error("failed to create user", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	s.logger.Info("user created", zap.Uint("user_id", user.ID))
	return &user, nil
}

func (s *Service) UserByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWrongCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return &user, nil
}

func (s *Service) ValidatePassword(password string) error {
	if len(password) < s.config.Auth.MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, s.config.Auth.MinPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: must be at most %d bytes", ErrWeakPassword, maxPasswordBytes)
	}
	return nil
}

func (s *Service) HashPassword(password string) (string, error) {
	if err := s.ValidatePassword(password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.Auth.BcryptCost)
	if err != nil {
		s.logger.Error("password hashing failed", zap.Error(err))
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) VerifyPassword(hashedPassword, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return ErrWrongCredentials
	}
	return nil
}

func (s *Service) userExists(db *gorm.DB, username string) (bool, error) {
	var count int64
	if err := db.Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
