package revocation

import (
	"fmt"
	"sync"
	"time"

	"github.com/tech-arch1tect/chatauth/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RevokedToken persists a revoked access token ID until the token would
// have expired on its own.
type RevokedToken struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	JTI       string    `json:"jti" gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

func (RevokedToken) TableName() string {
	return "revoked_tokens"
}

type Store interface {
	Revoke(jti string, expiresAt time.Time) error
	IsRevoked(jti string) (bool, error)
	Cleanup() (int, error)
	Load() error
}

// MemoryStore answers lookups from memory. With a database attached every
// revocation is also written through so it survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
	db     *gorm.DB
	logger *logging.Service
	now    func() time.Time
}

func NewMemoryStore(db *gorm.DB, logger *logging.Service) *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]time.Time),
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func (m *MemoryStore) Revoke(jti string, expiresAt time.Time) error {
	m.mu.Lock()
	m.tokens[jti] = expiresAt
	total := len(m.tokens)
	m.mu.Unlock()

	m.logger.Debug("access token revoked",
		zap.String("jti", jti),
		zap.Time("expires_at", expiresAt),
		zap.Int("total_revoked", total))

	if m.db == nil {
		return nil
	}

	record := RevokedToken{JTI: jti, ExpiresAt: expiresAt}
	err := m.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "jti"}},
		DoUpdates: clause.AssignmentColumns([]string{"expires_at"}),
	}).Create(&record).Error
	if err != nil {
		m.logger.Error("failed to persist revoked token", zap.String("jti", jti), zap.Error(err))
		return fmt.Errorf("failed to persist revoked token: %w", err)
	}
	return nil
}

func (m *MemoryStore) IsRevoked(jti string) (bool, error) {
	m.mu.RLock()
	expiresAt, exists := m.tokens[jti]
	m.mu.RUnlock()

	if !exists {
		return false, nil
	}

	if m.now().After(expiresAt) {
		m.mu.Lock()
		delete(m.tokens, jti)
		m.mu.Unlock()
		return false, nil
	}

	return true, nil
}

// Cleanup drops entries whose token has expired anyway.
func (m *MemoryStore) Cleanup() (int, error) {
	now := m.now()

	m.mu.Lock()
	removed := 0
	for jti, expiresAt := range m.tokens {
		if now.After(expiresAt) {
			delete(m.tokens, jti)
			removed++
		}
	}
	m.mu.Unlock()

	if m.db != nil {
		if err := m.db.Where("expires_at <= ?", now).Delete(&RevokedToken{}).Error; err != nil {
			return removed, fmt.Errorf("failed to clean revoked tokens: %w", err)
		}
	}

	return removed, nil
}

// Load fills memory from the database, skipping expired rows.
func (m *MemoryStore) Load() error {
	if m.db == nil {
		return nil
	}

	var records []RevokedToken
	if err := m.db.Where("expires_at > ?", m.now()).Find(&records).Error; err != nil {
		m.logger.Error("failed to load revoked tokens", zap.Error(err))
		return fmt.Errorf("failed to load revoked tokens: %w", err)
	}

	m.mu.Lock()
	for _, record := range records {
		m.tokens[record.JTI] = record.ExpiresAt
	}
	total := len(m.tokens)
	m.mu.Unlock()

	m.logger.Info("revoked tokens loaded",
		zap.Int("loaded", len(records)),
		zap.Int("total_revoked", total))

	return nil
}
