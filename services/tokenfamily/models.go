package tokenfamily

import (
	"time"
)

type LinkStatus string

const (
	StatusActive  LinkStatus = "active"
	StatusExpired LinkStatus = "expired"
)

// RefreshToken is every refresh credential ever issued. Rows are never
// updated or deleted so that a replayed credential is still recognised.
type RefreshToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Token     string    `json:"-" gorm:"uniqueIndex;size:512;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// TokenFamily is the lineage started by one login.
type TokenFamily struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	UserID     uint       `json:"user_id" gorm:"not null;index"`
	DeviceInfo string     `json:"device_info" gorm:"size:255"`
	RevokedAt  *time.Time `json:"revoked_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (TokenFamily) TableName() string {
	return "token_families"
}

func (f TokenFamily) Revoked() bool {
	return f.RevokedAt != nil
}

type TokenFamilyLink struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	FamilyID  uint       `json:"family_id" gorm:"not null;index"`
	TokenID   uint       `json:"token_id" gorm:"uniqueIndex;not null"`
	Status    LinkStatus `json:"status" gorm:"size:16;not null;index"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (TokenFamilyLink) TableName() string {
	return "token_family_links"
}

// Models lists the tables the store needs migrated.
func Models() []any {
	return []any{&RefreshToken{}, &TokenFamily{}, &TokenFamilyLink{}}
}
