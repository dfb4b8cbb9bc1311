package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered user and their cached coin balance.
// Coins is kept in lockstep with the signed sum of the user's ledger
// entries; every write to one happens in the same transaction as the other.
type User struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Username     string          `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email        string          `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string          `gorm:"not null" json:"-"`
	Coins        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"coins"`
	ReferralCode string          `gorm:"uniqueIndex;size:20;not null" json:"referral_code"`
	ReferredBy   *uint           `gorm:"index" json:"referred_by,omitempty"`
	Referrer     *User           `gorm:"foreignKey:ReferredBy" json:"referrer,omitempty"`
	PhotoURL     *string         `gorm:"size:500" json:"photo_url,omitempty"`
	LastLogin    *time.Time      `json:"last_login,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
