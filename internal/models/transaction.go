package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger entry reasons.
const (
	ReasonSignupBonus = "signup_bonus"
	ReasonDailyLogin  = "daily_login_bonus"
	ReasonReferral    = "referral_bonus"
	ReasonTeamCreate  = "team_create_bonus"
	ReasonTeamJoin    = "team_join_bonus"
	ReasonVote        = "vote_bonus"
	ReasonLeadership  = "leadership_bonus"
	ReasonTransferIn  = "transfer_in"
	ReasonTransferOut = "transfer_out"
)

// CoinTransaction is one immutable ledger entry. Amount is signed:
// credits are positive, debits negative. A user's balance is the sum of
// Amount over all rows where they are the destination; rows are never
// edited or deleted.
type CoinTransaction struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	FromUserID *uint           `gorm:"index" json:"from_user_id,omitempty"`
	FromUser   *User           `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`
	ToUserID   uint            `gorm:"not null;index" json:"to_user_id"`
	ToUser     *User           `gorm:"foreignKey:ToUserID" json:"to_user,omitempty"`
	Amount     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Reason     string          `gorm:"size:50;not null;index" json:"reason"`
	Reference  string          `gorm:"size:36;not null" json:"reference"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for CoinTransaction model
func (CoinTransaction) TableName() string {
	return "coin_transactions"
}
