package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"teamcoin/internal/models"
	"teamcoin/internal/teamerr"
)

// LedgerService owns the append-only coin ledger. Every coin movement is
// one CoinTransaction row plus a matching update of the cached
// users.coins column, always inside the same transaction.
type LedgerService struct {
	db *gorm.DB
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// TransferResult carries the post-transfer balances back to the caller.
type TransferResult struct {
	FromUserID  uint            `json:"from_user_id"`
	ToUserID    uint            `json:"to_user_id"`
	Amount      decimal.Decimal `json:"amount"`
	FromBalance decimal.Decimal `json:"from_balance"`
	ToBalance   decimal.Decimal `json:"to_balance"`
}

// Award appends a bonus credit for userID within the caller's transaction.
// from is the counterparty for referral-style grants, nil for system grants.
func (s *LedgerService) Award(tx *gorm.DB, from *uint, userID uint, amount decimal.Decimal, reason string) error {
	return s.append(tx, from, userID, amount, reason)
}

// append inserts one ledger entry and moves the cached balance by the same
// signed amount. The two writes must never be split across transactions.
func (s *LedgerService) append(tx *gorm.DB, from *uint, to uint, amount decimal.Decimal, reason string) error {
	entry := models.CoinTransaction{
		FromUserID: from,
		ToUserID:   to,
		Amount:     amount,
		Reason:     reason,
		Reference:  uuid.NewString(),
	}

	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	if err := tx.Model(&models.User{}).Where("id = ?", to).
		Update("coins", gorm.Expr("coins + ?", amount)).Error; err != nil {
		return fmt.Errorf("failed to update cached balance: %w", err)
	}

	return nil
}

// Transfer moves amount from one user to another as two ledger entries
// (debit + credit) in a single atomic unit. Sender and receiver rows are
// locked in id order so concurrent transfers touching the same users
// serialize instead of deadlocking.
func (s *LedgerService) Transfer(fromID, toID uint, amount decimal.Decimal) (*TransferResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("transfer amount must be positive: %w", teamerr.ErrValidation)
	}
	if fromID == toID {
		return nil, teamerr.ErrSelfTransfer
	}

	var result TransferResult

	err := withRetry(s.db, func(tx *gorm.DB) error {
		var users []models.User
		if err := forUpdate(tx).Where("id IN ?", []uint{fromID, toID}).
			Order("id").Find(&users).Error; err != nil {
			return fmt.Errorf("failed to lock accounts: %w", err)
		}
		if len(users) != 2 {
			return fmt.Errorf("transfer party missing: %w", teamerr.ErrNotFound)
		}

		var sender models.User
		for _, u := range users {
			if u.ID == fromID {
				sender = u
			}
		}

		if sender.Coins.LessThan(amount) {
			return fmt.Errorf("balance %s < %s: %w", sender.Coins, amount, teamerr.ErrInsufficientFunds)
		}

		if err := s.append(tx, nil, fromID, amount.Neg(), models.ReasonTransferOut); err != nil {
			return err
		}
		if err := s.append(tx, &fromID, toID, amount, models.ReasonTransferIn); err != nil {
			return err
		}

		// Re-read balances for the response inside the same transaction.
		var from, to models.User
		if err := tx.First(&from, fromID).Error; err != nil {
			return err
		}
		if err := tx.First(&to, toID).Error; err != nil {
			return err
		}

		result = TransferResult{
			FromUserID:  fromID,
			ToUserID:    toID,
			Amount:      amount,
			FromBalance: from.Coins,
			ToBalance:   to.Coins,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Transfer] %s coins from user %d to user %d", amount, fromID, toID)
	return &result, nil
}

// Balance returns the cached balance for a user.
func (s *LedgerService) Balance(userID uint) (decimal.Decimal, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, fmt.Errorf("user %d: %w", userID, teamerr.ErrNotFound)
		}
		return decimal.Zero, err
	}
	return user.Coins, nil
}

// LedgerSum recomputes a user's balance from the signed ledger entries.
// The result must always equal the cached column; the backfill script and
// the tests use this to audit for drift.
func (s *LedgerService) LedgerSum(userID uint) (decimal.Decimal, error) {
	var sum decimal.Decimal
	row := s.db.Model(&models.CoinTransaction{}).Where("to_user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").Row()
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum ledger: %w", err)
	}
	return sum, nil
}

// History returns a user's ledger entries, newest first.
func (s *LedgerService) History(userID uint, limit, offset int) ([]models.CoinTransaction, error) {
	var entries []models.CoinTransaction
	if err := s.db.Where("to_user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
