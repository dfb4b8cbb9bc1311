package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"teamcoin/internal/config"
	"teamcoin/internal/models"
	"teamcoin/internal/teamerr"
)

// AuthService handles registration and login, including the signup,
// referral and daily-login bonuses.
type AuthService struct {
	db     *gorm.DB
	ledger *LedgerService
	bonus  config.BonusConfig
}

// NewAuthService creates a new AuthService
func NewAuthService(db *gorm.DB, ledger *LedgerService, bonus config.BonusConfig) *AuthService {
	return &AuthService{db: db, ledger: ledger, bonus: bonus}
}

// Register creates a user, issues their referral code and the signup
// bonus, and credits the referrer once when a valid referral code is
// supplied. Registration is one-shot, so the referral bonus cannot be
// issued twice for the same signup.
func (s *AuthService) Register(username, email, password, referralCode string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))

	if username == "" || len(username) > 50 {
		return nil, fmt.Errorf("username must be 1-50 characters: %w", teamerr.ErrValidation)
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("valid email required: %w", teamerr.ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters: %w", teamerr.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user models.User

	err = withRetry(s.db, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).
			Where("username = ? OR email = ?", username, email).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("username or email already taken: %w", teamerr.ErrValidation)
		}

		code, err := generateReferralCode()
		if err != nil {
			return err
		}

		user = models.User{
			Username:     username,
			Email:        email,
			PasswordHash: string(hash),
			ReferralCode: code,
		}

		if referralCode != "" {
			var referrer models.User
			err := tx.Where("referral_code = ?", referralCode).First(&referrer).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("referral code %q: %w", referralCode, teamerr.ErrNotFound)
			}
			if err != nil {
				return err
			}
			user.ReferredBy = &referrer.ID
		}

		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		if err := s.ledger.Award(tx, nil, user.ID, s.bonus.Signup, models.ReasonSignupBonus); err != nil {
			return err
		}

		if user.ReferredBy != nil {
			if err := s.ledger.Award(tx, &user.ID, *user.ReferredBy, s.bonus.Referral, models.ReasonReferral); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Register] new user %s (ID: %d)", user.Username, user.ID)
	return &user, nil
}

// Login verifies credentials and issues the daily login bonus when the
// stored last_login falls on an earlier UTC day. last_login moves forward
// in the same transaction as the bonus entry, so repeated logins on the
// same day cannot re-issue it.
func (s *AuthService) Login(username, password string, now time.Time) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q: %w", username, teamerr.ErrNotFound)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", teamerr.ErrValidation)
	}

	err := withRetry(s.db, func(tx *gorm.DB) error {
		var current models.User
		if err := forUpdate(tx).First(&current, user.ID).Error; err != nil {
			return err
		}

		firstToday := current.LastLogin == nil || dayKey(*current.LastLogin) < dayKey(now)

		if err := tx.Model(&current).Update("last_login", now).Error; err != nil {
			return fmt.Errorf("failed to update last login: %w", err)
		}

		if firstToday {
			if err := s.ledger.Award(tx, nil, current.ID, s.bonus.DailyLogin, models.ReasonDailyLogin); err != nil {
				return err
			}
			log.Printf("[Login] daily bonus issued to user %d", current.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.First(&user, user.ID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// generateReferralCode generates a random 12-character hex code
func generateReferralCode() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate referral code: %w", err)
	}
	return hex.EncodeToString(b), nil
}
