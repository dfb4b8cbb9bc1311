package services

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"teamcoin/internal/config"
	"teamcoin/internal/models"
)

// setupTestDB opens a per-test in-memory database. cache=shared keeps the
// database alive across the pooled connections gorm opens; the test name
// in the DSN isolates tests from each other.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.CoinTransaction{},
		&models.Team{},
		&models.TeamMember{},
		&models.Vote{},
		&models.TeamLeader{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func testBonuses() config.BonusConfig {
	return config.BonusConfig{
		Signup:     decimal.NewFromInt(100),
		DailyLogin: decimal.NewFromInt(10),
		Referral:   decimal.NewFromInt(50),
		TeamCreate: decimal.NewFromInt(20),
		TeamJoin:   decimal.NewFromInt(10),
		Vote:       decimal.NewFromInt(5),
		Leadership: decimal.NewFromInt(25),
	}
}

// engine bundles the wired services the way cmd/main.go builds them.
type engine struct {
	db       *gorm.DB
	ledger   *LedgerService
	teams    *TeamService
	votes    *VoteService
	promoter *PromotionService
	auth     *AuthService
	users    *UserService
}

func newEngine(t *testing.T, capacity, cohortSize int) *engine {
	t.Helper()

	db := setupTestDB(t)
	bonus := testBonuses()
	ledger := NewLedgerService(db)
	promoter := NewPromotionService(db, cohortSize)

	return &engine{
		db:       db,
		ledger:   ledger,
		teams:    NewTeamService(db, ledger, capacity, bonus),
		votes:    NewVoteService(db, ledger, promoter, bonus),
		promoter: promoter,
		auth:     NewAuthService(db, ledger, bonus),
		users:    NewUserService(db),
	}
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "irrelevant",
		ReferralCode: "ref-" + name,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return user
}

// entryCount counts a user's ledger entries with the given reason.
func entryCount(t *testing.T, db *gorm.DB, userID uint, reason string) int64 {
	t.Helper()

	var count int64
	if err := db.Model(&models.CoinTransaction{}).
		Where("to_user_id = ? AND reason = ?", userID, reason).
		Count(&count).Error; err != nil {
		t.Fatalf("failed to count ledger entries: %v", err)
	}
	return count
}

// assertNoDrift checks the core invariant: cached balance == signed ledger sum.
func assertNoDrift(t *testing.T, e *engine, userID uint) {
	t.Helper()

	balance, err := e.ledger.Balance(userID)
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	sum, err := e.ledger.LedgerSum(userID)
	if err != nil {
		t.Fatalf("failed to sum ledger: %v", err)
	}
	if !balance.Equal(sum) {
		t.Errorf("user %d balance drift: cached=%s ledger=%s", userID, balance, sum)
	}
}
