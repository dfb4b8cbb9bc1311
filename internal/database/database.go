package database

import (
	"fmt"
	"log"

	"teamcoin/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a PostgreSQL connection and returns the handle. The handle
// is passed explicitly into every service; there is no package-level DB.
// TranslateError is on so unique-constraint violations surface as
// gorm.ErrDuplicatedKey regardless of driver.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return db, nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Migrate core models first
	coreModels := []interface{}{
		&models.User{},
		&models.CoinTransaction{},
	}

	for _, model := range coreModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	// Migrate team hierarchy models
	teamModels := []interface{}{
		&models.Team{},
		&models.TeamMember{},
	}

	for _, model := range teamModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	// Migrate voting models
	votingModels := []interface{}{
		&models.Vote{},
		&models.TeamLeader{},
	}

	for _, model := range votingModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}
