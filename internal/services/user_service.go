package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"teamcoin/internal/models"
	"teamcoin/internal/teamerr"
)

// UserService handles user-related read paths
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new UserService
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, teamerr.ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// Profile bundles a user with their team memberships.
type Profile struct {
	User  models.User   `json:"user"`
	Teams []models.Team `json:"teams"`
}

// GetProfile returns a user with every team they belong to, lowest level
// first.
func (s *UserService) GetProfile(userID uint) (*Profile, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	var teams []models.Team
	if err := s.db.
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", userID).
		Order("teams.level ASC").
		Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}

	return &Profile{User: *user, Teams: teams}, nil
}

// Leaderboard returns the top users by coin balance.
func (s *UserService) Leaderboard(limit int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var users []models.User
	if err := s.db.Order("coins DESC, id ASC").Limit(limit).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
