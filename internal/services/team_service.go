package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"teamcoin/internal/config"
	"teamcoin/internal/models"
	"teamcoin/internal/teamerr"
)

// TeamService is the membership registry for level-1 teams. Teams above
// level 1 are created only by the promotion service and never accept
// direct joins.
type TeamService struct {
	db       *gorm.DB
	ledger   *LedgerService
	capacity int
	bonus    config.BonusConfig
}

// NewTeamService creates a new TeamService
func NewTeamService(db *gorm.DB, ledger *LedgerService, capacity int, bonus config.BonusConfig) *TeamService {
	return &TeamService{
		db:       db,
		ledger:   ledger,
		capacity: capacity,
		bonus:    bonus,
	}
}

// TeamInfo bundles a team with its members and today's resolved leader.
type TeamInfo struct {
	Team    models.Team        `json:"team"`
	Members []models.User      `json:"members"`
	Leader  *models.TeamLeader `json:"leader,omitempty"`
}

// CreateTeam creates a level-1 team with the founder as first member and
// issues the team-creation bonus. Fails with ErrAlreadyMember if the
// founder already belongs to a level-1 team.
func (s *TeamService) CreateTeam(founderID uint, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, fmt.Errorf("team name must be 1-100 characters: %w", teamerr.ErrValidation)
	}

	var team models.Team

	err := withRetry(s.db, func(tx *gorm.DB) error {
		var founder models.User
		if err := forUpdate(tx).First(&founder, founderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("founder %d: %w", founderID, teamerr.ErrNotFound)
			}
			return err
		}

		member, err := s.levelOneMembership(tx, founderID)
		if err != nil {
			return err
		}
		if member != nil {
			return fmt.Errorf("user %d is already on team %d: %w", founderID, member.TeamID, teamerr.ErrAlreadyMember)
		}

		team = models.Team{Name: name, Level: 1}
		if err := tx.Create(&team).Error; err != nil {
			return fmt.Errorf("failed to create team: %w", err)
		}

		if err := tx.Create(&models.TeamMember{TeamID: team.ID, UserID: founderID}).Error; err != nil {
			return fmt.Errorf("failed to add founder: %w", err)
		}

		return s.ledger.Award(tx, nil, founderID, s.bonus.TeamCreate, models.ReasonTeamCreate)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[CreateTeam] user %d created team %d (%s)", founderID, team.ID, team.Name)
	return &team, nil
}

// JoinTeam adds a user to an existing level-1 team and issues the join
// bonus. The team row is locked so the capacity check and the insert are
// serialized against concurrent joins.
func (s *TeamService) JoinTeam(userID, teamID uint) (*models.Team, error) {
	var team models.Team

	err := withRetry(s.db, func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&team, teamID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("team %d: %w", teamID, teamerr.ErrNotFound)
			}
			return err
		}
		if team.Level != 1 {
			return fmt.Errorf("team %d is level %d: %w", teamID, team.Level, teamerr.ErrNotFound)
		}

		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %d: %w", userID, teamerr.ErrNotFound)
			}
			return err
		}

		member, err := s.levelOneMembership(tx, userID)
		if err != nil {
			return err
		}
		if member != nil {
			return fmt.Errorf("user %d is already on team %d: %w", userID, member.TeamID, teamerr.ErrAlreadyMember)
		}

		var count int64
		if err := tx.Model(&models.TeamMember{}).Where("team_id = ?", teamID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count members: %w", err)
		}
		if count >= int64(s.capacity) {
			return fmt.Errorf("team %d has %d members: %w", teamID, count, teamerr.ErrTeamFull)
		}

		if err := tx.Create(&models.TeamMember{TeamID: teamID, UserID: userID}).Error; err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}

		return s.ledger.Award(tx, nil, userID, s.bonus.TeamJoin, models.ReasonTeamJoin)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[JoinTeam] user %d joined team %d", userID, teamID)
	return &team, nil
}

// GetTeamInfo returns a team with its member list and the resolved leader
// for the given day, if one exists yet.
func (s *TeamService) GetTeamInfo(teamID uint, day string) (*TeamInfo, error) {
	var team models.Team
	if err := s.db.First(&team, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("team %d: %w", teamID, teamerr.ErrNotFound)
		}
		return nil, err
	}

	var members []models.User
	if err := s.db.
		Joins("JOIN team_members ON team_members.user_id = users.id").
		Where("team_members.team_id = ?", teamID).
		Order("team_members.joined_at ASC").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	info := &TeamInfo{Team: team, Members: members}

	var leader models.TeamLeader
	err := s.db.Where("team_id = ? AND leader_date = ?", teamID, day).First(&leader).Error
	if err == nil {
		info.Leader = &leader
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return info, nil
}

// levelOneMembership returns the user's level-1 membership edge, or nil.
func (s *TeamService) levelOneMembership(tx *gorm.DB, userID uint) (*models.TeamMember, error) {
	var member models.TeamMember
	err := tx.
		Joins("JOIN teams ON teams.id = team_members.team_id").
		Where("team_members.user_id = ? AND teams.level = 1", userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	return &member, nil
}
