package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"teamcoin/internal/models"
)

// PromotionService forms the next hierarchy level. Once a full cohort of
// parentless level-L teams has each resolved a leader for the same day,
// exactly one level-L+1 team is created whose members are those leaders.
//
// Idempotency is storage-enforced: the new team carries a deterministic
// cohort key under a unique index, so two racing promotion runs cannot
// both commit. A duplicate-key failure aborts the transaction and the
// retry finds the cohort already parented.
type PromotionService struct {
	db         *gorm.DB
	cohortSize int
}

// NewPromotionService creates a new PromotionService
func NewPromotionService(db *gorm.DB, cohortSize int) *PromotionService {
	return &PromotionService{db: db, cohortSize: cohortSize}
}

// Promote runs the promotion check for a level and day in its own
// transaction. The vote path calls checkLevel directly inside the voting
// transaction; this wrapper exists for replays and operational tooling.
func (s *PromotionService) Promote(level int, day time.Time) (*models.Team, error) {
	var promoted *models.Team
	err := withRetry(s.db, func(tx *gorm.DB) error {
		team, err := s.checkLevel(tx, level, dayKey(day))
		promoted = team
		return err
	})
	return promoted, err
}

// checkLevel collects every parentless level-`level` team with a resolved
// leader for `day`, in team-id order. With a full cohort it creates the
// next-level team, parents the first cohortSize teams and enrolls their
// leaders. Returns nil when no transition occurs.
func (s *PromotionService) checkLevel(tx *gorm.DB, level int, day string) (*models.Team, error) {
	var candidates []models.Team
	if err := forUpdate(tx).
		Joins("JOIN team_leaders ON team_leaders.team_id = teams.id AND team_leaders.leader_date = ?", day).
		Where("teams.level = ? AND teams.parent_team_id IS NULL", level).
		Order("teams.id ASC").
		Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to collect cohort candidates: %w", err)
	}

	if len(candidates) < s.cohortSize {
		return nil, nil
	}

	cohort := candidates[:s.cohortSize]
	key := cohortKey(level+1, cohort)

	upper := models.Team{
		Name:      fmt.Sprintf("Level %d Team #%s", level+1, key[:8]),
		Level:     level + 1,
		CohortKey: &key,
	}
	if err := tx.Create(&upper).Error; err != nil {
		// A duplicate cohort key means a concurrent run already promoted
		// this exact cohort; the aborted transaction is retried and then
		// finds the teams parented.
		return nil, fmt.Errorf("failed to create level %d team: %w", level+1, err)
	}

	for _, child := range cohort {
		res := tx.Model(&models.Team{}).
			Where("id = ? AND parent_team_id IS NULL", child.ID).
			Update("parent_team_id", upper.ID)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to parent team %d: %w", child.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, fmt.Errorf("team %d was parented concurrently: %w", child.ID, gorm.ErrDuplicatedKey)
		}

		var leader models.TeamLeader
		if err := tx.Where("team_id = ? AND leader_date = ?", child.ID, day).First(&leader).Error; err != nil {
			return nil, fmt.Errorf("failed to load leader of team %d: %w", child.ID, err)
		}

		if err := tx.Create(&models.TeamMember{TeamID: upper.ID, UserID: leader.LeaderID}).Error; err != nil {
			return nil, fmt.Errorf("failed to enroll leader %d: %w", leader.LeaderID, err)
		}
	}

	log.Printf("[Promote] level %d cohort of %d teams promoted into team %d (%s)",
		level, s.cohortSize, upper.ID, upper.Name)
	return &upper, nil
}

// cohortKey derives the deterministic promotion key: the target level plus
// the ordered child team ids. Identical cohorts always hash identically,
// which is what the unique index on teams.cohort_key enforces against.
func cohortKey(targetLevel int, cohort []models.Team) string {
	parts := make([]string, 0, len(cohort)+1)
	parts = append(parts, strconv.Itoa(targetLevel))
	for _, team := range cohort {
		parts = append(parts, strconv.FormatUint(uint64(team.ID), 10))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(sum[:])
}
