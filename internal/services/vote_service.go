package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"teamcoin/internal/config"
	"teamcoin/internal/models"
	"teamcoin/internal/teamerr"
)

// VoteService records ballots and resolves daily leaders. A ballot is
// unique per (voter, team, day); re-casting overwrites the candidate in
// place. Each resolved leader change triggers the promotion check for the
// team's level via an explicit bubble-up loop over parent pointers.
type VoteService struct {
	db       *gorm.DB
	ledger   *LedgerService
	promoter *PromotionService
	bonus    config.BonusConfig
}

// NewVoteService creates a new VoteService
func NewVoteService(db *gorm.DB, ledger *LedgerService, promoter *PromotionService, bonus config.BonusConfig) *VoteService {
	return &VoteService{
		db:       db,
		ledger:   ledger,
		promoter: promoter,
		bonus:    bonus,
	}
}

// CastVoteResult confirms the recorded ballot and the election state it
// produced.
type CastVoteResult struct {
	TeamID    uint               `json:"team_id"`
	Candidate string             `json:"candidate"`
	VoteDate  string             `json:"vote_date"`
	Leader    *models.TeamLeader `json:"leader,omitempty"`
}

// CastVote records one ballot for (voter, team, day). The team is the
// lowest-level team shared by voter and candidate, so members of promoted
// teams vote through the same path as everyone else. The first ballot of
// the day earns the vote bonus; overwrites do not.
func (s *VoteService) CastVote(voterID, candidateID uint, now time.Time) (*CastVoteResult, error) {
	if voterID == candidateID {
		return nil, fmt.Errorf("self-vote: %w", teamerr.ErrInvalidCandidate)
	}

	day := dayKey(now)
	var result CastVoteResult

	err := withRetry(s.db, func(tx *gorm.DB) error {
		team, err := s.sharedTeam(tx, voterID, candidateID)
		if err != nil {
			return err
		}

		// Lock the team row: every vote and resolution for this team/day
		// serializes here, so the recorded leader can never lag the tally.
		if err := forUpdate(tx).First(team, team.ID).Error; err != nil {
			return err
		}

		var candidate models.User
		if err := tx.First(&candidate, candidateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("candidate %d: %w", candidateID, teamerr.ErrNotFound)
			}
			return err
		}

		var ballot models.Vote
		err = tx.Where("voter_id = ? AND team_id = ? AND vote_date = ?", voterID, team.ID, day).
			First(&ballot).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			ballot = models.Vote{
				VoterID:     voterID,
				CandidateID: candidateID,
				TeamID:      team.ID,
				VoteDate:    day,
			}
			if err := tx.Create(&ballot).Error; err != nil {
				return fmt.Errorf("failed to record vote: %w", err)
			}
			if err := s.ledger.Award(tx, nil, voterID, s.bonus.Vote, models.ReasonVote); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&ballot).Update("candidate_id", candidateID).Error; err != nil {
				return fmt.Errorf("failed to update vote: %w", err)
			}
		}

		leader, err := s.resolveAndBubble(tx, team, day)
		if err != nil {
			return err
		}

		result = CastVoteResult{
			TeamID:    team.ID,
			Candidate: candidate.Username,
			VoteDate:  day,
			Leader:    leader,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[CastVote] user %d voted for %s in team %d on %s", voterID, result.Candidate, result.TeamID, day)
	return &result, nil
}

// GetLeader returns the resolved leader record for (team, day), if any.
func (s *VoteService) GetLeader(teamID uint, day string) (*models.TeamLeader, error) {
	var leader models.TeamLeader
	err := s.db.Where("team_id = ? AND leader_date = ?", teamID, day).First(&leader).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no leader for team %d on %s: %w", teamID, day, teamerr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &leader, nil
}

// sharedTeam picks the lowest-level team both users belong to.
// Distinguishes "voter has no team at all" from "candidate unreachable".
func (s *VoteService) sharedTeam(tx *gorm.DB, voterID, candidateID uint) (*models.Team, error) {
	var team models.Team
	err := tx.
		Joins("JOIN team_members vm ON vm.team_id = teams.id AND vm.user_id = ?", voterID).
		Joins("JOIN team_members cm ON cm.team_id = teams.id AND cm.user_id = ?", candidateID).
		Order("teams.level ASC, teams.id ASC").
		First(&team).Error
	if err == nil {
		return &team, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var memberships int64
	if err := tx.Model(&models.TeamMember{}).Where("user_id = ?", voterID).Count(&memberships).Error; err != nil {
		return nil, err
	}
	if memberships == 0 {
		return nil, fmt.Errorf("voter %d: %w", voterID, teamerr.ErrNoTeam)
	}
	return nil, fmt.Errorf("candidate %d shares no team with voter %d: %w", candidateID, voterID, teamerr.ErrInvalidCandidate)
}

// tallyRow is one row of the per-candidate vote count.
type tallyRow struct {
	CandidateID uint
	Votes       int
}

// resolveAndBubble re-resolves the leader for team/day, then walks parent
// pointers upward, re-resolving each ancestor the same way. At the topmost
// (parentless) ancestor a leader change triggers the promotion check for
// that level. An explicit loop keeps the walk depth-bounded.
func (s *VoteService) resolveAndBubble(tx *gorm.DB, team *models.Team, day string) (*models.TeamLeader, error) {
	current := *team
	var origin *models.TeamLeader

	for {
		changed, record, err := s.resolveLeader(tx, &current, day)
		if err != nil {
			return nil, err
		}
		if current.ID == team.ID {
			origin = record
		}

		if current.ParentTeamID == nil {
			if changed {
				if _, err := s.promoter.checkLevel(tx, current.Level, day); err != nil {
					return nil, err
				}
			}
			return origin, nil
		}

		if !changed {
			// Ancestor tallies only move with their own votes; an
			// unchanged outcome cannot ripple further up.
			return origin, nil
		}

		var parent models.Team
		if err := tx.First(&parent, *current.ParentTeamID).Error; err != nil {
			return nil, fmt.Errorf("failed to load parent team %d: %w", *current.ParentTeamID, err)
		}
		current = parent
	}
}

// resolveLeader recomputes the plurality winner for (team, day) and keeps
// the TeamLeader row in sync. Tie-break: a standing leader whose current
// count still matches the top count is kept (stability under re-tally);
// otherwise the lowest candidate id wins. The leader bonus is issued only
// when the recorded leader actually changes, and is never revoked.
func (s *VoteService) resolveLeader(tx *gorm.DB, team *models.Team, day string) (bool, *models.TeamLeader, error) {
	var rows []tallyRow
	if err := tx.Model(&models.Vote{}).
		Select("candidate_id, COUNT(*) AS votes").
		Where("team_id = ? AND vote_date = ?", team.ID, day).
		Group("candidate_id").
		Order("votes DESC, candidate_id ASC").
		Scan(&rows).Error; err != nil {
		return false, nil, fmt.Errorf("failed to tally votes: %w", err)
	}
	if len(rows) == 0 {
		return false, nil, nil
	}

	winner := rows[0]

	var record models.TeamLeader
	err := tx.Where("team_id = ? AND leader_date = ?", team.ID, day).First(&record).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		record = models.TeamLeader{
			TeamID:     team.ID,
			LeaderID:   winner.CandidateID,
			LeaderDate: day,
			VoteCount:  winner.Votes,
		}
		if err := tx.Create(&record).Error; err != nil {
			return false, nil, fmt.Errorf("failed to record leader: %w", err)
		}
		if err := s.ledger.Award(tx, nil, winner.CandidateID, s.bonus.Leadership, models.ReasonLeadership); err != nil {
			return false, nil, err
		}
		log.Printf("[ResolveLeader] team %d day %s: leader %d with %d votes", team.ID, day, winner.CandidateID, winner.Votes)
		return true, &record, nil

	case err != nil:
		return false, nil, err
	}

	// Stability: keep the standing leader when their count ties the top.
	for _, row := range rows {
		if row.CandidateID == record.LeaderID && row.Votes == winner.Votes {
			winner = row
			break
		}
	}

	if winner.CandidateID == record.LeaderID {
		if record.VoteCount != winner.Votes {
			if err := tx.Model(&record).Update("vote_count", winner.Votes).Error; err != nil {
				return false, nil, err
			}
			record.VoteCount = winner.Votes
		}
		return false, &record, nil
	}

	if err := tx.Model(&record).Updates(map[string]interface{}{
		"leader_id":  winner.CandidateID,
		"vote_count": winner.Votes,
	}).Error; err != nil {
		return false, nil, fmt.Errorf("failed to update leader: %w", err)
	}
	record.LeaderID = winner.CandidateID
	record.VoteCount = winner.Votes

	if err := s.ledger.Award(tx, nil, winner.CandidateID, s.bonus.Leadership, models.ReasonLeadership); err != nil {
		return false, nil, err
	}

	log.Printf("[ResolveLeader] team %d day %s: leader changed to %d with %d votes", team.ID, day, winner.CandidateID, winner.Votes)
	return true, &record, nil
}
