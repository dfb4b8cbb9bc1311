package services

import (
	"fmt"
	"testing"
	"time"

	"teamcoin/internal/models"
)

// electLeaders builds n level-1 teams of `size` members each and has one
// member of each team vote for the founder, resolving a leader per team.
func electLeaders(t *testing.T, e *engine, n, size int, now time.Time) [][]*models.User {
	t.Helper()

	all := make([][]*models.User, n)
	for i := 0; i < n; i++ {
		_, users := buildTeam(t, e, fmt.Sprintf("t%d_", i), size)
		all[i] = users
		if _, err := e.votes.CastVote(users[1].ID, users[0].ID, now); err != nil {
			t.Fatalf("vote in team %d failed: %v", i, err)
		}
	}
	return all
}

func TestCohortPromotion(t *testing.T) {
	e := newEngine(t, 3, 3)
	now := time.Now()

	teams := electLeaders(t, e, 3, 3, now)

	// The third resolved leader completes the cohort; promotion fires
	// inside the voting transaction, no separate trigger needed.
	var uppers []models.Team
	if err := e.db.Where("level = 2").Find(&uppers).Error; err != nil {
		t.Fatalf("failed to load level-2 teams: %v", err)
	}
	if len(uppers) != 1 {
		t.Fatalf("expected exactly 1 level-2 team, got %d", len(uppers))
	}
	upper := uppers[0]

	if upper.CohortKey == nil || *upper.CohortKey == "" {
		t.Errorf("promoted team must carry a cohort key")
	}

	// Every level-1 team in the cohort is parented to the new team.
	var parented int64
	e.db.Model(&models.Team{}).Where("level = 1 AND parent_team_id = ?", upper.ID).Count(&parented)
	if parented != 3 {
		t.Errorf("expected 3 parented teams, got %d", parented)
	}

	// The new team's members are exactly the three elected leaders.
	var members []models.TeamMember
	if err := e.db.Where("team_id = ?", upper.ID).Find(&members).Error; err != nil {
		t.Fatalf("failed to load upper members: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("expected 3 members in the promoted team, got %d", len(members))
	}
	leaderIDs := map[uint]bool{}
	for _, team := range teams {
		leaderIDs[team[0].ID] = true
	}
	for _, m := range members {
		if !leaderIDs[m.UserID] {
			t.Errorf("unexpected member %d in promoted team", m.UserID)
		}
	}
}

func TestPromotionIsIdempotent(t *testing.T) {
	e := newEngine(t, 3, 3)
	now := time.Now()

	electLeaders(t, e, 3, 3, now)

	// Replaying the identical promotion check must not create a second
	// level-2 team: the cohort is already parented.
	for i := 0; i < 3; i++ {
		promoted, err := e.promoter.Promote(1, now)
		if err != nil {
			t.Fatalf("replay %d failed: %v", i, err)
		}
		if promoted != nil {
			t.Fatalf("replay %d created duplicate team %d", i, promoted.ID)
		}
	}

	var count int64
	e.db.Model(&models.Team{}).Where("level = 2").Count(&count)
	if count != 1 {
		t.Errorf("expected 1 level-2 team after replays, got %d", count)
	}
}

func TestIncompleteCohortDoesNotPromote(t *testing.T) {
	e := newEngine(t, 3, 3)
	now := time.Now()

	electLeaders(t, e, 2, 3, now)

	var count int64
	e.db.Model(&models.Team{}).Where("level = 2").Count(&count)
	if count != 0 {
		t.Errorf("2 of 3 cohort teams resolved, yet %d level-2 team(s) exist", count)
	}

	if promoted, err := e.promoter.Promote(1, now); err != nil || promoted != nil {
		t.Errorf("explicit check on incomplete cohort: promoted=%v err=%v", promoted, err)
	}
}

func TestPromotedTeamVotesLikeAnyOther(t *testing.T) {
	e := newEngine(t, 3, 3)
	now := time.Now()
	day := now.UTC().Format("2006-01-02")

	teams := electLeaders(t, e, 3, 3, now)

	var upper models.Team
	if err := e.db.Where("level = 2").First(&upper).Error; err != nil {
		t.Fatalf("promotion did not run: %v", err)
	}

	// Two leaders share only the promoted team; their ballots land there.
	leader0, leader1 := teams[0][0], teams[1][0]
	result, err := e.votes.CastVote(leader0.ID, leader1.ID, now)
	if err != nil {
		t.Fatalf("vote in promoted team failed: %v", err)
	}
	if result.TeamID != upper.ID {
		t.Errorf("expected ballot in team %d, got %d", upper.ID, result.TeamID)
	}

	leader, err := e.votes.GetLeader(upper.ID, day)
	if err != nil {
		t.Fatalf("GetLeader failed: %v", err)
	}
	if leader.LeaderID != leader1.ID {
		t.Errorf("expected %d to lead the promoted team, got %d", leader1.ID, leader.LeaderID)
	}

	// Level-1 membership is untouched by promotion or upper-team voting.
	var count int64
	e.db.Model(&models.TeamMember{}).Where("user_id = ?", leader0.ID).Count(&count)
	if count != 2 {
		t.Errorf("expected leader to hold level-1 + promoted membership, got %d edges", count)
	}
}
