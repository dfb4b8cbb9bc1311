package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"teamcoin/internal/models"
	"teamcoin/internal/teamerr"
)

// buildTeam creates a level-1 team with n members named prefix0..prefixN-1.
func buildTeam(t *testing.T, e *engine, prefix string, n int) (*models.Team, []*models.User) {
	t.Helper()

	users := make([]*models.User, n)
	for i := 0; i < n; i++ {
		users[i] = createUser(t, e.db, fmt.Sprintf("%s%d", prefix, i))
	}

	team, err := e.teams.CreateTeam(users[0].ID, "Team "+prefix)
	if err != nil {
		t.Fatalf("CreateTeam failed: %v", err)
	}
	for _, u := range users[1:] {
		if _, err := e.teams.JoinTeam(u.ID, team.ID); err != nil {
			t.Fatalf("JoinTeam failed for %s: %v", u.Username, err)
		}
	}
	return team, users
}

func TestPluralityElection(t *testing.T) {
	e := newEngine(t, 9, 9)
	now := time.Now()
	day := now.UTC().Format("2006-01-02")

	team, users := buildTeam(t, e, "u", 9)
	a, b := users[0], users[1]

	// 5 votes for A, then 4 for B; A leads throughout.
	for _, voter := range []*models.User{users[1], users[2], users[3], users[4], users[5]} {
		if _, err := e.votes.CastVote(voter.ID, a.ID, now); err != nil {
			t.Fatalf("vote for A failed: %v", err)
		}
	}
	for _, voter := range []*models.User{users[0], users[6], users[7], users[8]} {
		if _, err := e.votes.CastVote(voter.ID, b.ID, now); err != nil {
			t.Fatalf("vote for B failed: %v", err)
		}
	}

	leader, err := e.votes.GetLeader(team.ID, day)
	if err != nil {
		t.Fatalf("GetLeader failed: %v", err)
	}
	if leader.LeaderID != a.ID {
		t.Errorf("expected leader %d, got %d", a.ID, leader.LeaderID)
	}
	if leader.VoteCount != 5 {
		t.Errorf("expected vote count 5, got %d", leader.VoteCount)
	}

	// Leadership bonus issued exactly once; A never lost the lead.
	if got := entryCount(t, e.db, a.ID, models.ReasonLeadership); got != 1 {
		t.Errorf("expected 1 leadership bonus, got %d", got)
	}
	assertNoDrift(t, e, a.ID)
}

func TestRevoteOverwritesAndSkipsBonus(t *testing.T) {
	e := newEngine(t, 9, 9)
	now := time.Now()
	day := now.UTC().Format("2006-01-02")

	team, users := buildTeam(t, e, "u", 3)
	a, b, voter := users[0], users[1], users[2]

	if _, err := e.votes.CastVote(voter.ID, a.ID, now); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	if _, err := e.votes.CastVote(voter.ID, b.ID, now); err != nil {
		t.Fatalf("re-vote failed: %v", err)
	}

	// One row, updated in place.
	var ballots []models.Vote
	if err := e.db.Where("voter_id = ? AND team_id = ? AND vote_date = ?", voter.ID, team.ID, day).
		Find(&ballots).Error; err != nil {
		t.Fatalf("failed to load ballots: %v", err)
	}
	if len(ballots) != 1 {
		t.Fatalf("expected 1 ballot, got %d", len(ballots))
	}
	if ballots[0].CandidateID != b.ID {
		t.Errorf("expected ballot for %d, got %d", b.ID, ballots[0].CandidateID)
	}

	// The vote bonus is per voting-day, not per overwrite.
	if got := entryCount(t, e.db, voter.ID, models.ReasonVote); got != 1 {
		t.Errorf("expected 1 vote bonus, got %d", got)
	}

	// Leader re-tallied: B now holds the day with the single vote.
	leader, err := e.votes.GetLeader(team.ID, day)
	if err != nil {
		t.Fatalf("GetLeader failed: %v", err)
	}
	if leader.LeaderID != b.ID {
		t.Errorf("expected leader %d after re-vote, got %d", b.ID, leader.LeaderID)
	}
}

func TestCastVoteWithoutTeam(t *testing.T) {
	e := newEngine(t, 9, 9)

	loner := createUser(t, e.db, "loner")
	other := createUser(t, e.db, "other")

	_, err := e.votes.CastVote(loner.ID, other.ID, time.Now())
	if !errors.Is(err, teamerr.ErrNoTeam) {
		t.Fatalf("expected ErrNoTeam, got %v", err)
	}
}

func TestCastVoteInvalidCandidate(t *testing.T) {
	e := newEngine(t, 9, 9)
	now := time.Now()

	_, aMembers := buildTeam(t, e, "a", 2)
	_, bMembers := buildTeam(t, e, "b", 2)

	// Self-vote.
	if _, err := e.votes.CastVote(aMembers[0].ID, aMembers[0].ID, now); !errors.Is(err, teamerr.ErrInvalidCandidate) {
		t.Errorf("self-vote: expected ErrInvalidCandidate, got %v", err)
	}

	// Candidate on another team.
	if _, err := e.votes.CastVote(aMembers[0].ID, bMembers[0].ID, now); !errors.Is(err, teamerr.ErrInvalidCandidate) {
		t.Errorf("cross-team: expected ErrInvalidCandidate, got %v", err)
	}
}

func TestTieKeepsStandingLeader(t *testing.T) {
	e := newEngine(t, 9, 9)
	now := time.Now()
	day := now.UTC().Format("2006-01-02")

	team, users := buildTeam(t, e, "u", 4)
	a, b := users[0], users[1]

	// A takes the lead 1-0.
	if _, err := e.votes.CastVote(users[2].ID, a.ID, now); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	// B ties 1-1: the standing leader is kept, no bonus moves.
	if _, err := e.votes.CastVote(users[3].ID, b.ID, now); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	leader, err := e.votes.GetLeader(team.ID, day)
	if err != nil {
		t.Fatalf("GetLeader failed: %v", err)
	}
	if leader.LeaderID != a.ID {
		t.Errorf("tie should keep standing leader %d, got %d", a.ID, leader.LeaderID)
	}
	if got := entryCount(t, e.db, b.ID, models.ReasonLeadership); got != 0 {
		t.Errorf("bonus issued on a tie")
	}

	// B overtakes 2-1: leader changes, B gets the bonus, A keeps theirs.
	if _, err := e.votes.CastVote(a.ID, b.ID, now); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	leader, err = e.votes.GetLeader(team.ID, day)
	if err != nil {
		t.Fatalf("GetLeader failed: %v", err)
	}
	if leader.LeaderID != b.ID || leader.VoteCount != 2 {
		t.Errorf("expected leader %d with 2 votes, got %d with %d", b.ID, leader.LeaderID, leader.VoteCount)
	}
	if got := entryCount(t, e.db, b.ID, models.ReasonLeadership); got != 1 {
		t.Errorf("expected 1 leadership bonus for new leader, got %d", got)
	}
	if got := entryCount(t, e.db, a.ID, models.ReasonLeadership); got != 1 {
		t.Errorf("previous leader's bonus must not be revoked, got %d entries", got)
	}
}

func TestTieAmongNewCandidatesPicksLowestID(t *testing.T) {
	e := newEngine(t, 9, 9)
	now := time.Now()
	day := now.UTC().Format("2006-01-02")

	team, users := buildTeam(t, e, "u", 5)
	a, b, c := users[0], users[1], users[2]

	// A leads 2-0.
	if _, err := e.votes.CastVote(users[3].ID, a.ID, now); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if _, err := e.votes.CastVote(users[4].ID, a.ID, now); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	// Both voters walk away to B and C: 0-1-1 with A out of the running.
	if _, err := e.votes.CastVote(users[3].ID, b.ID, now); err != nil {
		t.Fatalf("re-vote failed: %v", err)
	}
	if _, err := e.votes.CastVote(users[4].ID, c.ID, now); err != nil {
		t.Fatalf("re-vote failed: %v", err)
	}

	leader, err := e.votes.GetLeader(team.ID, day)
	if err != nil {
		t.Fatalf("GetLeader failed: %v", err)
	}
	if leader.LeaderID != b.ID {
		t.Errorf("expected lowest-id candidate %d to win the tie, got %d", b.ID, leader.LeaderID)
	}
}

func TestOnlyOneBallotPerTeamAndDay(t *testing.T) {
	e := newEngine(t, 9, 9)
	now := time.Now()

	team, users := buildTeam(t, e, "u", 3)
	voter := users[2]

	for i := 0; i < 4; i++ {
		target := users[i%2]
		if _, err := e.votes.CastVote(voter.ID, target.ID, now); err != nil {
			t.Fatalf("vote %d failed: %v", i, err)
		}
	}

	var count int64
	e.db.Model(&models.Vote{}).Where("voter_id = ? AND team_id = ?", voter.ID, team.ID).Count(&count)
	if count != 1 {
		t.Errorf("expected a single ballot row, got %d", count)
	}
}
