package models

import (
	"time"
)

// Vote is a single ballot: one row per (voter, team, day), mutable.
// Re-casting on the same day overwrites CandidateID in place.
// VoteDate is a UTC calendar day in YYYY-MM-DD form so the uniqueness
// constraint cannot drift across time zones.
type Vote struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	VoterID     uint      `gorm:"not null;uniqueIndex:idx_vote_voter_team_day" json:"voter_id"`
	Voter       *User     `gorm:"foreignKey:VoterID" json:"voter,omitempty"`
	CandidateID uint      `gorm:"not null;index" json:"candidate_id"`
	Candidate   *User     `gorm:"foreignKey:CandidateID" json:"candidate,omitempty"`
	TeamID      uint      `gorm:"not null;uniqueIndex:idx_vote_voter_team_day;index" json:"team_id"`
	VoteDate    string    `gorm:"size:10;not null;uniqueIndex:idx_vote_voter_team_day" json:"vote_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for Vote model
func (Vote) TableName() string {
	return "votes"
}

// TeamLeader is the resolved election outcome for one (team, day).
// Only the leader resolver writes it, and only while votes for that
// day are still arriving.
type TeamLeader struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TeamID     uint      `gorm:"not null;uniqueIndex:idx_leader_team_day" json:"team_id"`
	Team       *Team     `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	LeaderID   uint      `gorm:"not null;index" json:"leader_id"`
	Leader     *User     `gorm:"foreignKey:LeaderID" json:"leader,omitempty"`
	LeaderDate string    `gorm:"size:10;not null;uniqueIndex:idx_leader_team_day" json:"leader_date"`
	VoteCount  int       `gorm:"not null" json:"vote_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for TeamLeader model
func (TeamLeader) TableName() string {
	return "team_leaders"
}
