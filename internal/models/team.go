package models

import (
	"time"
)

// Team represents a team in the pyramid hierarchy. Level 1 teams are
// created and joined by users directly; teams above level 1 are formed
// exclusively by cohort promotion and their membership never changes.
type Team struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Level        int       `gorm:"not null;index;default:1" json:"level"`
	ParentTeamID *uint     `gorm:"index" json:"parent_team_id,omitempty"`
	ParentTeam   *Team     `gorm:"foreignKey:ParentTeamID" json:"parent_team,omitempty"`
	// CohortKey is set only on promoted teams: a deterministic digest of the
	// child cohort. The unique index is what makes promotion idempotent
	// under concurrent leader-change events.
	CohortKey *string   `gorm:"uniqueIndex;size:64" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Team model
func (Team) TableName() string {
	return "teams"
}

// TeamMember is the membership edge between a user and a team,
// unique per (user, team).
type TeamMember struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	TeamID   uint      `gorm:"not null;uniqueIndex:idx_member_user_team" json:"team_id"`
	Team     *Team     `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_member_user_team;index" json:"user_id"`
	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// TableName specifies the table name for TeamMember model
func (TeamMember) TableName() string {
	return "team_members"
}
