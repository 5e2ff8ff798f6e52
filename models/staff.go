package models

import "time"

// MaxStaff is the number of support members a team may register.
const MaxStaff = 4

// TeamStaff is a support member (mechanic, coordinator or support) of a team.
type TeamStaff struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	TeamID    string    `gorm:"not null;index;size:36" json:"team_id"`
	Name      string    `gorm:"not null" json:"name"`
	DNI       string    `gorm:"column:dni" json:"dni,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Role      StaffRole `gorm:"not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TeamStaff) TableName() string {
	return "team_staff"
}

func (s *TeamStaff) RecordID() string {
	return s.ID
}
