package models

import "time"

// Pilot is a rider registered under a team.
type Pilot struct {
	ID                    string               `gorm:"primaryKey;size:36" json:"id"`
	TeamID                string               `gorm:"not null;index;size:36" json:"team_id"`
	Name                  string               `gorm:"not null" json:"name"`
	Surname               string               `json:"surname"`
	DNI                   string               `gorm:"column:dni" json:"dni"`
	Email                 string               `json:"email"`
	Phone                 string               `json:"phone"`
	EmergencyContactName  string               `json:"emergency_contact_name"`
	EmergencyContactPhone string               `json:"emergency_contact_phone"`
	DrivingLevel          DrivingLevel         `json:"driving_level,omitempty"`
	MotorcycleExperience  MotorcycleExperience `gorm:"index" json:"motorcycle_experience"`
	TrackExperience       string               `json:"track_experience,omitempty"`
	IsRepresentative      bool                 `json:"is_representative"`
	PilotNumber           int                  `json:"pilot_number"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
}

func (Pilot) TableName() string {
	return "pilots"
}

func (p *Pilot) RecordID() string {
	return p.ID
}
