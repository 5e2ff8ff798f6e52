package models

import "time"

// PilotsMin and PilotsMax bound the declared size of a team.
const (
	PilotsMin = 4
	PilotsMax = 8
)

// Team is a registered entrant, owned by one representative user.
type Team struct {
	ID                   string `gorm:"primaryKey;size:36" json:"id"`
	RepresentativeUserID string `gorm:"not null;uniqueIndex" json:"representative_user_id"`
	Name                 string `gorm:"not null" json:"name"`
	NumberOfPilots       int    `gorm:"not null" json:"number_of_pilots"`

	// Representative info
	RepresentativeName    string `json:"representative_name"`
	RepresentativeSurname string `json:"representative_surname"`
	RepresentativeDNI     string `gorm:"column:representative_dni" json:"representative_dni"`
	RepresentativePhone   string `json:"representative_phone"`
	RepresentativeEmail   string `json:"representative_email"`

	// Address
	Address      string `json:"address,omitempty"`
	Municipality string `json:"municipality,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Province     string `json:"province,omitempty"`

	// Motorcycle
	MotorcycleBrand       string         `json:"motorcycle_brand,omitempty"`
	MotorcycleModel       string         `json:"motorcycle_model,omitempty"`
	EngineCapacity        EngineCapacity `gorm:"not null;default:'125cc_4t'" json:"engine_capacity"`
	RegistrationDate      string         `json:"registration_date,omitempty"`
	Modifications         string         `json:"modifications,omitempty"`
	MotorcyclePhotoURL    string         `json:"motorcycle_photo_url,omitempty"`
	MotorcyclePhotoStatus PhotoStatus    `gorm:"index" json:"motorcycle_photo_status,omitempty"`

	Comments        string     `json:"comments,omitempty"`
	GDPRConsent     bool       `gorm:"column:gdpr_consent" json:"gdpr_consent"`
	GDPRConsentDate *time.Time `gorm:"column:gdpr_consent_date" json:"gdpr_consent_date"`
	Status          TeamStatus `gorm:"not null;default:'draft';index" json:"status"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Team) TableName() string {
	return "teams"
}

func (t *Team) RecordID() string {
	return t.ID
}

// TeamWithRelations is a team annotated with its fetched children.
type TeamWithRelations struct {
	Team
	Pilots      []Pilot     `json:"pilots"`
	Staff       []TeamStaff `json:"staff"`
	PilotsCount int         `json:"pilotsCount"`
	StaffCount  int         `json:"staffCount"`
}

// NewTeamWithRelations attaches children and fills in the counts.
func NewTeamWithRelations(team Team, pilots []Pilot, staff []TeamStaff) TeamWithRelations {
	if pilots == nil {
		pilots = []Pilot{}
	}
	if staff == nil {
		staff = []TeamStaff{}
	}
	return TeamWithRelations{
		Team:        team,
		Pilots:      pilots,
		Staff:       staff,
		PilotsCount: len(pilots),
		StaffCount:  len(staff),
	}
}
