package models

import "time"

// SettingsID is the key of the registration settings singleton.
const SettingsID = "global"

// RegistrationSettings controls whether new teams may be created.
type RegistrationSettings struct {
	ID                   string     `gorm:"primaryKey;size:36" json:"id"`
	RegistrationOpen     bool       `gorm:"not null;default:false" json:"registration_open"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	MaxTeams             *int       `json:"max_teams"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (RegistrationSettings) TableName() string {
	return "registration_settings"
}

func (s *RegistrationSettings) RecordID() string {
	return s.ID
}

// DeadlinePassed reports whether a deadline is set and now is after it.
func (s *RegistrationSettings) DeadlinePassed(now time.Time) bool {
	return s.RegistrationDeadline != nil && now.After(*s.RegistrationDeadline)
}

// Full reports whether a team ceiling is set and count has reached it.
// A ceiling of zero or less means no limit.
func (s *RegistrationSettings) Full(count int64) bool {
	return s.MaxTeams != nil && *s.MaxTeams > 0 && count >= int64(*s.MaxTeams)
}
