package services

import (
	"math"

	"motoreg/models"
)

type StatusCounts struct {
	Draft     int `json:"draft"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
}

// Statistics is the admin dashboard summary. StatusCounts is embedded so the
// per-status buckets are top-level keys next to total.
type Statistics struct {
	Total int `json:"total"`
	StatusCounts
	TotalPilots         int                                 `json:"totalPilots"`
	TotalStaff          int                                 `json:"totalStaff"`
	ExperienceLevels    map[models.MotorcycleExperience]int `json:"experienceLevels"`
	EngineTypes         map[models.EngineCapacity]int       `json:"engineTypes"`
	StaffRoles          map[models.StaffRole]int            `json:"staffRoles"`
	RegistrationsByDate map[string]int                      `json:"registrationsByDate"`
	TeamsWithoutGdpr    int                                 `json:"teamsWithoutGdpr"`
	ConversionRate      int                                 `json:"conversionRate"`
	AvgPilotsPerTeam    float64                             `json:"avgPilotsPerTeam"`
	PendingPhotoReviews int                                 `json:"pendingPhotoReviews"`
}

const dateLayout = "2006-01-02"

// Aggregate computes the summary over teams already loaded with their children.
// Values outside the known enums are not bucketed.
func Aggregate(teams []models.TeamWithRelations) Statistics {
	st := Statistics{
		Total:               len(teams),
		ExperienceLevels:    make(map[models.MotorcycleExperience]int, len(models.MotorcycleExperiences)),
		EngineTypes:         make(map[models.EngineCapacity]int, len(models.EngineCapacities)),
		StaffRoles:          make(map[models.StaffRole]int, len(models.StaffRoles)),
		RegistrationsByDate: map[string]int{},
	}
	for _, e := range models.MotorcycleExperiences {
		st.ExperienceLevels[e] = 0
	}
	for _, e := range models.EngineCapacities {
		st.EngineTypes[e] = 0
	}
	for _, r := range models.StaffRoles {
		st.StaffRoles[r] = 0
	}

	for _, t := range teams {
		switch t.Status {
		case models.StatusDraft:
			st.Draft++
		case models.StatusPending:
			st.Pending++
		case models.StatusConfirmed:
			st.Confirmed++
		case models.StatusCancelled:
			st.Cancelled++
		}

		if t.EngineCapacity.Valid() {
			st.EngineTypes[t.EngineCapacity]++
		}
		if !t.GDPRConsent {
			st.TeamsWithoutGdpr++
		}
		if t.MotorcyclePhotoStatus == models.PhotoPending {
			st.PendingPhotoReviews++
		}
		if !t.CreatedAt.IsZero() {
			st.RegistrationsByDate[t.CreatedAt.UTC().Format(dateLayout)]++
		}

		st.TotalPilots += len(t.Pilots)
		for _, p := range t.Pilots {
			if p.MotorcycleExperience.Valid() {
				st.ExperienceLevels[p.MotorcycleExperience]++
			}
		}
		st.TotalStaff += len(t.Staff)
		for _, s := range t.Staff {
			if s.Role.Valid() {
				st.StaffRoles[s.Role]++
			}
		}
	}

	if st.Total > 0 {
		st.ConversionRate = int(math.Round(100 * float64(st.Confirmed) / float64(st.Total)))
		st.AvgPilotsPerTeam = math.Round(10*float64(st.TotalPilots)/float64(st.Total)) / 10
	}
	return st
}
