package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoreg/models"
)

func teamWith(status models.TeamStatus, created time.Time, pilots []models.MotorcycleExperience, roles []models.StaffRole) models.TeamWithRelations {
	t := models.Team{
		ID:             string(status) + created.Format(time.RFC3339),
		Status:         status,
		EngineCapacity: models.Engine125cc4T,
		CreatedAt:      created,
	}
	var ps []models.Pilot
	for _, e := range pilots {
		ps = append(ps, models.Pilot{MotorcycleExperience: e})
	}
	var ss []models.TeamStaff
	for _, r := range roles {
		ss = append(ss, models.TeamStaff{Role: r})
	}
	return models.NewTeamWithRelations(t, ps, ss)
}

func TestAggregateEmpty(t *testing.T) {
	st := Aggregate(nil)
	assert.Equal(t, 0, st.Total)
	assert.Equal(t, 0, st.ConversionRate)
	assert.Equal(t, 0.0, st.AvgPilotsPerTeam)
	assert.Len(t, st.ExperienceLevels, 6)
	assert.Len(t, st.EngineTypes, 2)
	assert.Len(t, st.StaffRoles, 3)
	assert.Empty(t, st.RegistrationsByDate)
}

func TestAggregate(t *testing.T) {
	day1 := time.Date(2025, 4, 1, 23, 30, 0, 0, time.UTC)
	day2 := time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC)

	teams := []models.TeamWithRelations{
		teamWith(models.StatusDraft, day1,
			[]models.MotorcycleExperience{models.ExperienceBeginner, models.ExperienceBeginner, models.ExperienceSemiPro},
			[]models.StaffRole{models.RoleMechanic}),
		teamWith(models.StatusConfirmed, day1,
			[]models.MotorcycleExperience{models.ExperienceTrackFast},
			[]models.StaffRole{models.RoleSupport, models.RoleSupport}),
		teamWith(models.StatusConfirmed, day2, nil, nil),
		teamWith(models.StatusCancelled, time.Time{}, nil, []models.StaffRole{models.RoleCoordinator}),
	}
	teams[0].GDPRConsent = true
	teams[1].MotorcyclePhotoStatus = models.PhotoPending
	teams[2].EngineCapacity = models.Engine50cc2T

	st := Aggregate(teams)

	assert.Equal(t, 4, st.Total)
	assert.Equal(t, StatusCounts{Draft: 1, Confirmed: 2, Cancelled: 1}, st.StatusCounts)
	assert.Equal(t, 50, st.ConversionRate)
	assert.Equal(t, 4, st.TotalPilots)
	assert.Equal(t, 4, st.TotalStaff)
	assert.Equal(t, 1.0, st.AvgPilotsPerTeam)
	assert.Equal(t, 2, st.ExperienceLevels[models.ExperienceBeginner])
	assert.Equal(t, 0, st.ExperienceLevels[models.ExperienceRoadRider])
	assert.Equal(t, 3, st.EngineTypes[models.Engine125cc4T])
	assert.Equal(t, 1, st.EngineTypes[models.Engine50cc2T])
	assert.Equal(t, 2, st.StaffRoles[models.RoleSupport])
	assert.Equal(t, map[string]int{"2025-04-01": 2, "2025-04-02": 1}, st.RegistrationsByDate)
	assert.Equal(t, 3, st.TeamsWithoutGdpr)
	assert.Equal(t, 1, st.PendingPhotoReviews)

	sum := func(m map[string]int) int {
		n := 0
		for _, v := range m {
			n += v
		}
		return n
	}
	exp := 0
	for _, v := range st.ExperienceLevels {
		exp += v
	}
	roles := 0
	for _, v := range st.StaffRoles {
		roles += v
	}
	assert.Equal(t, st.TotalPilots, exp)
	assert.Equal(t, st.TotalStaff, roles)
	assert.Equal(t, st.Total, st.Draft+st.Pending+st.Confirmed+st.Cancelled)
	assert.LessOrEqual(t, sum(st.RegistrationsByDate), st.Total)
}

func TestAggregateRoundsAverage(t *testing.T) {
	teams := []models.TeamWithRelations{
		teamWith(models.StatusConfirmed, time.Now(), make([]models.MotorcycleExperience, 4), nil),
		teamWith(models.StatusDraft, time.Now(), make([]models.MotorcycleExperience, 5), nil),
		teamWith(models.StatusDraft, time.Now(), make([]models.MotorcycleExperience, 5), nil),
	}
	st := Aggregate(teams)
	assert.Equal(t, 4.7, st.AvgPilotsPerTeam)
	assert.Equal(t, 33, st.ConversionRate)
}

func TestStatisticsJSONIsFlat(t *testing.T) {
	raw, err := json.Marshal(Aggregate(nil))
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	for _, key := range []string{"total", "draft", "pending", "confirmed", "cancelled", "conversionRate", "avgPilotsPerTeam", "registrationsByDate"} {
		assert.Contains(t, out, key)
	}
	assert.EqualValues(t, 0, out["avgPilotsPerTeam"])
}
