package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"motoreg/models"
	"motoreg/store"
	"motoreg/utils"
)

// maxFanOut bounds the concurrent store calls issued by one admin request.
const maxFanOut = 8

// AdminService implements the admin-scoped listing and management operations.
type AdminService struct {
	store    store.RecordStore
	notifier Notifier
	now      func() time.Time
}

func NewAdminService(s store.RecordStore, n Notifier) *AdminService {
	if n == nil {
		n = NopNotifier{}
	}
	return &AdminService{
		store:    s,
		notifier: n,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AdminTeamUpdate is the admin patch. Fields other than these are dropped on decode.
type AdminTeamUpdate struct {
	Status                *models.TeamStatus  `json:"status"`
	MotorcyclePhotoStatus *models.PhotoStatus `json:"motorcycle_photo_status"`
}

// ListTeams returns every team, newest first, with children and statistics.
func (s *AdminService) ListTeams(ctx context.Context) ([]models.TeamWithRelations, Statistics, error) {
	var teams []models.Team
	if err := s.store.List(ctx, store.CollectionTeams, nil, &store.Order{Field: "created_at", Desc: true}, &teams); err != nil {
		return nil, Statistics{}, utils.Backend(err)
	}

	result := make([]models.TeamWithRelations, len(teams))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFanOut)
	for i := range teams {
		i := i
		g.Go(func() error {
			withChildren, err := loadChildren(gctx, s.store, teams[i])
			if err != nil {
				return err
			}
			result[i] = withChildren
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Statistics{}, utils.Backend(err)
	}

	return result, Aggregate(result), nil
}

// UpdateTeam applies a status and/or photo review decision. Invalid enum
// values are dropped like unknown fields.
func (s *AdminService) UpdateTeam(ctx context.Context, teamID string, req AdminTeamUpdate) (*models.Team, error) {
	if teamID == "" {
		return nil, utils.Validation("Team ID is required")
	}

	patch := map[string]interface{}{}
	if req.Status != nil && req.Status.Valid() {
		patch["status"] = *req.Status
	}
	if req.MotorcyclePhotoStatus != nil && req.MotorcyclePhotoStatus.Valid() {
		patch["motorcycle_photo_status"] = *req.MotorcyclePhotoStatus
	}
	if len(patch) == 0 {
		return nil, utils.Validation("No valid fields to update")
	}
	patch["updated_at"] = s.now()

	var previous models.Team
	err := s.store.Get(ctx, store.CollectionTeams, store.Filter{"id": teamID}, &previous)
	if errors.Is(err, store.ErrNotFound) {
		return nil, utils.NotFound("Equipo no encontrado / Team not found")
	}
	if err != nil {
		return nil, utils.Backend(err)
	}

	team, err := updateTeam(ctx, s.store, teamID, patch)
	if err != nil {
		return nil, err
	}

	utils.LogEvent("team_reviewed", map[string]interface{}{
		"team_id":      team.ID,
		"status":       team.Status,
		"photo_status": team.MotorcyclePhotoStatus,
	})

	if team.Status != previous.Status {
		if err := s.notifier.StatusChanged(ctx, team); err != nil {
			utils.LogError("status_notification_failed", err, map[string]interface{}{
				"team_id": team.ID,
				"status":  team.Status,
			})
		}
	}
	return team, nil
}

// DeleteTeam removes a team and its pilots and staff. Children are deleted
// concurrently before the team; a failure leaves already deleted children gone.
func (s *AdminService) DeleteTeam(ctx context.Context, teamID string) error {
	if teamID == "" {
		return utils.Validation("Team ID is required")
	}

	var team models.Team
	err := s.store.Get(ctx, store.CollectionTeams, store.Filter{"id": teamID}, &team)
	if errors.Is(err, store.ErrNotFound) {
		return utils.NotFound("Equipo no encontrado / Team not found")
	}
	if err != nil {
		return utils.Backend(err)
	}

	withChildren, err := loadChildren(ctx, s.store, team)
	if err != nil {
		return utils.Backend(err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFanOut)
	for _, p := range withChildren.Pilots {
		id := p.ID
		g.Go(func() error { return deleteChild(gctx, s.store, store.CollectionPilots, id) })
	}
	for _, m := range withChildren.Staff {
		id := m.ID
		g.Go(func() error { return deleteChild(gctx, s.store, store.CollectionStaff, id) })
	}
	if err := g.Wait(); err != nil {
		return utils.Backend(err)
	}

	err = s.store.Delete(ctx, store.CollectionTeams, teamID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return utils.Backend(err)
	}

	utils.LogEvent("team_deleted", map[string]interface{}{
		"team_id": teamID,
		"pilots":  withChildren.PilotsCount,
		"staff":   withChildren.StaffCount,
	})
	return nil
}

// deleteChild treats an already missing record as deleted.
func deleteChild(ctx context.Context, st store.RecordStore, collection, id string) error {
	err := st.Delete(ctx, collection, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
