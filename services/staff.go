package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"motoreg/models"
	"motoreg/store"
	"motoreg/utils"
)

type StaffRequest struct {
	Name  string           `json:"name"`
	DNI   string           `json:"dni"`
	Phone string           `json:"phone"`
	Role  models.StaffRole `json:"role"`
}

// StaffUpdateRequest drops id, team_id and created_at from the payload.
type StaffUpdateRequest struct {
	Name  *string           `json:"name"`
	DNI   *string           `json:"dni"`
	Phone *string           `json:"phone"`
	Role  *models.StaffRole `json:"role"`
}

func (s *RegistrationService) ListStaff(ctx context.Context, userID string) ([]models.TeamStaff, error) {
	team, err := s.requireOwnTeam(ctx, userID)
	if err != nil {
		return nil, err
	}
	staff := []models.TeamStaff{}
	if err := s.store.List(ctx, store.CollectionStaff, store.Filter{store.ParentField: team.ID}, staffOrder, &staff); err != nil {
		return nil, utils.Backend(err)
	}
	return staff, nil
}

// AddStaff adds a support member. The count check and the insert are not
// atomic: two concurrent adds at MaxStaff-1 can both succeed.
func (s *RegistrationService) AddStaff(ctx context.Context, userID string, req StaffRequest) (*models.TeamStaff, error) {
	team, err := s.requireOwnTeam(ctx, userID)
	if err != nil {
		return nil, err
	}

	count, err := s.store.Count(ctx, store.CollectionStaff, store.Filter{store.ParentField: team.ID})
	if err != nil {
		return nil, utils.Backend(err)
	}
	if count >= models.MaxStaff {
		return nil, rule(ErrCapacity, fmt.Sprintf(
			"El equipo ya tiene el máximo de staff (%d) / Team already has maximum staff (%d)",
			models.MaxStaff, models.MaxStaff))
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || req.Role == "" {
		return nil, utils.Validation("Nombre y rol son obligatorios / Name and role are required")
	}
	if !req.Role.Valid() {
		return nil, utils.Validation("Rol inválido / Invalid role")
	}

	now := s.now()
	member := &models.TeamStaff{
		ID:        uuid.NewString(),
		TeamID:    team.ID,
		Name:      name,
		DNI:       req.DNI,
		Phone:     req.Phone,
		Role:      req.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Insert(ctx, store.CollectionStaff, member); err != nil {
		return nil, utils.Backend(err)
	}

	utils.LogEvent("staff_added", map[string]interface{}{
		"team_id":  team.ID,
		"staff_id": member.ID,
		"role":     member.Role,
	})
	return member, nil
}

func (s *RegistrationService) UpdateStaff(ctx context.Context, userID, staffID string, req StaffUpdateRequest) (*models.TeamStaff, error) {
	team, member, err := s.ownedStaff(ctx, userID, staffID)
	if err != nil {
		return nil, err
	}

	patch := map[string]interface{}{}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, utils.Validation("Rol inválido / Invalid role")
		}
		patch["role"] = *req.Role
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, utils.Validation("Nombre y rol son obligatorios / Name and role are required")
		}
		patch["name"] = name
	}
	setString(patch, "dni", req.DNI)
	setString(patch, "phone", req.Phone)

	if len(patch) == 0 {
		return member, nil
	}
	patch["updated_at"] = s.now()

	if err := s.store.Update(ctx, store.CollectionStaff, member.ID, patch); err != nil {
		return nil, staffStoreError(err)
	}
	var updated models.TeamStaff
	err = s.store.Get(ctx, store.CollectionStaff, store.Filter{"id": member.ID, store.ParentField: team.ID}, &updated)
	if err != nil {
		return nil, staffStoreError(err)
	}
	return &updated, nil
}

func (s *RegistrationService) RemoveStaff(ctx context.Context, userID, staffID string) error {
	_, member, err := s.ownedStaff(ctx, userID, staffID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, store.CollectionStaff, member.ID); err != nil {
		return staffStoreError(err)
	}
	return nil
}

// ownedStaff loads a staff record of the caller's team. Records of other
// teams are reported exactly like missing ones.
func (s *RegistrationService) ownedStaff(ctx context.Context, userID, staffID string) (*models.Team, *models.TeamStaff, error) {
	team, err := s.requireOwnTeam(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if staffID == "" {
		return nil, nil, utils.Validation("Staff ID required")
	}

	var member models.TeamStaff
	err = s.store.Get(ctx, store.CollectionStaff, store.Filter{"id": staffID, store.ParentField: team.ID}, &member)
	if err != nil {
		return nil, nil, staffStoreError(err)
	}
	return team, &member, nil
}

func staffStoreError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return utils.NotFound("Staff no encontrado / Staff not found")
	}
	return utils.Backend(err)
}
