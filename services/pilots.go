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

type PilotRequest struct {
	Name                  string                      `json:"name" validate:"required"`
	Surname               string                      `json:"surname" validate:"required"`
	DNI                   string                      `json:"dni"`
	Email                 string                      `json:"email"`
	Phone                 string                      `json:"phone"`
	EmergencyContactName  string                      `json:"emergency_contact_name"`
	EmergencyContactPhone string                      `json:"emergency_contact_phone"`
	DrivingLevel          models.DrivingLevel         `json:"driving_level" validate:"omitempty,oneof=amateur intermediate advanced expert"`
	MotorcycleExperience  models.MotorcycleExperience `json:"motorcycle_experience" validate:"required,oneof=principiante rutero tandero_iniciado tandero_medio tandero_rapido semi_pro"`
	TrackExperience       string                      `json:"track_experience"`
	IsRepresentative      bool                        `json:"is_representative"`
	PilotNumber           *int                        `json:"pilot_number" validate:"omitempty,min=1"`
}

// PilotUpdateRequest drops id, team_id and created_at from the payload.
type PilotUpdateRequest struct {
	Name                  *string                      `json:"name"`
	Surname               *string                      `json:"surname"`
	DNI                   *string                      `json:"dni"`
	Email                 *string                      `json:"email"`
	Phone                 *string                      `json:"phone"`
	EmergencyContactName  *string                      `json:"emergency_contact_name"`
	EmergencyContactPhone *string                      `json:"emergency_contact_phone"`
	DrivingLevel          *models.DrivingLevel         `json:"driving_level"`
	MotorcycleExperience  *models.MotorcycleExperience `json:"motorcycle_experience"`
	TrackExperience       *string                      `json:"track_experience"`
	IsRepresentative      *bool                        `json:"is_representative"`
	PilotNumber           *int                         `json:"pilot_number"`
}

func (s *RegistrationService) ListPilots(ctx context.Context, userID string) ([]models.Pilot, error) {
	team, err := s.requireOwnTeam(ctx, userID)
	if err != nil {
		return nil, err
	}
	pilots := []models.Pilot{}
	if err := s.store.List(ctx, store.CollectionPilots, store.Filter{store.ParentField: team.ID}, pilotOrder, &pilots); err != nil {
		return nil, utils.Backend(err)
	}
	return pilots, nil
}

// AddPilot registers a rider up to the team's declared number of pilots.
func (s *RegistrationService) AddPilot(ctx context.Context, userID string, req PilotRequest) (*models.Pilot, error) {
	team, err := s.requireOwnTeam(ctx, userID)
	if err != nil {
		return nil, err
	}

	var existing []models.Pilot
	if err := s.store.List(ctx, store.CollectionPilots, store.Filter{store.ParentField: team.ID}, nil, &existing); err != nil {
		return nil, utils.Backend(err)
	}
	if len(existing) >= team.NumberOfPilots {
		return nil, rule(ErrCapacity, fmt.Sprintf(
			"El equipo ya tiene el máximo de pilotos (%d) / Team already has maximum pilots (%d)",
			team.NumberOfPilots, team.NumberOfPilots))
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Surname = strings.TrimSpace(req.Surname)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.Validation(err.Error())
	}
	if err := validateEmail(req.Email); err != nil {
		return nil, err
	}

	// default to one past the highest number in use, so numbers freed by
	// removals are never handed out twice
	number := 1
	for _, p := range existing {
		if p.PilotNumber >= number {
			number = p.PilotNumber + 1
		}
	}
	if req.PilotNumber != nil {
		number = *req.PilotNumber
	}

	now := s.now()
	pilot := &models.Pilot{
		ID:                    uuid.NewString(),
		TeamID:                team.ID,
		Name:                  req.Name,
		Surname:               req.Surname,
		DNI:                   req.DNI,
		Email:                 req.Email,
		Phone:                 req.Phone,
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
		DrivingLevel:          req.DrivingLevel,
		MotorcycleExperience:  req.MotorcycleExperience,
		TrackExperience:       req.TrackExperience,
		IsRepresentative:      req.IsRepresentative,
		PilotNumber:           number,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.store.Insert(ctx, store.CollectionPilots, pilot); err != nil {
		return nil, utils.Backend(err)
	}

	utils.LogEvent("pilot_added", map[string]interface{}{
		"team_id":      team.ID,
		"pilot_id":     pilot.ID,
		"pilot_number": pilot.PilotNumber,
	})
	return pilot, nil
}

func (s *RegistrationService) UpdatePilot(ctx context.Context, userID, pilotID string, req PilotUpdateRequest) (*models.Pilot, error) {
	team, pilot, err := s.ownedPilot(ctx, userID, pilotID)
	if err != nil {
		return nil, err
	}

	patch := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, utils.Validation("name is required")
		}
		patch["name"] = name
	}
	if req.Surname != nil {
		surname := strings.TrimSpace(*req.Surname)
		if surname == "" {
			return nil, utils.Validation("surname is required")
		}
		patch["surname"] = surname
	}
	if req.MotorcycleExperience != nil {
		if !req.MotorcycleExperience.Valid() {
			return nil, utils.Validation("Nivel de experiencia inválido / Invalid experience level")
		}
		patch["motorcycle_experience"] = *req.MotorcycleExperience
	}
	if req.DrivingLevel != nil {
		if *req.DrivingLevel != "" && !req.DrivingLevel.Valid() {
			return nil, utils.Validation("Nivel de conducción inválido / Invalid driving level")
		}
		patch["driving_level"] = *req.DrivingLevel
	}
	if req.Email != nil {
		if err := validateEmail(*req.Email); err != nil {
			return nil, err
		}
		patch["email"] = *req.Email
	}
	if req.PilotNumber != nil {
		if *req.PilotNumber < 1 {
			return nil, utils.Validation("pilot_number must be at least 1")
		}
		patch["pilot_number"] = *req.PilotNumber
	}
	if req.IsRepresentative != nil {
		patch["is_representative"] = *req.IsRepresentative
	}
	setString(patch, "dni", req.DNI)
	setString(patch, "phone", req.Phone)
	setString(patch, "emergency_contact_name", req.EmergencyContactName)
	setString(patch, "emergency_contact_phone", req.EmergencyContactPhone)
	setString(patch, "track_experience", req.TrackExperience)

	if len(patch) == 0 {
		return pilot, nil
	}
	patch["updated_at"] = s.now()

	if err := s.store.Update(ctx, store.CollectionPilots, pilot.ID, patch); err != nil {
		return nil, pilotStoreError(err)
	}
	var updated models.Pilot
	err = s.store.Get(ctx, store.CollectionPilots, store.Filter{"id": pilot.ID, store.ParentField: team.ID}, &updated)
	if err != nil {
		return nil, pilotStoreError(err)
	}
	return &updated, nil
}

func (s *RegistrationService) RemovePilot(ctx context.Context, userID, pilotID string) error {
	_, pilot, err := s.ownedPilot(ctx, userID, pilotID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, store.CollectionPilots, pilot.ID); err != nil {
		return pilotStoreError(err)
	}
	return nil
}

func (s *RegistrationService) ownedPilot(ctx context.Context, userID, pilotID string) (*models.Team, *models.Pilot, error) {
	team, err := s.requireOwnTeam(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if pilotID == "" {
		return nil, nil, utils.Validation("Pilot ID required")
	}

	var pilot models.Pilot
	err = s.store.Get(ctx, store.CollectionPilots, store.Filter{"id": pilotID, store.ParentField: team.ID}, &pilot)
	if err != nil {
		return nil, nil, pilotStoreError(err)
	}
	return team, &pilot, nil
}

func pilotStoreError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return utils.NotFound("Piloto no encontrado / Pilot not found")
	}
	return utils.Backend(err)
}
