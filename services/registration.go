package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/google/uuid"

	"motoreg/models"
	"motoreg/store"
	"motoreg/utils"
)

// Business rule failures. They surface as validation errors with their own
// messages and can be matched with errors.Is.
var (
	ErrDuplicateTeam      = errors.New("caller already has a team")
	ErrRegistrationClosed = errors.New("registration closed")
	ErrDeadlinePassed     = errors.New("registration deadline passed")
	ErrTeamsFull          = errors.New("maximum number of teams reached")
	ErrCapacity           = errors.New("capacity exceeded")
	ErrNoTeam             = errors.New("caller has no team")
)

func rule(err error, message string) *utils.AppError {
	return &utils.AppError{Kind: utils.KindValidation, Message: message, Err: err}
}

// RegistrationService implements the caller-scoped team, pilot and staff operations.
// Every operation is scoped to the team whose representative_user_id is the caller.
type RegistrationService struct {
	store store.RecordStore
	now   func() time.Time
}

func NewRegistrationService(s store.RecordStore) *RegistrationService {
	return &RegistrationService{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type CreateTeamRequest struct {
	Name                  string                `json:"name" validate:"required"`
	NumberOfPilots        *int                  `json:"number_of_pilots" validate:"required"`
	RepresentativeName    string                `json:"representative_name"`
	RepresentativeSurname string                `json:"representative_surname"`
	RepresentativeDNI     string                `json:"representative_dni"`
	RepresentativePhone   string                `json:"representative_phone"`
	RepresentativeEmail   string                `json:"representative_email"`
	Address               string                `json:"address"`
	Municipality          string                `json:"municipality"`
	PostalCode            string                `json:"postal_code"`
	Province              string                `json:"province"`
	MotorcycleBrand       string                `json:"motorcycle_brand"`
	MotorcycleModel       string                `json:"motorcycle_model"`
	EngineCapacity        models.EngineCapacity `json:"engine_capacity"`
	RegistrationDate      string                `json:"registration_date"`
	Modifications         string                `json:"modifications"`
	MotorcyclePhotoURL    string                `json:"motorcycle_photo_url"`
	Comments              string                `json:"comments"`
	GDPRConsent           bool                  `json:"gdpr_consent"`
}

// TeamUpdateRequest lists the fields a representative may change. Anything
// else in the payload, including status, is dropped on decode.
type TeamUpdateRequest struct {
	Name                  *string                `json:"name"`
	NumberOfPilots        *int                   `json:"number_of_pilots"`
	RepresentativeName    *string                `json:"representative_name"`
	RepresentativeSurname *string                `json:"representative_surname"`
	RepresentativeDNI     *string                `json:"representative_dni"`
	RepresentativePhone   *string                `json:"representative_phone"`
	RepresentativeEmail   *string                `json:"representative_email"`
	Address               *string                `json:"address"`
	Municipality          *string                `json:"municipality"`
	PostalCode            *string                `json:"postal_code"`
	Province              *string                `json:"province"`
	MotorcycleBrand       *string                `json:"motorcycle_brand"`
	MotorcycleModel       *string                `json:"motorcycle_model"`
	EngineCapacity        *models.EngineCapacity `json:"engine_capacity"`
	RegistrationDate      *string                `json:"registration_date"`
	Modifications         *string                `json:"modifications"`
	MotorcyclePhotoURL    *string                `json:"motorcycle_photo_url"`
	Comments              *string                `json:"comments"`
	GDPRConsent           *bool                  `json:"gdpr_consent"`
}

// GetSettings returns the registration settings singleton.
func (s *RegistrationService) GetSettings(ctx context.Context) (*models.RegistrationSettings, error) {
	var settings models.RegistrationSettings
	err := s.store.Get(ctx, store.CollectionSettings, store.Filter{"id": models.SettingsID}, &settings)
	if errors.Is(err, store.ErrNotFound) {
		return nil, utils.NotFound("Registration settings not found")
	}
	if err != nil {
		return nil, utils.Backend(err)
	}
	return &settings, nil
}

// RegistrationStatus is the public view of the settings.
type RegistrationStatus struct {
	*models.RegistrationSettings
	TeamCount      int64 `json:"team_count"`
	AcceptingTeams bool  `json:"accepting_teams"`
}

func (s *RegistrationService) GetRegistrationStatus(ctx context.Context) (*RegistrationStatus, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	count, err := s.store.Count(ctx, store.CollectionTeams, nil)
	if err != nil {
		return nil, utils.Backend(err)
	}
	return &RegistrationStatus{
		RegistrationSettings: settings,
		TeamCount:            count,
		AcceptingTeams: settings.RegistrationOpen &&
			!settings.DeadlinePassed(s.now()) &&
			!settings.Full(count),
	}, nil
}

// findOwnTeam returns nil, nil when the caller has no team.
func (s *RegistrationService) findOwnTeam(ctx context.Context, userID string) (*models.Team, error) {
	var team models.Team
	err := s.store.Get(ctx, store.CollectionTeams, store.Filter{"representative_user_id": userID}, &team)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.Backend(err)
	}
	return &team, nil
}

// requireOwnTeam is the precondition of every pilot and staff operation.
func (s *RegistrationService) requireOwnTeam(ctx context.Context, userID string) (*models.Team, error) {
	team, err := s.findOwnTeam(ctx, userID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, rule(ErrNoTeam, "Primero debes crear un equipo / You must create a team first")
	}
	return team, nil
}

// GetOwnTeam returns the caller's team with its pilots and staff, or nil.
func (s *RegistrationService) GetOwnTeam(ctx context.Context, userID string) (*models.TeamWithRelations, error) {
	team, err := s.findOwnTeam(ctx, userID)
	if err != nil || team == nil {
		return nil, err
	}
	withChildren, err := loadChildren(ctx, s.store, *team)
	if err != nil {
		return nil, utils.Backend(err)
	}
	return &withChildren, nil
}

// CreateTeam registers a new team for the caller. Preconditions are checked
// in a fixed order: duplicate, open, deadline, ceiling, required fields, size.
func (s *RegistrationService) CreateTeam(ctx context.Context, userID, email string, req CreateTeamRequest) (*models.Team, error) {
	existing, err := s.findOwnTeam(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, rule(ErrDuplicateTeam, "Ya tienes un equipo registrado / You already have a registered team")
	}

	var settings models.RegistrationSettings
	err = s.store.Get(ctx, store.CollectionSettings, store.Filter{"id": models.SettingsID}, &settings)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, utils.Backend(err)
	}
	now := s.now()
	if !settings.RegistrationOpen {
		return nil, rule(ErrRegistrationClosed, "Las inscripciones están cerradas / Registrations are closed")
	}
	if settings.DeadlinePassed(now) {
		return nil, rule(ErrDeadlinePassed, "El plazo de inscripción ha terminado / Registration deadline has passed")
	}

	count, err := s.store.Count(ctx, store.CollectionTeams, nil)
	if err != nil {
		return nil, utils.Backend(err)
	}
	if settings.Full(count) {
		return nil, rule(ErrTeamsFull, "Se ha alcanzado el número máximo de equipos / Maximum number of teams reached")
	}

	req.Name = strings.TrimSpace(req.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.Validation("Nombre de equipo y número de pilotos son obligatorios / Team name and number of pilots are required")
	}
	if err := validatePilotCount(*req.NumberOfPilots); err != nil {
		return nil, err
	}

	engine := req.EngineCapacity
	if engine == "" {
		engine = models.Engine125cc4T
	}
	if !engine.Valid() {
		return nil, utils.Validation("Cilindrada inválida / Invalid engine capacity")
	}

	repEmail := strings.TrimSpace(req.RepresentativeEmail)
	if repEmail == "" {
		repEmail = email
	}
	if err := validateEmail(repEmail); err != nil {
		return nil, err
	}

	team := &models.Team{
		ID:                    uuid.NewString(),
		RepresentativeUserID:  userID,
		Name:                  req.Name,
		NumberOfPilots:        *req.NumberOfPilots,
		RepresentativeName:    req.RepresentativeName,
		RepresentativeSurname: req.RepresentativeSurname,
		RepresentativeDNI:     req.RepresentativeDNI,
		RepresentativePhone:   req.RepresentativePhone,
		RepresentativeEmail:   repEmail,
		Address:               req.Address,
		Municipality:          req.Municipality,
		PostalCode:            req.PostalCode,
		Province:              req.Province,
		MotorcycleBrand:       req.MotorcycleBrand,
		MotorcycleModel:       req.MotorcycleModel,
		EngineCapacity:        engine,
		RegistrationDate:      req.RegistrationDate,
		Modifications:         req.Modifications,
		MotorcyclePhotoURL:    req.MotorcyclePhotoURL,
		Comments:              req.Comments,
		GDPRConsent:           req.GDPRConsent,
		Status:                models.StatusDraft,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if req.GDPRConsent {
		team.GDPRConsentDate = &now
	}
	if team.MotorcyclePhotoURL != "" {
		team.MotorcyclePhotoStatus = models.PhotoPending
	}

	err = s.store.Insert(ctx, store.CollectionTeams, team)
	if errors.Is(err, store.ErrConflict) {
		// lost a race with a concurrent create by the same caller
		return nil, rule(ErrDuplicateTeam, "Ya tienes un equipo registrado / You already have a registered team")
	}
	if err != nil {
		return nil, utils.Backend(err)
	}

	utils.LogEvent("team_created", map[string]interface{}{
		"team_id": team.ID,
		"user_id": userID,
	})
	return team, nil
}

// UpdateOwnTeam patches the caller's team. Identity fields, status and the
// photo review result are not writable here.
func (s *RegistrationService) UpdateOwnTeam(ctx context.Context, userID string, req TeamUpdateRequest) (*models.Team, error) {
	team, err := s.findOwnTeam(ctx, userID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, utils.NotFound("Equipo no encontrado / Team not found")
	}

	patch := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, utils.Validation("El nombre del equipo no puede estar vacío / Team name cannot be empty")
		}
		patch["name"] = name
	}
	if req.NumberOfPilots != nil {
		if err := validatePilotCount(*req.NumberOfPilots); err != nil {
			return nil, err
		}
		registered, err := s.store.Count(ctx, store.CollectionPilots, store.Filter{store.ParentField: team.ID})
		if err != nil {
			return nil, utils.Backend(err)
		}
		if int64(*req.NumberOfPilots) < registered {
			return nil, utils.Validation("Elimina pilotos antes de reducir el equipo / Remove pilots before reducing the team size")
		}
		patch["number_of_pilots"] = *req.NumberOfPilots
	}
	if req.EngineCapacity != nil {
		if !req.EngineCapacity.Valid() {
			return nil, utils.Validation("Cilindrada inválida / Invalid engine capacity")
		}
		patch["engine_capacity"] = *req.EngineCapacity
	}
	if req.RepresentativeEmail != nil {
		if err := validateEmail(*req.RepresentativeEmail); err != nil {
			return nil, err
		}
		patch["representative_email"] = *req.RepresentativeEmail
	}
	if req.MotorcyclePhotoURL != nil && *req.MotorcyclePhotoURL != team.MotorcyclePhotoURL {
		patch["motorcycle_photo_url"] = *req.MotorcyclePhotoURL
		if *req.MotorcyclePhotoURL != "" {
			patch["motorcycle_photo_status"] = models.PhotoPending
		} else {
			patch["motorcycle_photo_status"] = ""
		}
	}
	if req.GDPRConsent != nil && *req.GDPRConsent != team.GDPRConsent {
		patch["gdpr_consent"] = *req.GDPRConsent
		if *req.GDPRConsent {
			patch["gdpr_consent_date"] = s.now()
		} else {
			patch["gdpr_consent_date"] = nil
		}
	}

	setString(patch, "representative_name", req.RepresentativeName)
	setString(patch, "representative_surname", req.RepresentativeSurname)
	setString(patch, "representative_dni", req.RepresentativeDNI)
	setString(patch, "representative_phone", req.RepresentativePhone)
	setString(patch, "address", req.Address)
	setString(patch, "municipality", req.Municipality)
	setString(patch, "postal_code", req.PostalCode)
	setString(patch, "province", req.Province)
	setString(patch, "motorcycle_brand", req.MotorcycleBrand)
	setString(patch, "motorcycle_model", req.MotorcycleModel)
	setString(patch, "registration_date", req.RegistrationDate)
	setString(patch, "modifications", req.Modifications)
	setString(patch, "comments", req.Comments)

	if len(patch) == 0 {
		return team, nil
	}
	patch["updated_at"] = s.now()

	return updateTeam(ctx, s.store, team.ID, patch)
}

func updateTeam(ctx context.Context, st store.RecordStore, teamID string, patch map[string]interface{}) (*models.Team, error) {
	err := st.Update(ctx, store.CollectionTeams, teamID, patch)
	if errors.Is(err, store.ErrNotFound) {
		return nil, utils.NotFound("Equipo no encontrado / Team not found")
	}
	if err != nil {
		return nil, utils.Backend(err)
	}

	var updated models.Team
	if err := st.Get(ctx, store.CollectionTeams, store.Filter{"id": teamID}, &updated); err != nil {
		return nil, utils.Backend(err)
	}
	return &updated, nil
}

func validatePilotCount(n int) error {
	if n < models.PilotsMin || n > models.PilotsMax {
		return utils.Validation("El número de pilotos debe ser entre 4 y 8 / Number of pilots must be between 4 and 8")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	if err := checkmail.ValidateFormat(email); err != nil {
		return utils.Validation("Email inválido / Invalid email")
	}
	return nil
}

func setString(patch map[string]interface{}, key string, v *string) {
	if v != nil {
		patch[key] = *v
	}
}
