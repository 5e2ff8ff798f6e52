package models

type TeamStatus string

const (
	StatusDraft     TeamStatus = "draft"
	StatusPending   TeamStatus = "pending"
	StatusConfirmed TeamStatus = "confirmed"
	StatusCancelled TeamStatus = "cancelled"
)

var TeamStatuses = []TeamStatus{StatusDraft, StatusPending, StatusConfirmed, StatusCancelled}

func (s TeamStatus) Valid() bool {
	return oneOf(s, TeamStatuses)
}

type PhotoStatus string

const (
	PhotoPending  PhotoStatus = "pending"
	PhotoApproved PhotoStatus = "approved"
	PhotoRejected PhotoStatus = "rejected"
)

var PhotoStatuses = []PhotoStatus{PhotoPending, PhotoApproved, PhotoRejected}

func (s PhotoStatus) Valid() bool {
	return oneOf(s, PhotoStatuses)
}

type EngineCapacity string

const (
	Engine125cc4T EngineCapacity = "125cc_4t"
	Engine50cc2T  EngineCapacity = "50cc_2t"
)

var EngineCapacities = []EngineCapacity{Engine125cc4T, Engine50cc2T}

func (e EngineCapacity) Valid() bool {
	return oneOf(e, EngineCapacities)
}

type StaffRole string

const (
	RoleMechanic    StaffRole = "mechanic"
	RoleCoordinator StaffRole = "coordinator"
	RoleSupport     StaffRole = "support"
)

var StaffRoles = []StaffRole{RoleMechanic, RoleCoordinator, RoleSupport}

func (r StaffRole) Valid() bool {
	return oneOf(r, StaffRoles)
}

// MotorcycleExperience is the self-declared riding level used for grouping pilots.
type MotorcycleExperience string

const (
	ExperienceBeginner     MotorcycleExperience = "principiante"
	ExperienceRoadRider    MotorcycleExperience = "rutero"
	ExperienceTrackStarter MotorcycleExperience = "tandero_iniciado"
	ExperienceTrackMedium  MotorcycleExperience = "tandero_medio"
	ExperienceTrackFast    MotorcycleExperience = "tandero_rapido"
	ExperienceSemiPro      MotorcycleExperience = "semi_pro"
)

var MotorcycleExperiences = []MotorcycleExperience{
	ExperienceBeginner,
	ExperienceRoadRider,
	ExperienceTrackStarter,
	ExperienceTrackMedium,
	ExperienceTrackFast,
	ExperienceSemiPro,
}

func (e MotorcycleExperience) Valid() bool {
	return oneOf(e, MotorcycleExperiences)
}

type DrivingLevel string

const (
	LevelAmateur      DrivingLevel = "amateur"
	LevelIntermediate DrivingLevel = "intermediate"
	LevelAdvanced     DrivingLevel = "advanced"
	LevelExpert       DrivingLevel = "expert"
)

var DrivingLevels = []DrivingLevel{LevelAmateur, LevelIntermediate, LevelAdvanced, LevelExpert}

func (l DrivingLevel) Valid() bool {
	return oneOf(l, DrivingLevels)
}

func oneOf[T comparable](v T, set []T) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}
