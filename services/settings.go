package services

import (
	"context"
	"errors"
	"time"

	"motoreg/models"
	"motoreg/store"
	"motoreg/utils"
)

// EnsureSettings inserts the settings singleton from defaults when the store
// has none. Existing settings are left untouched.
func EnsureSettings(ctx context.Context, st store.RecordStore, defaults models.RegistrationSettings) (*models.RegistrationSettings, error) {
	var existing models.RegistrationSettings
	err := st.Get(ctx, store.CollectionSettings, store.Filter{"id": models.SettingsID}, &existing)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	defaults.ID = models.SettingsID
	defaults.UpdatedAt = time.Now().UTC()
	if err := st.Insert(ctx, store.CollectionSettings, &defaults); err != nil {
		return nil, err
	}
	utils.LogEvent("settings_seeded", map[string]interface{}{
		"registration_open": defaults.RegistrationOpen,
	})
	return &defaults, nil
}
