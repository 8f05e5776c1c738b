package backend

import (
	"fmt"

	"flowledger/internal/config"
)

// BackendSelection controls mode resolution: auto lets store.SelectMode
// decide per owner, local and remote force one backend for everyone.
type BackendSelection string

const (
	BackendAuto   BackendSelection = "auto"
	BackendLocal  BackendSelection = "local"
	BackendRemote BackendSelection = "remote"
)

// IsValid returns true if the selection is one of the known values.
func (b BackendSelection) IsValid() bool {
	switch b {
	case BackendAuto, BackendLocal, BackendRemote:
		return true
	default:
		return false
	}
}

// Config holds what the factory needs to construct backends.
type Config struct {
	DataBackend BackendSelection

	// Local
	SQLiteDBPath string

	// Remote
	FirestoreProjectID    string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	selection := BackendSelection(appConfig.DataBackend)
	if !selection.IsValid() {
		return Config{}, fmt.Errorf("invalid backend selection in config: %s", appConfig.DataBackend)
	}

	cfg := Config{
		DataBackend:           selection,
		SQLiteDBPath:          appConfig.SQLiteDBPath,
		FirestoreProjectID:    appConfig.FirestoreProjectID,
		GoogleCredentialsFile: appConfig.GoogleCredentialsFile,
		GoogleCredentialsJSON: appConfig.GoogleCredentialsJSON,
	}
	return cfg, cfg.Validate()
}

// Validate checks that the selected backend can actually be built.
func (c Config) Validate() error {
	if !c.DataBackend.IsValid() {
		return fmt.Errorf("invalid backend selection: %s", c.DataBackend)
	}
	if c.DataBackend != BackendRemote && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required unless backend is forced remote")
	}
	if c.DataBackend == BackendRemote && c.FirestoreProjectID == "" {
		return fmt.Errorf("Firestore project ID is required when backend is forced remote")
	}
	return nil
}
