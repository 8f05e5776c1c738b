// Package backend is the single construction site where the record store
// mode is resolved. Consumers ask for an owner's store and get back the
// right backend; nothing downstream ever branches on mode again.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/api/option"

	"flowledger/internal/store"
	"flowledger/internal/store/local"
	"flowledger/internal/store/remote"
)

// Factory resolves and lazily constructs backends. The local store is
// shared; the remote client is dialled once and reused.
type Factory struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	local  *local.Store
	remote *remote.Store
}

// NewFactory creates a backend factory.
func NewFactory(cfg Config, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{cfg: cfg, logger: logger}
}

// RemoteAvailable reports whether the remote backend is configured and
// not overridden off. It feeds store.SelectMode together with the owner.
func (f *Factory) RemoteAvailable() bool {
	if f.cfg.DataBackend == BackendLocal {
		return false
	}
	return f.cfg.FirestoreProjectID != ""
}

// ForOwner resolves the mode for an owner and returns the matching store.
// Called once per owner change; the returned store stays fixed for the
// whole session.
func (f *Factory) ForOwner(ctx context.Context, ownerID string) (store.Store, store.Mode, error) {
	mode := store.SelectMode(f.RemoteAvailable(), ownerID)
	if f.cfg.DataBackend == BackendRemote {
		mode = store.ModeRemote
	}

	switch mode {
	case store.ModeRemote:
		s, err := f.remoteStore(ctx)
		if err != nil {
			return nil, mode, err
		}
		return s, mode, nil
	default:
		s, err := f.localStore()
		if err != nil {
			return nil, mode, err
		}
		return s, mode, nil
	}
}

// LocalStore exposes the shared local store for components that need it
// directly, such as the audit worker.
func (f *Factory) LocalStore() (*local.Store, error) {
	return f.localStore()
}

func (f *Factory) localStore() (*local.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.local != nil {
		return f.local, nil
	}

	s, err := local.New(f.cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize local store: %w", err)
	}
	f.local = s
	f.logger.Info("Initialized local backend", "db_path", f.cfg.SQLiteDBPath)
	return s, nil
}

func (f *Factory) remoteStore(ctx context.Context) (*remote.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remote != nil {
		return f.remote, nil
	}

	var opts []option.ClientOption
	if f.cfg.GoogleCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(f.cfg.GoogleCredentialsFile))
	} else if f.cfg.GoogleCredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(f.cfg.GoogleCredentialsJSON)))
	}

	s, err := remote.New(ctx, f.cfg.FirestoreProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize remote store: %w", err)
	}
	f.remote = s
	f.logger.Info("Initialized remote backend", "project_id", f.cfg.FirestoreProjectID)
	return s, nil
}

// Close releases whichever backends were constructed.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	if f.local != nil {
		if err := f.local.Close(); err != nil {
			errs = append(errs, fmt.Errorf("local: %w", err))
		}
		f.local = nil
	}
	if f.remote != nil {
		if err := f.remote.Close(); err != nil {
			errs = append(errs, fmt.Errorf("remote: %w", err))
		}
		f.remote = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close backends: %v", errs)
	}
	return nil
}
