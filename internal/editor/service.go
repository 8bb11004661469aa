package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/turbine-dashboard/internal/backend"
	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/notify"
	"github.com/couchcryptid/turbine-dashboard/internal/overrides"
)

// Backend is the subset of the backend client the editor writes through.
type Backend interface {
	CreateTurbine(ctx context.Context, in backend.TurbineInput) (domain.Turbine, error)
	UpdateTurbine(ctx context.Context, id string, in backend.TurbineInput) error
	DeleteTurbine(ctx context.Context, id string) error
}

// ErrMissingID is returned when a create succeeded but the backend did not
// report the new turbine's id.
var ErrMissingID = errors.New("backend did not return the created turbine id")

// Result describes a completed save.
type Result struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

// Service applies turbine edits.
type Service struct {
	backend Backend
	store   overrides.Store
	bus     notify.Publisher
	logger  *slog.Logger
}

// NewService creates an editor service.
func NewService(b Backend, store overrides.Store, bus notify.Publisher, logger *slog.Logger) *Service {
	return &Service{backend: b, store: store, bus: bus, logger: logger}
}

// Save validates f, creates or updates the turbine, publishes
// turbine:created or turbine:updated and upserts the edited fields as an
// override.
func (s *Service) Save(ctx context.Context, f Form) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, err
	}

	res := Result{ID: f.ID, Created: f.Creating()}
	kind := domain.TurbineUpdated
	if res.Created {
		kind = domain.TurbineCreated
		t, err := s.backend.CreateTurbine(ctx, f.Input())
		if err != nil {
			return Result{}, fmt.Errorf("create turbine: %w", err)
		}
		res.ID = t.ID
		if res.ID == "" {
			return Result{}, ErrMissingID
		}
	} else if err := s.backend.UpdateTurbine(ctx, f.ID, f.Input()); err != nil {
		return Result{}, fmt.Errorf("update turbine %s: %w", f.ID, err)
	}

	payload := f.Payload(res.ID)
	if !s.bus.Publish(domain.NewNotification(kind, payload)) {
		s.logger.Warn("turbine notification not published", "kind", kind, "id", res.ID)
	}
	if err := s.store.Upsert(ctx, res.ID, domain.ChangesFromPayload(payload)); err != nil {
		return res, fmt.Errorf("record override %s: %w", res.ID, err)
	}

	s.logger.Info("turbine saved", "id", res.ID, "created", res.Created)
	return res, nil
}

// Delete removes the turbine, publishes turbine:deleted and clears its
// override.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ValidationErrors{{Field: "id", Message: "id is required"}}
	}
	if err := s.backend.DeleteTurbine(ctx, id); err != nil {
		return fmt.Errorf("delete turbine %s: %w", id, err)
	}

	if !s.bus.Publish(domain.NewNotification(domain.TurbineDeleted, domain.TurbinePayload{ID: id})) {
		s.logger.Warn("turbine notification not published", "kind", domain.TurbineDeleted, "id", id)
	}
	if err := s.store.Clear(ctx, id); err != nil {
		return fmt.Errorf("clear override %s: %w", id, err)
	}

	s.logger.Info("turbine deleted", "id", id)
	return nil
}
