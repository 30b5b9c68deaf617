package client

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/petcare-marketplace/service-scheduling/internal/application"
	"github.com/petcare-marketplace/service-scheduling/internal/common/domain"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/appointment"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/schedule"
	"github.com/petcare-marketplace/service-scheduling/internal/requeststate"
)

// API is the part of Client the Store drives.
type API interface {
	QuerySlots(ctx context.Context, q SlotQuery) (*application.SlotGridDTO, error)
	ListAppointments(ctx context.Context, page, limit int) ([]application.AppointmentDTO, error)
	BookAppointment(ctx context.Context, req application.BookAppointmentRequest) (*application.AppointmentDTO, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, req application.UpdateStatusRequest) (*application.AppointmentDTO, error)
}

// LocalSync tells whether the locally shown status has been confirmed by the server.
type LocalSync string

const (
	SyncSynced  LocalSync = "synced"
	SyncPending LocalSync = "pending"
)

// AppointmentView is an appointment as a UI shows it: the durable record plus any unconfirmed local change.
type AppointmentView struct {
	Appointment application.AppointmentDTO
	// DisplayStatus is the pending target while a status update is in flight, the durable status otherwise.
	DisplayStatus string
	Sync          LocalSync
}

// Store keeps one request state per operation kind. Responses to requests that have since been
// superseded are dropped.
type Store struct {
	api API

	Slots        *requeststate.State[application.SlotGridDTO]
	Appointments *requeststate.State[[]application.AppointmentDTO]
	Create       *requeststate.State[application.AppointmentDTO]
	StatusUpdate *requeststate.State[application.AppointmentDTO]

	mu        sync.Mutex
	lastSlots *SlotQuery
	pending   map[uuid.UUID]string
}

// NewStore creates a Store with every state idle.
func NewStore(api API) *Store {
	return &Store{
		api:          api,
		Slots:        requeststate.New[application.SlotGridDTO](),
		Appointments: requeststate.New[[]application.AppointmentDTO](),
		Create:       requeststate.New[application.AppointmentDTO](),
		StatusUpdate: requeststate.New[application.AppointmentDTO](),
		pending:      map[uuid.UUID]string{},
	}
}

// LoadSlots fetches the grid for q and remembers q for later refreshes.
func (s *Store) LoadSlots(ctx context.Context, q SlotQuery) error {
	s.mu.Lock()
	s.lastSlots = &q
	s.mu.Unlock()

	tok := s.Slots.Start()
	grid, err := s.api.QuerySlots(ctx, q)
	if err != nil {
		s.Slots.FailIfCurrent(tok, err.Error())
		return err
	}
	s.Slots.SucceedIfCurrent(tok, *grid)
	return nil
}

// RefreshSlots reloads the last requested grid. It is a no-op before the first LoadSlots.
func (s *Store) RefreshSlots(ctx context.Context) error {
	s.mu.Lock()
	last := s.lastSlots
	s.mu.Unlock()
	if last == nil {
		return nil
	}
	return s.LoadSlots(ctx, *last)
}

// LoadAppointments fetches one page of the caller's appointments.
func (s *Store) LoadAppointments(ctx context.Context, page, limit int) error {
	tok := s.Appointments.Start()
	items, err := s.api.ListAppointments(ctx, page, limit)
	if err != nil {
		s.Appointments.FailIfCurrent(tok, err.Error())
		return err
	}
	s.Appointments.SucceedIfCurrent(tok, items)
	return nil
}

// Book checks the request against the loaded appointments and slot grid, then submits it. A conflict,
// local or from the server, refreshes the slot grid so the user can pick again.
func (s *Store) Book(ctx context.Context, req application.BookAppointmentRequest) (*application.AppointmentDTO, error) {
	tok := s.Create.Start()

	if err := s.precheck(req); err != nil {
		s.Create.FailIfCurrent(tok, err.Error())
		if domain.IsConflict(err) {
			_ = s.RefreshSlots(ctx)
		}
		return nil, err
	}

	created, err := s.api.BookAppointment(ctx, req)
	if err != nil {
		s.Create.FailIfCurrent(tok, err.Error())
		if domain.IsConflict(err) {
			_ = s.RefreshSlots(ctx)
		}
		return nil, err
	}

	s.Create.SucceedIfCurrent(tok, *created)
	s.patchAppointments(func(items []application.AppointmentDTO) []application.AppointmentDTO {
		return append(items, *created)
	})
	_ = s.RefreshSlots(ctx)
	return created, nil
}

// precheck runs the conflict rules against the loaded appointments, then rejects a start the loaded
// slot grid already shows as occupied by someone else's booking. The server stays authoritative.
func (s *Store) precheck(req application.BookAppointmentRequest) error {
	duration := req.DurationMinutes
	if duration <= 0 {
		duration = req.ServiceType.DefaultDurationMinutes()
	}
	candidate := schedule.Candidate{
		ProviderID:      req.ProviderID,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: duration,
	}

	var existing []occupant
	if snap := s.Appointments.Snapshot(); snap.Data != nil {
		existing = make([]occupant, len(*snap.Data))
		for i, a := range *snap.Data {
			existing[i] = occupant{a}
		}
	}
	if err := schedule.ValidateBooking(candidate, existing); err != nil {
		return err
	}

	if grid := s.Slots.Snapshot(); grid.Data != nil && grid.Data.ProviderID == req.ProviderID {
		for _, slot := range grid.Data.Slots {
			if slot.IsOccupied && slot.Date == req.Date && slot.Time == req.Time {
				return domain.NewConflictError("slot is already taken")
			}
		}
	}
	return nil
}

// UpdateStatus shows target immediately as a pending local change and submits it. On failure the
// local change is dropped and the durable status shows again.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, target, reason string) (*application.AppointmentDTO, error) {
	s.mu.Lock()
	s.pending[id] = target
	s.mu.Unlock()

	tok := s.StatusUpdate.Start()
	updated, err := s.api.UpdateStatus(ctx, id, application.UpdateStatusRequest{Status: target, Reason: reason})

	s.mu.Lock()
	if s.pending[id] == target {
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if err != nil {
		s.StatusUpdate.FailIfCurrent(tok, err.Error())
		return nil, err
	}

	s.StatusUpdate.SucceedIfCurrent(tok, *updated)
	s.patchAppointments(func(items []application.AppointmentDTO) []application.AppointmentDTO {
		for i := range items {
			if items[i].ID == updated.ID {
				items[i] = *updated
			}
		}
		return items
	})
	if updated.Status == string(appointment.StatusCancelled) {
		_ = s.RefreshSlots(ctx)
	}
	return updated, nil
}

// Views merges the loaded appointments with pending local changes.
func (s *Store) Views() []AppointmentView {
	snap := s.Appointments.Snapshot()
	if snap.Data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]AppointmentView, len(*snap.Data))
	for i, a := range *snap.Data {
		views[i] = AppointmentView{Appointment: a, DisplayStatus: a.Status, Sync: SyncSynced}
		if target, ok := s.pending[a.ID]; ok {
			views[i].DisplayStatus = target
			views[i].Sync = SyncPending
		}
	}
	return views
}

// patchAppointments edits the loaded list in place of a refetch. Nothing happens unless a list has
// been loaded successfully and no reload is in flight.
func (s *Store) patchAppointments(edit func([]application.AppointmentDTO) []application.AppointmentDTO) {
	s.Appointments.Update(func(items []application.AppointmentDTO) []application.AppointmentDTO {
		return edit(append([]application.AppointmentDTO(nil), items...))
	})
}

// occupant adapts a transferred appointment to the conflict rules.
type occupant struct{ a application.AppointmentDTO }

func (o occupant) ID() uuid.UUID            { return o.a.ID }
func (o occupant) ProviderID() uuid.UUID    { return o.a.ProviderID }
func (o occupant) Date() schedule.Date      { return o.a.Date }
func (o occupant) Time() schedule.TimeOfDay { return o.a.Time }
func (o occupant) DurationMinutes() int     { return o.a.DurationMinutes }
func (o occupant) OccupiesSlot() bool       { return appointment.Status(o.a.Status).IsActive() }
