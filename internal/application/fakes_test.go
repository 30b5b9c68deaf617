package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petcare-marketplace/service-scheduling/internal/common/auth"
	"github.com/petcare-marketplace/service-scheduling/internal/common/domain"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/appointment"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/pet"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/schedule"
)

// fakeAppointmentRepo keeps appointments in memory; the func fields override single methods.
type fakeAppointmentRepo struct {
	mu      sync.Mutex
	items   map[uuid.UUID]*appointment.Appointment
	created int
	updated int

	createFn    func(ctx context.Context, appt *appointment.Appointment) error
	updateFn    func(ctx context.Context, appt *appointment.Appointment) error
	findRangeFn func(ctx context.Context, providerID uuid.UUID, from, to schedule.Date) ([]*appointment.Appointment, error)
}

func newFakeAppointmentRepo(existing ...*appointment.Appointment) *fakeAppointmentRepo {
	r := &fakeAppointmentRepo{items: map[uuid.UUID]*appointment.Appointment{}}
	for _, a := range existing {
		r.items[a.ID()] = a
	}
	return r
}

func (r *fakeAppointmentRepo) FindByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, domain.NewNotFoundError("Appointment", id.String())
	}
	return a, nil
}

func (r *fakeAppointmentRepo) FindByProviderAndDateRange(ctx context.Context, providerID uuid.UUID, from, to schedule.Date) ([]*appointment.Appointment, error) {
	if r.findRangeFn != nil {
		return r.findRangeFn(ctx, providerID, from, to)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range r.items {
		if a.ProviderID() == providerID && !a.Date().Before(from) && !a.Date().After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) filter(keep func(*appointment.Appointment) bool) ([]*appointment.Appointment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range r.items {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeAppointmentRepo) FindByOwnerID(_ context.Context, ownerID uuid.UUID, _, _ int) ([]*appointment.Appointment, int64, error) {
	return r.filter(func(a *appointment.Appointment) bool { return a.OwnerID() == ownerID })
}

func (r *fakeAppointmentRepo) FindByProviderID(_ context.Context, providerID uuid.UUID, _, _ int) ([]*appointment.Appointment, int64, error) {
	return r.filter(func(a *appointment.Appointment) bool { return a.ProviderID() == providerID })
}

func (r *fakeAppointmentRepo) ListAll(_ context.Context, status appointment.Status, _, _ int) ([]*appointment.Appointment, int64, error) {
	return r.filter(func(a *appointment.Appointment) bool { return status == "" || a.Status() == status })
}

func (r *fakeAppointmentRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int64{}
	for _, a := range r.items {
		counts[string(a.Status())]++
	}
	return counts, nil
}

func (r *fakeAppointmentRepo) Create(ctx context.Context, appt *appointment.Appointment) error {
	if r.createFn != nil {
		if err := r.createFn(ctx, appt); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
	r.items[appt.ID()] = appt
	return nil
}

func (r *fakeAppointmentRepo) Update(ctx context.Context, appt *appointment.Appointment) error {
	if r.updateFn != nil {
		if err := r.updateFn(ctx, appt); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated++
	r.items[appt.ID()] = appt
	return nil
}

type fakeAvailabilityRepo struct {
	mu     sync.Mutex
	weeks  map[uuid.UUID]*schedule.WeeklyAvailability
	findFn func(ctx context.Context, providerID uuid.UUID) (*schedule.WeeklyAvailability, error)
}

func newFakeAvailabilityRepo(weeks ...*schedule.WeeklyAvailability) *fakeAvailabilityRepo {
	r := &fakeAvailabilityRepo{weeks: map[uuid.UUID]*schedule.WeeklyAvailability{}}
	for _, w := range weeks {
		r.weeks[w.ProviderID] = w
	}
	return r
}

func (r *fakeAvailabilityRepo) FindByProviderID(ctx context.Context, providerID uuid.UUID) (*schedule.WeeklyAvailability, error) {
	if r.findFn != nil {
		return r.findFn(ctx, providerID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.weeks[providerID]; ok {
		return w, nil
	}
	return &schedule.WeeklyAvailability{ProviderID: providerID, Days: map[schedule.Weekday]schedule.DayAvailability{}}, nil
}

func (r *fakeAvailabilityRepo) Save(_ context.Context, w *schedule.WeeklyAvailability) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weeks[w.ProviderID] = w
	return nil
}

type fakePetRepo struct {
	pets map[uuid.UUID]*pet.Pet
}

func newFakePetRepo(pets ...*pet.Pet) *fakePetRepo {
	r := &fakePetRepo{pets: map[uuid.UUID]*pet.Pet{}}
	for _, p := range pets {
		r.pets[p.ID()] = p
	}
	return r
}

func (r *fakePetRepo) FindByID(_ context.Context, id uuid.UUID) (*pet.Pet, error) {
	p, ok := r.pets[id]
	if !ok {
		return nil, domain.NewNotFoundError("Pet", id.String())
	}
	return p, nil
}

func (r *fakePetRepo) Upsert(_ context.Context, p *pet.Pet) error {
	r.pets[p.ID()] = p
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, note Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return n.err
}

func (n *fakeNotifier) notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

// testNow is a Sunday morning; testMonday is the next day.
var (
	testNow    = time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
	testMonday = schedule.NewDate(2026, time.March, 2)
)

type serviceFixture struct {
	svc          *AppointmentService
	repo         *fakeAppointmentRepo
	availability *fakeAvailabilityRepo
	pets         *fakePetRepo
	notifier     *fakeNotifier

	ownerID    uuid.UUID
	providerID uuid.UUID
	pet        *pet.Pet
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		ownerID:    uuid.New(),
		providerID: uuid.New(),
		notifier:   &fakeNotifier{},
	}
	f.pet = pet.Reconstruct(uuid.New(), f.ownerID, "Milo", pet.PetTypeDog, pet.PetStatusActive, testNow)
	f.repo = newFakeAppointmentRepo()
	f.availability = newFakeAvailabilityRepo()
	f.pets = newFakePetRepo(f.pet)
	f.svc = NewAppointmentService(
		f.repo, f.availability, f.pets,
		appointment.NewStandardPricingStrategy(),
		f.notifier,
		DefaultScheduleOptions(),
		zap.NewNop(),
	)
	f.svc.now = func() time.Time { return testNow }
	return f
}

// seed stores an appointment for the fixture's provider in the given status.
func (f *serviceFixture) seed(at schedule.TimeOfDay, duration int, status appointment.Status) *appointment.Appointment {
	a := appointment.Reconstruct(
		uuid.New(), f.pet.ID(), f.ownerID, f.providerID,
		testMonday, at, duration,
		appointment.ServiceGrooming, status,
		4000, domain.CurrencyUSD, appointment.PaymentUnpaid, "",
		nil, nil, nil, "", "",
		1, testNow, testNow,
	)
	f.repo.items[a.ID()] = a
	return a
}

func (f *serviceFixture) owner() appointment.Actor {
	return appointment.Actor{UserID: f.ownerID, Role: auth.RoleOwner}
}

func (f *serviceFixture) provider() appointment.Actor {
	return appointment.Actor{UserID: f.providerID, Role: auth.RoleProvider}
}
