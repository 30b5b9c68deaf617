package appointment

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petcare-marketplace/service-scheduling/internal/common/auth"
	"github.com/petcare-marketplace/service-scheduling/internal/common/domain"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/schedule"
)

var (
	visitDate  = schedule.NewDate(2026, time.March, 2)
	bookedAt   = time.Date(2026, time.February, 20, 8, 0, 0, 0, time.UTC)
	afterVisit = time.Date(2026, time.March, 2, 11, 0, 0, 0, time.UTC)
)

var _ schedule.Occupant = (*Appointment)(nil)

func newTestAppointment(t *testing.T) *Appointment {
	t.Helper()
	a, err := NewAppointment(
		uuid.New(), uuid.New(), uuid.New(),
		visitDate, schedule.At(10, 0), 30,
		ServiceVetConsultation, 5000, domain.CurrencyUSD, "first visit",
		bookedAt,
	)
	require.NoError(t, err)
	return a
}

func providerOf(a *Appointment) Actor { return Actor{UserID: a.ProviderID(), Role: auth.RoleProvider} }
func ownerOf(a *Appointment) Actor    { return Actor{UserID: a.OwnerID(), Role: auth.RoleOwner} }

func TestNewAppointment(t *testing.T) {
	a := newTestAppointment(t)

	assert.Equal(t, StatusPending, a.Status())
	assert.Equal(t, PaymentUnpaid, a.PaymentStatus())
	assert.Equal(t, int64(1), a.Version())
	assert.Equal(t, schedule.At(10, 30), a.EndTime())
	assert.True(t, a.OccupiesSlot())
	assert.NotEqual(t, uuid.Nil, a.ID())
}

func TestNewAppointment_Validation(t *testing.T) {
	petID, ownerID, providerID := uuid.New(), uuid.New(), uuid.New()
	tests := []struct {
		name     string
		pet      uuid.UUID
		owner    uuid.UUID
		provider uuid.UUID
		start    schedule.TimeOfDay
		duration int
		service  ServiceType
		price    int64
	}{
		{"missing pet", uuid.Nil, ownerID, providerID, schedule.At(9, 0), 30, ServiceGrooming, 100},
		{"missing owner", petID, uuid.Nil, providerID, schedule.At(9, 0), 30, ServiceGrooming, 100},
		{"missing provider", petID, ownerID, uuid.Nil, schedule.At(9, 0), 30, ServiceGrooming, 100},
		{"zero duration", petID, ownerID, providerID, schedule.At(9, 0), 0, ServiceGrooming, 100},
		{"crosses midnight", petID, ownerID, providerID, schedule.At(23, 45), 30, ServiceGrooming, 100},
		{"unknown service", petID, ownerID, providerID, schedule.At(9, 0), 30, ServiceType("massage"), 100},
		{"negative price", petID, ownerID, providerID, schedule.At(9, 0), 30, ServiceGrooming, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAppointment(tt.pet, tt.owner, tt.provider, visitDate, tt.start, tt.duration,
				tt.service, tt.price, domain.CurrencyUSD, "", bookedAt)
			require.Error(t, err)
			assert.True(t, domain.HasCode(err, domain.CodeValidation))
		})
	}
}

func TestAppointment_ConfirmThenComplete(t *testing.T) {
	a := newTestAppointment(t)
	provider := providerOf(a)

	require.NoError(t, a.Confirm(provider, bookedAt.Add(time.Hour)))
	assert.Equal(t, StatusConfirmed, a.Status())
	require.NotNil(t, a.ConfirmedAt())

	require.NoError(t, a.Complete(provider, afterVisit, DefaultPolicy()))
	assert.Equal(t, StatusCompleted, a.Status())
	require.NotNil(t, a.CompletedAt())
	assert.False(t, a.OccupiesSlot())
}

func TestAppointment_CompleteBeforeStart(t *testing.T) {
	a := newTestAppointment(t)
	provider := providerOf(a)
	require.NoError(t, a.Confirm(provider, bookedAt))

	early := time.Date(2026, time.March, 2, 9, 59, 0, 0, time.UTC)
	err := a.Complete(provider, early, DefaultPolicy())
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeValidation))
	assert.Equal(t, StatusConfirmed, a.Status())

	relaxed := Policy{Location: time.UTC, RequireStartedToComplete: false}
	require.NoError(t, a.Complete(provider, early, relaxed))
}

func TestAppointment_CompleteUsesPolicyLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	a := newTestAppointment(t)
	provider := providerOf(a)
	require.NoError(t, a.Confirm(provider, bookedAt))

	// 09:30 UTC is 11:30 at UTC+2, past the 10:00 local start.
	now := time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)
	policy := Policy{Location: loc, RequireStartedToComplete: true}
	assert.NoError(t, a.Complete(provider, now, policy))
}

func TestAppointment_CancelByParticipants(t *testing.T) {
	for name, actor := range map[string]func(*Appointment) Actor{
		"owner":    ownerOf,
		"provider": providerOf,
		"admin":    func(*Appointment) Actor { return Actor{UserID: uuid.New(), Role: auth.RoleAdmin} },
	} {
		t.Run(name, func(t *testing.T) {
			a := newTestAppointment(t)
			who := actor(a)
			require.NoError(t, a.Cancel(who, "schedule change", bookedAt))
			assert.Equal(t, StatusCancelled, a.Status())
			assert.Equal(t, who.Role, a.CancelledBy())
			assert.Equal(t, "schedule change", a.CancelNote())
			assert.False(t, a.OccupiesSlot())
		})
	}
}

func TestAppointment_CancelConfirmed(t *testing.T) {
	a := newTestAppointment(t)
	require.NoError(t, a.Confirm(providerOf(a), bookedAt))
	require.NoError(t, a.Cancel(ownerOf(a), "", bookedAt))
	assert.Equal(t, StatusCancelled, a.Status())
}

func TestAppointment_RoleRules(t *testing.T) {
	a := newTestAppointment(t)
	stranger := Actor{UserID: uuid.New(), Role: auth.RoleProvider}
	otherOwner := Actor{UserID: uuid.New(), Role: auth.RoleOwner}

	assert.True(t, domain.HasCode(a.Confirm(ownerOf(a), bookedAt), domain.CodeForbidden))
	assert.True(t, domain.HasCode(a.Confirm(stranger, bookedAt), domain.CodeForbidden))
	assert.True(t, domain.HasCode(a.Cancel(otherOwner, "", bookedAt), domain.CodeForbidden))

	// the owner's user ID with the provider role is not the appointment's provider
	impostor := Actor{UserID: a.OwnerID(), Role: auth.RoleProvider}
	assert.True(t, domain.HasCode(a.Confirm(impostor, bookedAt), domain.CodeForbidden))

	assert.Equal(t, StatusPending, a.Status())
}

func TestAppointment_CompleteRequiresProvider(t *testing.T) {
	a := newTestAppointment(t)
	require.NoError(t, a.Confirm(providerOf(a), bookedAt))
	assert.True(t, domain.HasCode(a.Complete(ownerOf(a), afterVisit, DefaultPolicy()), domain.CodeForbidden))
	assert.Equal(t, StatusConfirmed, a.Status())
}

func TestAppointment_TerminalStatusWinsOverRoleRules(t *testing.T) {
	admin := Actor{UserID: uuid.New(), Role: auth.RoleAdmin}

	completed := newTestAppointment(t)
	require.NoError(t, completed.Confirm(providerOf(completed), bookedAt))
	require.NoError(t, completed.Complete(providerOf(completed), afterVisit, DefaultPolicy()))

	cancelled := newTestAppointment(t)
	require.NoError(t, cancelled.Cancel(ownerOf(cancelled), "", bookedAt))

	for _, a := range []*Appointment{completed, cancelled} {
		for _, actor := range []Actor{ownerOf(a), admin} {
			for _, target := range []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled} {
				err := a.TransitionTo(actor, target, "", afterVisit, DefaultPolicy())
				var ite *domain.InvalidTransitionError
				require.ErrorAs(t, err, &ite, "%s -> %s as %s", a.Status(), target, actor.Role)
				assert.Equal(t, string(a.Status()), ite.From)
				assert.Equal(t, string(target), ite.To)
			}
		}
		assert.True(t, domain.HasCode(a.Confirm(Actor{UserID: uuid.New(), Role: auth.RoleOwner}, afterVisit), domain.CodeForbidden))
	}

	var ite *domain.InvalidTransitionError
	assert.ErrorAs(t, completed.Complete(ownerOf(completed), afterVisit, DefaultPolicy()), &ite)
}

func TestAppointment_InvalidTransitions(t *testing.T) {
	requireInvalid := func(t *testing.T, err error, from, to Status) {
		t.Helper()
		var ite *domain.InvalidTransitionError
		require.True(t, errors.As(err, &ite), "expected InvalidTransitionError, got %v", err)
		assert.Equal(t, string(from), ite.From)
		assert.Equal(t, string(to), ite.To)
	}

	t.Run("pending to completed", func(t *testing.T) {
		a := newTestAppointment(t)
		requireInvalid(t, a.Complete(providerOf(a), afterVisit, DefaultPolicy()), StatusPending, StatusCompleted)
	})

	t.Run("completed is terminal", func(t *testing.T) {
		a := newTestAppointment(t)
		p := providerOf(a)
		require.NoError(t, a.Confirm(p, bookedAt))
		require.NoError(t, a.Complete(p, afterVisit, DefaultPolicy()))

		requireInvalid(t, a.Confirm(p, afterVisit), StatusCompleted, StatusConfirmed)
		requireInvalid(t, a.Cancel(p, "", afterVisit), StatusCompleted, StatusCancelled)
		requireInvalid(t, a.TransitionTo(p, StatusPending, "", afterVisit, DefaultPolicy()), StatusCompleted, StatusPending)
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		a := newTestAppointment(t)
		p := providerOf(a)
		require.NoError(t, a.Cancel(p, "", bookedAt))

		for _, target := range []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled} {
			requireInvalid(t, a.TransitionTo(p, target, "", afterVisit, DefaultPolicy()), StatusCancelled, target)
		}
	})

	t.Run("confirm twice", func(t *testing.T) {
		a := newTestAppointment(t)
		p := providerOf(a)
		require.NoError(t, a.Confirm(p, bookedAt))
		requireInvalid(t, a.Confirm(p, bookedAt), StatusConfirmed, StatusConfirmed)
	})
}

func TestAppointment_TransitionToDispatches(t *testing.T) {
	a := newTestAppointment(t)
	p := providerOf(a)

	require.NoError(t, a.TransitionTo(p, StatusConfirmed, "", bookedAt, DefaultPolicy()))
	assert.Equal(t, StatusConfirmed, a.Status())
	require.NoError(t, a.TransitionTo(p, StatusCancelled, "sick", bookedAt, DefaultPolicy()))
	assert.Equal(t, StatusCancelled, a.Status())
	assert.Equal(t, "sick", a.CancelNote())
}

func TestAppointment_PaymentStatus(t *testing.T) {
	a := newTestAppointment(t)

	_, err := a.MarkRefunded(bookedAt)
	assert.Error(t, err)

	changed, err := a.MarkPaid(bookedAt)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = a.MarkPaid(bookedAt)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = a.MarkRefunded(bookedAt)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, PaymentRefunded, a.PaymentStatus())

	_, err = a.MarkPaid(bookedAt)
	assert.Error(t, err)
}

func TestAppointment_CanBeViewedBy(t *testing.T) {
	a := newTestAppointment(t)
	assert.True(t, a.CanBeViewedBy(ownerOf(a)))
	assert.True(t, a.CanBeViewedBy(providerOf(a)))
	assert.True(t, a.CanBeViewedBy(Actor{UserID: uuid.New(), Role: auth.RoleAdmin}))
	assert.False(t, a.CanBeViewedBy(Actor{UserID: uuid.New(), Role: auth.RoleOwner}))
}

func TestAppointment_IncrementVersion(t *testing.T) {
	a := newTestAppointment(t)
	a.IncrementVersion()
	assert.Equal(t, int64(2), a.Version())
}
