package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petcare-marketplace/service-scheduling/internal/application"
	"github.com/petcare-marketplace/service-scheduling/internal/common/domain"
	"github.com/petcare-marketplace/service-scheduling/internal/common/response"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/schedule"
)

func writeEnvelope(w http.ResponseWriter, status int, env response.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func TestClient_QuerySlots(t *testing.T) {
	providerID := uuid.New()
	var gotPath, gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotAuth = r.URL.Path, r.URL.RawQuery, r.Header.Get("Authorization")
		writeEnvelope(w, http.StatusOK, response.Envelope{Success: true, Data: application.SlotGridDTO{
			ProviderID:         providerID,
			From:               schedule.NewDate(2026, 3, 2),
			To:                 schedule.NewDate(2026, 3, 8),
			GranularityMinutes: 30,
			Slots: []schedule.Slot{
				{Date: schedule.NewDate(2026, 3, 2), Time: schedule.At(9, 0), ProviderID: providerID, IsWithinAvailability: true},
			},
		}})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "tok")
	grid, err := c.QuerySlots(context.Background(), SlotQuery{
		ProviderID:         providerID,
		From:               schedule.NewDate(2026, 3, 2),
		To:                 schedule.NewDate(2026, 3, 8),
		GranularityMinutes: 30,
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/providers/"+providerID.String()+"/slots", gotPath)
	assert.Equal(t, "from=2026-03-02&granularity=30&to=2026-03-08", gotQuery)
	assert.Equal(t, "Bearer tok", gotAuth)
	require.Len(t, grid.Slots, 1)
	assert.True(t, grid.Slots[0].Bookable())
}

func TestClient_ErrorMapping(t *testing.T) {
	conflictID := uuid.New()
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "conflict keeps the colliding id",
			status: http.StatusConflict,
			body:   `{"success":false,"error":{"code":"CONFLICT","message":"taken","conflicting_appointment_id":"` + conflictID.String() + `"}}`,
			check: func(t *testing.T, err error) {
				var c *domain.ConflictError
				require.ErrorAs(t, err, &c)
				require.NotNil(t, c.ConflictingID)
				assert.Equal(t, conflictID, *c.ConflictingID)
			},
		},
		{
			name:   "invalid transition",
			status: http.StatusConflict,
			body:   `{"success":false,"error":{"code":"INVALID_TRANSITION","message":"no","from":"cancelled","to":"confirmed"}}`,
			check: func(t *testing.T, err error) {
				var tr *domain.InvalidTransitionError
				require.ErrorAs(t, err, &tr)
				assert.Equal(t, "cancelled", tr.From)
				assert.Equal(t, "confirmed", tr.To)
			},
		},
		{
			name:   "validation",
			status: http.StatusBadRequest,
			body:   `{"success":false,"error":{"code":"VALIDATION_ERROR","message":"bad date"}}`,
			check: func(t *testing.T, err error) {
				assert.True(t, domain.HasCode(err, domain.CodeValidation))
			},
		},
		{
			name:   "storage outage",
			status: http.StatusServiceUnavailable,
			body:   `{"success":false,"error":{"code":"PERSISTENCE_ERROR","message":"upstream storage unavailable"}}`,
			check: func(t *testing.T, err error) {
				var p *domain.PersistenceError
				assert.ErrorAs(t, err, &p)
			},
		},
		{
			name:   "gateway html",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			check: func(t *testing.T, err error) {
				var p *domain.PersistenceError
				assert.ErrorAs(t, err, &p)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, "tok").UpdateStatus(context.Background(), uuid.New(), application.UpdateStatusRequest{Status: "confirmed"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_BookSendsBody(t *testing.T) {
	var got application.BookAppointmentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeEnvelope(w, http.StatusCreated, response.Envelope{Success: true, Data: application.AppointmentDTO{
			ID: uuid.New(), Date: got.Date, Time: got.Time, Status: "pending",
		}})
	}))
	defer srv.Close()

	req := application.BookAppointmentRequest{
		PetID:       uuid.New(),
		ProviderID:  uuid.New(),
		Date:        schedule.NewDate(2026, 3, 2),
		Time:        schedule.At(10, 30),
		ServiceType: "grooming",
	}
	appt, err := New(srv.URL, "tok").BookAppointment(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, req.Date, got.Date)
	assert.Equal(t, req.Time, got.Time)
	assert.Equal(t, "pending", appt.Status)
	assert.Equal(t, schedule.At(10, 30), appt.Time)
}

func TestClient_NetworkFailureIsPersistenceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, "").ListAppointments(context.Background(), 1, 20)
	var p *domain.PersistenceError
	assert.ErrorAs(t, err, &p)
}
