// Package client is a typed HTTP client for the scheduling API plus a per-operation request state store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/petcare-marketplace/service-scheduling/internal/application"
	"github.com/petcare-marketplace/service-scheduling/internal/common/domain"
	"github.com/petcare-marketplace/service-scheduling/internal/common/response"
	"github.com/petcare-marketplace/service-scheduling/internal/domain/schedule"
)

// Client calls the scheduling HTTP API on behalf of one authenticated user.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a Client. token is sent as a bearer token on every call.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithHTTPClient replaces the underlying transport client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// SlotQuery selects a provider's slot grid.
type SlotQuery struct {
	ProviderID         uuid.UUID
	From               schedule.Date
	To                 schedule.Date
	GranularityMinutes int
}

// QuerySlots fetches the slot grid.
func (c *Client) QuerySlots(ctx context.Context, q SlotQuery) (*application.SlotGridDTO, error) {
	params := url.Values{}
	params.Set("from", q.From.String())
	if !q.To.IsZero() {
		params.Set("to", q.To.String())
	}
	if q.GranularityMinutes > 0 {
		params.Set("granularity", strconv.Itoa(q.GranularityMinutes))
	}

	var grid application.SlotGridDTO
	path := "/api/v1/providers/" + q.ProviderID.String() + "/slots?" + params.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &grid); err != nil {
		return nil, err
	}
	return &grid, nil
}

// GetAvailability fetches a provider's effective week.
func (c *Client) GetAvailability(ctx context.Context, providerID uuid.UUID) (*application.AvailabilityDTO, error) {
	var week application.AvailabilityDTO
	if err := c.do(ctx, http.MethodGet, "/api/v1/providers/"+providerID.String()+"/availability", nil, &week); err != nil {
		return nil, err
	}
	return &week, nil
}

// ListAppointments fetches one page of the caller's appointments.
func (c *Client) ListAppointments(ctx context.Context, page, limit int) ([]application.AppointmentDTO, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	var items []application.AppointmentDTO
	if err := c.do(ctx, http.MethodGet, "/api/v1/appointments?"+params.Encode(), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// BookAppointment creates an appointment. A taken slot comes back as *domain.ConflictError.
func (c *Client) BookAppointment(ctx context.Context, req application.BookAppointmentRequest) (*application.AppointmentDTO, error) {
	var appt application.AppointmentDTO
	if err := c.do(ctx, http.MethodPost, "/api/v1/appointments", req, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// UpdateStatus requests a status transition.
func (c *Client) UpdateStatus(ctx context.Context, id uuid.UUID, req application.UpdateStatusRequest) (*application.AppointmentDTO, error) {
	var appt application.AppointmentDTO
	if err := c.do(ctx, http.MethodPatch, "/api/v1/appointments/"+id.String()+"/status", req, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorBody `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewPersistenceError(method+" "+path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 500 {
			return domain.NewPersistenceError(method+" "+path, fmt.Errorf("status %d", resp.StatusCode))
		}
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, env.Error, method+" "+path)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// decodeError turns an error body back into the domain error the server classified.
func decodeError(status int, body *response.ErrorBody, op string) error {
	if body == nil {
		if status >= 500 {
			return domain.NewPersistenceError(op, fmt.Errorf("status %d", status))
		}
		return fmt.Errorf("%s: unexpected status %d", op, status)
	}

	switch body.Code {
	case domain.CodeConflict:
		return &domain.ConflictError{Message: body.Message, ConflictingID: body.ConflictingAppointmentID}
	case domain.CodeInvalidTransition:
		return domain.NewInvalidStateError(body.From, body.To)
	case domain.CodeValidation, domain.CodeNotFound, domain.CodeForbidden, domain.CodeUnauthorized:
		return &domain.DomainError{Code: body.Code, Message: body.Message}
	case domain.CodePersistence:
		return domain.NewPersistenceError(op, errors.New(body.Message))
	}
	if status >= 500 {
		return domain.NewPersistenceError(op, errors.New(body.Message))
	}
	return &domain.DomainError{Code: body.Code, Message: body.Message}
}
