// Package client provides a programmatic interface to the pairing API
// and a stateful controller that mirrors server state over WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pairlink/pairlink-api/internal/domain/couple"
	"github.com/pairlink/pairlink-api/internal/domain/event"
)

// APIError is a decoded error envelope from the server
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *errorInfo      `json:"error,omitempty"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client is a thin HTTP wrapper over the pairing API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the API at baseURL authenticated with an
// access token
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken replaces the access token, e.g. after a refresh
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if !env.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}

	return nil
}

// Bind sends a pairing request to partnerID
func (c *Client) Bind(ctx context.Context, partnerID uuid.UUID) (*couple.BindRequestResponse, error) {
	var out couple.BindRequestResponse
	body := &couple.BindRequestBody{PartnerID: partnerID.String()}
	if err := c.do(ctx, http.MethodPost, "/api/v1/couple/bind", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Requests lists pending pairing requests addressed to the caller
func (c *Client) Requests(ctx context.Context) ([]*couple.BindRequestResponse, error) {
	var out []*couple.BindRequestResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/couple/requests", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Accept accepts a pending pairing request
func (c *Client) Accept(ctx context.Context, requestID uuid.UUID) (*couple.CoupleResponse, error) {
	var out couple.CoupleResponse
	body := &couple.AcceptRequestBody{RequestID: requestID.String()}
	if err := c.do(ctx, http.MethodPost, "/api/v1/couple/accept", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reject declines a pending pairing request
func (c *Client) Reject(ctx context.Context, requestID uuid.UUID) (*couple.RejectResponse, error) {
	var out couple.RejectResponse
	body := &couple.AcceptRequestBody{RequestID: requestID.String()}
	if err := c.do(ctx, http.MethodPost, "/api/v1/couple/reject", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Relation returns the caller's active couple, or nil when unpaired
func (c *Client) Relation(ctx context.Context) (*couple.CoupleResponse, error) {
	var out *couple.CoupleResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/couple/relation", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks whether coupleID is an active couple containing the
// caller
func (c *Client) Validate(ctx context.Context, coupleID string) (*couple.ValidateResponse, error) {
	var out couple.ValidateResponse
	body := &couple.ValidateBody{CoupleID: coupleID}
	if err := c.do(ctx, http.MethodPost, "/api/v1/couple/validate", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Unbind dissolves the caller's active couple
func (c *Client) Unbind(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/couple/unbind", nil, nil)
}

// Events lists the couple's shared events
func (c *Client) Events(ctx context.Context) ([]*event.EventResponse, error) {
	var out []*event.EventResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/couple/events", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateEvent adds a shared event
func (c *Client) CreateEvent(ctx context.Context, req *event.CreateEventRequest) (*event.EventResponse, error) {
	var out event.EventResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/couple/events", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEvent partially updates a shared event
func (c *Client) UpdateEvent(ctx context.Context, id uuid.UUID, req *event.UpdateEventRequest) (*event.EventResponse, error) {
	var out event.EventResponse
	if err := c.do(ctx, http.MethodPut, "/api/v1/couple/events/"+id.String(), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteEvent removes a shared event
func (c *Client) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/couple/events/"+id.String(), nil, nil)
}
