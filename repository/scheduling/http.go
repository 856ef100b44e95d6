package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"slotline/models"

	"go.uber.org/zap"
)

// HTTPClient implements API against the scheduling core's REST surface.
// No client-side timeout beyond the transport's own; a hold's effective
// timeout is entirely server-driven via expiresAt.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Logger  *zap.Logger
}

func NewHTTPClient(baseURL, apiKey string, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{},
		Logger:  logger,
	}
}

// serverError is the error envelope the scheduling core uses.
type serverError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return &APIError{Kind: KindTransport, Message: "could not build request"}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		c.Logger.Warn("scheduling request failed", zap.String("path", path), zap.Error(err))
		return &APIError{Kind: KindTransport, Message: "could not reach the scheduling service"}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &APIError{Kind: KindTransport, Message: "could not read the scheduling response"}
		}
		return nil
	}

	return c.toAPIError(resp, path)
}

// toAPIError collapses any non-success response to one typed error,
// preferring the server-supplied message over a generic fallback.
func (c *HTTPClient) toAPIError(resp *http.Response, path string) error {
	var body serverError
	_ = json.NewDecoder(resp.Body).Decode(&body)

	message := body.Message
	if message == "" {
		message = "the scheduling service returned an error"
	}

	var kind ErrorKind
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusProxyAuthRequired:
		kind = KindAuthRequired
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		kind = KindNotFound
	case resp.StatusCode == http.StatusConflict || body.Code == "holdInvalid":
		kind = KindHoldInvalid
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		kind = KindValidation
	default:
		kind = KindTransport
	}

	c.Logger.Warn("scheduling call rejected",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("kind", string(kind)))
	return &APIError{Kind: kind, Message: message}
}

func (c *HTTPClient) GetAvailabilitySummary(ctx context.Context, key models.SelectionKey) (*models.AvailabilitySummary, error) {
	q := url.Values{}
	q.Set("professionalId", key.ProfessionalID)
	q.Set("serviceId", key.ServiceID)
	q.Set("mode", string(key.Mode))
	if key.ContextMediaID != "" {
		q.Set("mediaId", key.ContextMediaID)
	}
	if key.ViewerBias != nil {
		q.Set("lat", fmt.Sprintf("%.4f", key.ViewerBias.Lat))
		q.Set("lng", fmt.Sprintf("%.4f", key.ViewerBias.Lng))
	}

	var summary models.AvailabilitySummary
	if err := c.do(ctx, http.MethodGet, "/v1/availability/summary", q, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *HTTPClient) GetDaySlots(ctx context.Context, professionalID string, key models.SelectionKey, date string) (*models.DaySlots, error) {
	q := url.Values{}
	q.Set("professionalId", professionalID)
	q.Set("serviceId", key.ServiceID)
	q.Set("mode", string(key.Mode))
	q.Set("date", date)

	var slots models.DaySlots
	if err := c.do(ctx, http.MethodGet, "/v1/availability/slots", q, nil, &slots); err != nil {
		return nil, err
	}
	return &slots, nil
}

func (c *HTTPClient) CreateHold(ctx context.Context, offeringID string, slotInstant time.Time, mode models.AppointmentMode) (*models.Hold, error) {
	body := map[string]any{
		"offeringId":  offeringID,
		"slotInstant": slotInstant.UTC().Format(time.RFC3339),
		"mode":        mode,
	}
	var hold models.Hold
	if err := c.do(ctx, http.MethodPost, "/v1/holds", nil, body, &hold); err != nil {
		return nil, err
	}
	return &hold, nil
}

func (c *HTTPClient) GetHold(ctx context.Context, holdID string) (*models.Hold, error) {
	var hold models.Hold
	if err := c.do(ctx, http.MethodGet, "/v1/holds/"+url.PathEscape(holdID), nil, nil, &hold); err != nil {
		return nil, err
	}
	return &hold, nil
}

func (c *HTTPClient) DeleteHold(ctx context.Context, holdID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/holds/"+url.PathEscape(holdID), nil, nil, nil)
}

func (c *HTTPClient) JoinWaitlist(ctx context.Context, req models.WaitlistRequest) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	if err := c.do(ctx, http.MethodPost, "/v1/waitlist", nil, req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
