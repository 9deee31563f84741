// Package pantry executes confirmed assistant actions against the pantry
// backend. An action only reaches this client after the user explicitly
// confirmed it; the session guarantees at most one execution per
// confirmation.
package pantry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jinzhu/copier"
	"github.com/pantrypal/assistant-core/core/assist"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Client struct {
	baseURL  string
	apiToken string

	httpClient *http.Client
}

type ClientOption func(*Client)

func WithAPIToken(token string) ClientOption {
	return func(c *Client) { c.apiToken = token }
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type actionRequest struct {
	Action string            `json:"action"`
	Params map[string]string `json:"params,omitempty"`
}

type actionFailure struct {
	Error string `json:"error"`
}

// Execute applies a confirmed action. A nil return means the backend
// accepted and applied it; any error is the failure reason surfaced to the
// user.
func (c *Client) Execute(ctx context.Context, action assist.ProposedAction) error {
	ctx, span := tracer.Start(ctx, "execute pantry action")
	defer span.End()
	span.SetAttributes(attribute.String("action.name", action.Name))

	var params map[string]string
	if err := copier.CopyWithOption(&params, action.Params, copier.Option{DeepCopy: true}); err != nil {
		err = fmt.Errorf("failed to snapshot action params: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	requestBodyBytes, err := json.Marshal(actionRequest{Action: action.Name, Params: params})
	if err != nil {
		err = fmt.Errorf("error marshalling JSON: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/actions", bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		err = fmt.Errorf("error creating HTTP request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error sending request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	reason := resp.Status
	if body, readErr := io.ReadAll(resp.Body); readErr == nil {
		var failure actionFailure
		if json.Unmarshal(body, &failure) == nil && failure.Error != "" {
			reason = failure.Error
		}
	}

	err = fmt.Errorf("action %q was not applied: %s", action.Name, reason)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
