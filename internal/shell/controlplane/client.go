// Package controlplane provides the authenticated client for the serverless
// platform's RPC-style control-plane API: versioned actions over HTTPS,
// request signing, and bounded polling of long-running remote state.
package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/artpar/fnship/internal/core/signer"
)

// apiVersion is the control-plane API version sent with every action.
const apiVersion = "2021-03-03"

// =============================================================================
// Client
// =============================================================================

// Config holds control-plane client configuration.
type Config struct {
	// Endpoint is the API base URL, e.g. "https://open.cloudfn.io".
	Endpoint string

	// Credential signs every request.
	Credential signer.Credential

	Timeout time.Duration
}

// Client issues signed control-plane actions.
type Client struct {
	endpoint   string
	host       string
	cred       signer.Credential
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a new control-plane client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid control-plane endpoint %q", cfg.Endpoint)
	}

	return &Client{
		endpoint: cfg.Endpoint,
		host:     u.Host,
		cred:     cfg.Credential,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
		now:    time.Now,
	}, nil
}

// invoke serializes params, signs the request and issues a POST with the
// action and API version as query parameters. The decoded Result is written
// into result when non-nil.
func (c *Client) invoke(ctx context.Context, action string, params any, result any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", action, err)
	}

	query := url.Values{
		"Action":  {action},
		"Version": {apiVersion},
	}
	headers := signer.Sign(signer.Request{
		Method: http.MethodPost,
		Host:   c.host,
		Path:   "/",
		Query:  query,
		Body:   string(body),
	}, c.cred, c.now())

	// The raw query must match the signed canonical query byte-for-byte.
	reqURL := c.endpoint + "/?" + signer.CanonicalQuery(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", action, err)
	}
	req.Host = headers.Get("Host")
	for name := range headers {
		req.Header.Set(name, headers.Get(name))
	}

	c.logger.Debug("control-plane request", "action", action, "host", c.host)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send %s request: %w", action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", action, err)
	}

	var env envelope
	_ = json.Unmarshal(raw, &env) // a non-envelope body still yields a useful APIError

	if resp.StatusCode < 200 || resp.StatusCode > 299 || env.Result == nil {
		apiErr := &APIError{
			Action:     action,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
		if env.ResponseMetadata.Error != nil {
			apiErr.Code = env.ResponseMetadata.Error.Code
			apiErr.Message = env.ResponseMetadata.Error.Message
		}
		return apiErr
	}

	c.logger.Debug("control-plane response",
		"action", action,
		"request_id", env.ResponseMetadata.RequestId,
	)

	if result != nil {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", action, err)
		}
	}
	return nil
}

// =============================================================================
// Actions
// =============================================================================

// ListFunctions returns one page of remote functions, optionally filtered by
// name.
func (c *Client) ListFunctions(ctx context.Context, pageNumber, pageSize int, name string) ([]Function, error) {
	var result listFunctionsResult
	err := c.invoke(ctx, "ListFunctions", listFunctionsParams{
		PageNumber: pageNumber,
		PageSize:   pageSize,
		Name:       name,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// GetFunction fetches one remote function by id.
func (c *Client) GetFunction(ctx context.Context, id string) (*Function, error) {
	var fn Function
	if err := c.invoke(ctx, "GetFunction", getFunctionParams{Id: id}, &fn); err != nil {
		return nil, err
	}
	return &fn, nil
}

// UpdateFunction points the remote function at a container image.
func (c *Client) UpdateFunction(ctx context.Context, id, imageSource string) error {
	return c.invoke(ctx, "UpdateFunction", updateFunctionParams{
		Id:         id,
		Source:     imageSource,
		SourceType: "image",
	}, nil)
}

// Release triggers a traffic release of the function's latest revision with
// full target weight.
func (c *Client) Release(ctx context.Context, functionID, description string) error {
	return c.invoke(ctx, "Release", releaseParams{
		FunctionId:          functionID,
		RevisionNumber:      0,
		TargetTrafficWeight: 100,
		RollingStep:         100,
		Description:         description,
	}, nil)
}

// GetReleaseStatus fetches the current release status of a function.
func (c *Client) GetReleaseStatus(ctx context.Context, functionID string) (PollResult, error) {
	var result PollResult
	err := c.invoke(ctx, "GetReleaseStatus", getReleaseStatusParams{FunctionId: functionID}, &result)
	return result, err
}

// GetImageSyncStatus fetches the platform's pull/cache status for the image
// a function was pointed at.
func (c *Client) GetImageSyncStatus(ctx context.Context, functionID, source string) (PollResult, error) {
	var result PollResult
	err := c.invoke(ctx, "GetImageSyncStatus", getImageSyncStatusParams{
		FunctionId: functionID,
		Source:     source,
	}, &result)
	return result, err
}
