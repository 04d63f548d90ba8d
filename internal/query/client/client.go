// Package client calls a remote claimledger node. Client implements
// pointer.Querier so remote records can back pointer resolution.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"claimledger/internal/ledger"
	"claimledger/internal/ledger/codec"
	"claimledger/internal/pointer"
	"claimledger/internal/query/models"
	"claimledger/internal/violation"
	dErrors "claimledger/pkg/domain-errors"
	"claimledger/pkg/platform/sentinel"
)

// maxResponseBytes caps response bodies read from the remote node.
const maxResponseBytes = 4 << 20

// Client talks to the /v1 API of a remote node.
type Client struct {
	baseURL    string
	httpClient *http.Client
	registry   *codec.Registry
}

type Option func(*Client)

// WithHTTPClient replaces the default traced client with a 30s timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// New validates baseURL and builds a client. registry decodes returned records.
func New(baseURL string, registry *codec.Registry, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid query base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid query base URL: scheme must be http or https")
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return nil, fmt.Errorf("invalid query base URL: host is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("query client requires a codec registry")
	}

	c := &Client{
		baseURL:  strings.TrimRight(parsed.String(), "/"),
		registry: registry,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Query implements pointer.Querier.
func (c *Client) Query(ctx context.Context, stateType ledger.StateType, criteria pointer.Criteria) ([]ledger.AnyStateAndRef, error) {
	var resp models.QueryResponse
	req := models.QueryRequest{StateType: stateType, Criteria: criteria}
	if err := c.postJSON(ctx, "/v1/query", req, &resp); err != nil {
		return nil, err
	}
	return c.registry.DecodeRecords(resp.Records)
}

// Validate asks the remote node to validate tx. Rejections come back as
// *violation.Violation with the remote rule id.
func (c *Client) Validate(ctx context.Context, tx ledger.Transaction) error {
	req, err := models.FromTransaction(c.registry, tx)
	if err != nil {
		return err
	}
	var resp models.ValidateResponse
	return c.postJSON(ctx, "/v1/validate", req, &resp)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", path, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return decodeError(path, resp.StatusCode, payload)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	return nil
}

func decodeError(path string, status int, payload []byte) error {
	var body models.ErrorResponse
	_ = json.Unmarshal(payload, &body)

	if body.RuleID != "" {
		return violation.Custom(violation.RuleID(body.RuleID), violation.Category(body.Category), body.Description)
	}
	if status >= http.StatusInternalServerError {
		return fmt.Errorf("%s: status %d: %w", path, status, sentinel.ErrUnavailable)
	}
	code := dErrors.Code(body.Error)
	if code == "" {
		code = dErrors.CodeBadRequest
	}
	msg := body.Description
	if msg == "" {
		msg = fmt.Sprintf("%s: status %d", path, status)
	}
	return dErrors.New(code, msg)
}
