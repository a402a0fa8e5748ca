// Package rdkit is a client for an RDKit sidecar that runs reaction
// templates and standardizes structures over JSON/HTTP.
//
// Endpoints:
//
//	POST /v1/react        {"smarts": "...", "reactants": ["..."]} -> {"products": ["..."]}
//	POST /v1/standardize  {"smiles": "..."} -> {"smiles": "...", "inchikey": "..."}
//	GET  /healthz
package rdkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/turtacn/ReactEA/internal/domain/chem"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ReactEA/pkg/errors"
)

var (
	ErrInvalidConfig = errors.New(errors.ErrCodeValidation, "invalid rdkit configuration")
	ErrUnavailable   = errors.New(errors.ErrCodeReactorUnavailable, "rdkit service unavailable")
)

// Config configures the sidecar client.
type Config struct {
	Endpoint      string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// Client implements chem.Reactor and chem.Standardizer against the sidecar.
type Client struct {
	baseURL string
	http    *http.Client
	cfg     Config
	logger  logging.Logger
}

var (
	_ chem.Reactor      = (*Client)(nil)
	_ chem.Standardizer = (*Client)(nil)
)

type reactRequest struct {
	SMARTS    string   `json:"smarts"`
	Reactants []string `json:"reactants"`
}

type reactResponse struct {
	Products []string `json:"products"`
}

type standardizeRequest struct {
	SMILES string `json:"smiles"`
}

type standardizeResponse struct {
	SMILES   string `json:"smiles"`
	InChIKey string `json:"inchikey"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewClient(cfg Config, log logging.Logger, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.Wrap(ErrInvalidConfig, errors.ErrCodeValidation, "endpoint is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 2
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.Endpoint, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		logger:  log.Named("rdkit"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// React applies rule to reactants. No match yields an empty slice; a
// template the sidecar cannot parse is a CHEM_003 error.
func (c *Client) React(ctx context.Context, reactants []*chem.Compound, rule *chem.ReactionRule) ([]string, error) {
	if rule == nil {
		return nil, errors.InvalidParam("rule is required")
	}
	req := reactRequest{SMARTS: rule.SMARTS, Reactants: make([]string, len(reactants))}
	for i, r := range reactants {
		req.Reactants[i] = r.SMILES
	}

	var resp reactResponse
	status, err := c.post(ctx, "/v1/react", req, &resp)
	if err != nil {
		if status == http.StatusUnprocessableEntity {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidReactionRule, "rdkit rejected rule "+rule.ID)
		}
		return nil, err
	}
	return resp.Products, nil
}

// Standardize canonicalizes c on the sidecar and keeps its ID.
func (c *Client) Standardize(compound *chem.Compound) (*chem.Compound, error) {
	if compound == nil {
		return nil, errors.InvalidParam("compound is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()

	var resp standardizeResponse
	status, err := c.post(ctx, "/v1/standardize", standardizeRequest{SMILES: compound.SMILES}, &resp)
	if err != nil {
		if status == http.StatusUnprocessableEntity {
			return nil, errors.Wrap(err, errors.ErrCodeStandardizationFailed, "rdkit could not standardize "+compound.ID)
		}
		return nil, err
	}
	if resp.SMILES == "" {
		return nil, errors.New(errors.ErrCodeStandardizationFailed, "rdkit returned an empty structure").
			WithDetail(compound.ID)
	}
	return &chem.Compound{ID: compound.ID, SMILES: resp.SMILES, InChIKey: resp.InChIKey}, nil
}

// Health checks the sidecar liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to build health request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return ErrUnavailable.WithCause(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return ErrUnavailable.WithDetail(fmt.Sprintf("health status %d", resp.StatusCode))
	}
	return nil
}

// post sends body as JSON and decodes a 200 response into out. 5xx and
// transport errors are retried with exponential backoff. The returned status
// is that of the last response, 0 when none arrived.
func (c *Client) post(ctx context.Context, path string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode request")
	}

	var lastErr error
	status := 0
	for attempt := 0; attempt <= c.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return status, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "rdkit request cancelled")
			case <-time.After(c.cfg.RetryDelay * time.Duration(1<<(attempt-1))):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to build request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			status = 0
			if ctx.Err() != nil {
				break
			}
			c.logger.Debug("rdkit request failed", logging.String("path", path), logging.Int("attempt", attempt), logging.Err(err))
			continue
		}

		status = resp.StatusCode
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		switch {
		case status == http.StatusOK:
			if err := json.Unmarshal(data, out); err != nil {
				return status, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode rdkit response")
			}
			return status, nil
		case status >= 500:
			lastErr = fmt.Errorf("rdkit %s: status %d: %s", path, status, serverMessage(data))
			continue
		default:
			return status, errors.New(errors.ErrCodeExternalService,
				fmt.Sprintf("rdkit %s: status %d", path, status)).WithDetail(serverMessage(data))
		}
	}
	return status, ErrUnavailable.WithCause(lastErr)
}

func serverMessage(data []byte) string {
	var e errorResponse
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(data))
}
