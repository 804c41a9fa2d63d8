package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bgricker/campwatch/internal/report"
)

const maxErrorBody = 512

// ClientOptions configure an HTTP Client.
type ClientOptions struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the campaign backend REST API.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	logger *zap.Logger
}

var _ Service = (*Client)(nil)

// NewClient creates a client for the backend rooted at opts.BaseURL.
func NewClient(opts ClientOptions) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("backend base url is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url %q: %w", opts.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported backend url scheme %q", base.Scheme)
	}
	if opts.HTTPClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		opts.HTTPClient = &http.Client{Timeout: timeout}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{base: base, token: opts.Token, http: opts.HTTPClient, logger: opts.Logger}, nil
}

// FetchCampaign returns the campaign with its execution history.
func (c *Client) FetchCampaign(ctx context.Context, campaignID int64) (report.Campaign, error) {
	var out report.Campaign
	err := c.do(ctx, "fetch campaign", http.MethodGet, c.path("api", "ui", "campaign", "v1", id(campaignID)), &out)
	return out, err
}

// FetchScenarios returns the scenario index of a campaign.
func (c *Client) FetchScenarios(ctx context.Context, campaignID int64) ([]report.ScenarioIndex, error) {
	var out []report.ScenarioIndex
	err := c.do(ctx, "fetch scenarios", http.MethodGet, c.path("api", "ui", "campaign", "v1", id(campaignID), "scenarios"), &out)
	return out, err
}

// ExecuteCampaign runs the campaign on the given environment. The backend
// answers once the run is over.
func (c *Client) ExecuteCampaign(ctx context.Context, campaignID int64, environment string) error {
	if strings.TrimSpace(environment) == "" {
		return fmt.Errorf("execute campaign %d: environment is required", campaignID)
	}
	return c.do(ctx, "execute campaign", http.MethodGet, c.path("api", "ui", "campaign", "execution", "v1", "byID", id(campaignID), environment), nil)
}

// StopExecution asks the backend to stop a running execution.
func (c *Client) StopExecution(ctx context.Context, campaignID, executionID int64) error {
	op := fmt.Sprintf("stop execution %d of campaign %d", executionID, campaignID)
	return c.do(ctx, op, http.MethodPost, c.path("api", "ui", "campaign", "execution", "v1", id(executionID), "stop"), nil)
}

// ReplayFailed re-runs the failed scenarios of an execution.
func (c *Client) ReplayFailed(ctx context.Context, executionID int64) error {
	return c.do(ctx, "replay failed scenarios", http.MethodPost, c.path("api", "ui", "campaign", "execution", "v1", "replay", id(executionID)), nil)
}

// FetchRawTestCase returns the raw definition of a scenario.
func (c *Client) FetchRawTestCase(ctx context.Context, scenarioID string) (report.TestCase, error) {
	var out report.TestCase
	err := c.do(ctx, "fetch raw scenario", http.MethodGet, c.path("api", "scenario", "v2", "raw", scenarioID), &out)
	return out, err
}

// ListEnvironments returns the names of the environments a campaign can run on.
func (c *Client) ListEnvironments(ctx context.Context) ([]string, error) {
	var out []string
	err := c.do(ctx, "list environments", http.MethodGet, c.path("api", "v2", "environment", "names"), &out)
	return out, err
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func (c *Client) path(segments ...string) string {
	u := *c.base
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(escaped, "/")
	u.RawPath = ""
	return u.String()
}

func (c *Client) do(ctx context.Context, op, method, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
