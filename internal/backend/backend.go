// Package backend defines the campaign service the monitor talks to and an
// HTTP implementation of it.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/bgricker/campwatch/internal/report"
)

// Service is the remote campaign backend.
type Service interface {
	FetchCampaign(ctx context.Context, campaignID int64) (report.Campaign, error)
	FetchScenarios(ctx context.Context, campaignID int64) ([]report.ScenarioIndex, error)
	ExecuteCampaign(ctx context.Context, campaignID int64, environment string) error
	StopExecution(ctx context.Context, campaignID, executionID int64) error
	ReplayFailed(ctx context.Context, executionID int64) error
	FetchRawTestCase(ctx context.Context, scenarioID string) (report.TestCase, error)
}

// ErrNotFound indicates the requested campaign, execution or scenario does not exist.
var ErrNotFound = errors.New("not found")

// TransportError wraps a network failure or an unexpected backend response.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: backend returned %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": transport error"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
