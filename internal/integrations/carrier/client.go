package carrier

import (
	"context"
	"time"

	"github.com/ecommerce-omar/tracking-api/internal/models"
)

type TrackingResult struct {
	Status           models.Status
	Events           []models.TrackingEvent // most recent first
	ExpectedDelivery *time.Time
}

// Synthetic reports a result built locally after a permanent lookup failure.
func (r TrackingResult) Synthetic() bool {
	return r.Status == models.StatusLookupError
}

// Client looks up a tracking code. Permanent lookup failures come back as a
// synthetic lookup-error result; temporary failures that outlive the retry
// budget are returned as errors.
type Client interface {
	Track(ctx context.Context, trackingCode string) (TrackingResult, error)
}
