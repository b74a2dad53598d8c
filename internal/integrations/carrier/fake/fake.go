package fake

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/ecommerce-omar/tracking-api/internal/integrations/carrier"
	"github.com/ecommerce-omar/tracking-api/internal/models"
)

// FakeClient: офлайн "перевозчик" для локального запуска без учётных данных.
// Статус детерминирован по трек-коду и продвигается со временем.
type FakeClient struct {
	now func() time.Time
}

func New() *FakeClient { return &FakeClient{now: time.Now} }

var progression = []struct {
	status models.Status
	text   string
}{
	{models.StatusPosted, "Objeto postado"},
	{models.StatusInTransit, "Objeto em transferência - por favor aguarde"},
	{models.StatusArrivedAtUnit, "Objeto recebido na unidade de distribuição"},
	{models.StatusOutForDelivery, "Objeto saiu para entrega ao destinatário"},
	{models.StatusDeliveredToRecipient, "Objeto entregue ao destinatário"},
}

func (f *FakeClient) Track(ctx context.Context, trackingCode string) (carrier.TrackingResult, error) {
	if err := ctx.Err(); err != nil {
		return carrier.TrackingResult{}, err
	}
	now := f.now().UTC()

	h := fnv.New32a()
	_, _ = h.Write([]byte(trackingCode))
	v := h.Sum32()

	// каждый час трек продвигается на шаг, стартовая позиция зависит от кода
	step := (int(v%3) + now.Hour()) % len(progression)
	events := make([]models.TrackingEvent, 0, step+1)
	for i := step; i >= 0; i-- {
		events = append(events, models.TrackingEvent{
			Description: progression[i].text,
			OccurredAt:  now.Truncate(time.Hour).Add(-time.Duration(step-i) * time.Hour),
			Location:    "São Paulo - SP",
		})
	}

	expected := now.Truncate(24 * time.Hour).Add(72 * time.Hour)
	return carrier.TrackingResult{
		Status:           progression[step].status,
		Events:           events,
		ExpectedDelivery: &expected,
	}, nil
}
