package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ecommerce-omar/tracking-api/internal/models"
)

func ev(desc string, minute int) models.TrackingEvent {
	return models.TrackingEvent{
		Description: desc,
		OccurredAt:  time.Date(2025, 3, 10, 9, minute, 0, 0, time.UTC),
		Location:    "CURITIBA - PR",
	}
}

func TestHasNewEvents(t *testing.T) {
	posted := ev("Objeto postado", 0)
	transit := ev("Objeto em transferência - por favor aguarde", 10)
	out := ev("Objeto saiu para entrega ao destinatário", 20)

	tests := []struct {
		name string
		old  []models.TrackingEvent
		new  []models.TrackingEvent
		want bool
	}{
		{"both empty", nil, nil, false},
		{"same order", []models.TrackingEvent{transit, posted}, []models.TrackingEvent{transit, posted}, false},
		{"reordered", []models.TrackingEvent{transit, posted}, []models.TrackingEvent{posted, transit}, false},
		{"prepended event", []models.TrackingEvent{transit, posted}, []models.TrackingEvent{out, transit, posted}, true},
		{"fewer events", []models.TrackingEvent{transit, posted}, []models.TrackingEvent{transit}, true},
		{"same length replaced", []models.TrackingEvent{transit, posted}, []models.TrackingEvent{out, posted}, true},
		{"location whitespace ignored", []models.TrackingEvent{posted}, []models.TrackingEvent{{
			Description: posted.Description, OccurredAt: posted.OccurredAt, Location: "  CURITIBA - PR ",
		}}, false},
		{"timestamp zone normalized", []models.TrackingEvent{posted}, []models.TrackingEvent{{
			Description: posted.Description,
			OccurredAt:  posted.OccurredAt.In(time.FixedZone("BRT", -3*3600)),
			Location:    posted.Location,
		}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, HasNewEvents(tt.old, tt.new))
		})
	}
}

func TestHasNewEvents_DetailChange(t *testing.T) {
	a := ev("Objeto aguardando retirada no endereço indicado", 0)
	b := a
	d := "Para retirar o objeto, é necessário apresentar documento"
	b.Detail = &d
	require.True(t, HasNewEvents([]models.TrackingEvent{a}, []models.TrackingEvent{b}))
}
