package notify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ecommerce-omar/tracking-api/internal/models"
)

func TestShouldNotify_PickupInPointNeverNotified(t *testing.T) {
	for _, s := range models.Statuses {
		require.False(t, ShouldNotify(models.ChannelPickupInPoint, s), s)
	}
}

func TestShouldNotify_Delivery(t *testing.T) {
	silent := []models.Status{
		models.StatusLabelExpired,
		models.StatusSenderRedelivery,
		models.StatusRecipientDeclinedPickup,
		models.StatusCarrierCorrection,
		models.StatusDisregardPrevious,
		models.StatusNotYetArrived,
		models.StatusCourierDepartedForPickup,
	}
	for _, s := range silent {
		require.False(t, ShouldNotify(models.ChannelDelivery, s), s)
	}

	notified := 0
	for _, s := range models.Statuses {
		if Silent(s) {
			continue
		}
		require.True(t, ShouldNotify(models.ChannelDelivery, s), s)
		notified++
	}
	require.Equal(t, len(models.Statuses)-len(silent), notified)
}
