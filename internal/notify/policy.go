package notify

import "github.com/ecommerce-omar/tracking-api/internal/models"

// Статусы, которые обновляют запись, но клиенту о них не сообщаем.
var silentStatuses = map[models.Status]struct{}{
	models.StatusLabelExpired:             {},
	models.StatusSenderRedelivery:         {},
	models.StatusRecipientDeclinedPickup:  {},
	models.StatusCarrierCorrection:        {},
	models.StatusDisregardPrevious:        {},
	models.StatusNotYetArrived:            {},
	models.StatusCourierDepartedForPickup: {},
}

func Silent(s models.Status) bool {
	_, ok := silentStatuses[s]
	return ok
}

// ShouldNotify decides whether a status change reaches the customer.
// Pickup-in-point orders are never notified here.
func ShouldNotify(channel models.DeliveryChannel, status models.Status) bool {
	if channel == models.ChannelPickupInPoint {
		return false
	}
	return !Silent(status)
}
