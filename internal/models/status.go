package models

// Status is the normalized shipment status. The carrier's free text is mapped onto
// this closed set by the carrier client.
type Status string

const (
	StatusLabelIssued              Status = "label-issued"
	StatusLabelExpired             Status = "label-expired"
	StatusPosted                   Status = "posted"
	StatusInTransit                Status = "in-transit"
	StatusRouteCorrection          Status = "route-correction"
	StatusArrivedAtUnit            Status = "arrived-at-unit"
	StatusNotYetArrived            Status = "not-yet-arrived"
	StatusOutForDelivery           Status = "out-for-delivery"
	StatusDeliveredToRecipient     Status = "delivered-to-recipient"
	StatusDeliveredToSmartLocker   Status = "delivered-to-smart-locker"
	StatusAwaitingPickup           Status = "awaiting-pickup"
	StatusNotDelivered             Status = "not-delivered"
	StatusPickupWindowExpired      Status = "pickup-window-expired"
	StatusReturningToSender        Status = "returning-to-sender"
	StatusReturnedToSender         Status = "returned-to-sender"
	StatusCancelled                Status = "cancelled"
	StatusSenderRedelivery         Status = "sender-redelivery"
	StatusRecipientDeclinedPickup  Status = "recipient-declined-pickup"
	StatusCarrierCorrection        Status = "carrier-correction"
	StatusDisregardPrevious        Status = "disregard-previous"
	StatusCourierDepartedForPickup Status = "courier-departed-for-pickup"
	StatusNotFound                 Status = "not-found"

	// StatusLookupError is synthesized when the carrier permanently rejects a lookup.
	// It is stored so the record stays visible and is polled again on the next pass.
	StatusLookupError Status = "lookup-error"
)

var Statuses = []Status{
	StatusLabelIssued,
	StatusLabelExpired,
	StatusPosted,
	StatusInTransit,
	StatusRouteCorrection,
	StatusArrivedAtUnit,
	StatusNotYetArrived,
	StatusOutForDelivery,
	StatusDeliveredToRecipient,
	StatusDeliveredToSmartLocker,
	StatusAwaitingPickup,
	StatusNotDelivered,
	StatusPickupWindowExpired,
	StatusReturningToSender,
	StatusReturnedToSender,
	StatusCancelled,
	StatusSenderRedelivery,
	StatusRecipientDeclinedPickup,
	StatusCarrierCorrection,
	StatusDisregardPrevious,
	StatusCourierDepartedForPickup,
	StatusNotFound,
}

var terminalStatuses = map[Status]struct{}{
	StatusDeliveredToRecipient:   {},
	StatusDeliveredToSmartLocker: {},
	StatusCancelled:              {},
	StatusReturnedToSender:       {},
}

// TerminalStatuses returns the statuses after which polling stops.
func TerminalStatuses() []Status {
	out := make([]Status, 0, len(terminalStatuses))
	for _, s := range Statuses {
		if _, ok := terminalStatuses[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (s Status) Terminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

func (s Status) Valid() bool {
	if s == StatusLookupError {
		return true
	}
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}
