package models

import (
	"regexp"
	"strings"
	"time"
)

type DeliveryChannel string

const (
	ChannelDelivery      DeliveryChannel = "delivery"
	ChannelPickupInPoint DeliveryChannel = "pickup-in-point"
)

func (c DeliveryChannel) Valid() bool {
	return c == ChannelDelivery || c == ChannelPickupInPoint
}

// Трек-код перевозчика: 2 буквы + 9 цифр + 2 буквы (AB123456789BR).
var trackingCodeRe = regexp.MustCompile(`^[A-Z]{2}[0-9]{9}[A-Z]{2}$`)

func NormalizeTrackingCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidTrackingCode(code string) bool {
	return trackingCodeRe.MatchString(code)
}

type Shipment struct {
	ID               uint64
	TrackingCode     string
	Status           Status
	Channel          DeliveryChannel
	Events           []TrackingEvent // most recent first
	ExpectedDelivery *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type PostalAddress struct {
	Street       string `json:"street,omitempty"`
	Number       string `json:"number,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
}

type TrackingEvent struct {
	Description string         `json:"description"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Location    string         `json:"location"`
	Detail      *string        `json:"detail,omitempty"`
	UnitType    *string        `json:"unit_type,omitempty"`
	Origin      *string        `json:"origin,omitempty"`
	Destination *string        `json:"destination,omitempty"`
	Address     *PostalAddress `json:"address,omitempty"`
}

type ShipmentCreateInput struct {
	TrackingCode string
	Channel      DeliveryChannel
}
