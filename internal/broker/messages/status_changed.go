package messages

import (
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/ecommerce-omar/tracking-api/internal/models"
)

// StatusChanged публикуется в Kafka, когда у отправления поменялся статус
// или появились новые события и политика уведомлений это разрешает.
type StatusChanged struct {
	ShipmentID     uint64                 `json:"shipment_id"`
	TrackingCode   string                 `json:"tracking_code"`
	Channel        models.DeliveryChannel `json:"channel"`
	PreviousStatus models.Status          `json:"previous_status"`
	Status         models.Status          `json:"status"`

	LatestEvent      *models.TrackingEvent `json:"latest_event,omitempty"`
	ExpectedDelivery *time.Time            `json:"expected_delivery,omitempty"`

	ChangedAt time.Time `json:"changed_at"`
}

// DedupKey identifies one notification: the same status with the same latest
// event from overlapping passes maps to the same key.
func (m StatusChanged) DedupKey() string {
	sig := ""
	if m.LatestEvent != nil {
		sum := sha1.Sum([]byte(m.LatestEvent.Signature()))
		sig = hex.EncodeToString(sum[:8])
	}
	return "notify:" + m.TrackingCode + ":" + string(m.Status) + ":" + sig
}
