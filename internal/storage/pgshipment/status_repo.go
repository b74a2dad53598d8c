package pgshipment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/ecommerce-omar/tracking-api/internal/models"
)

type StatusChange struct {
	PreviousStatus models.Status `json:"previous_status"`
	Status         models.Status `json:"status"`
	ChangedAt      time.Time     `json:"changed_at"`
}

// UpdateStatus заменяет статус, события и ожидаемую дату доставки целиком
// (last-write-wins) и пишет строку в историю, если статус поменялся.
func (s *Storage) UpdateStatus(ctx context.Context, code string, status models.Status, events []models.TrackingEvent, expectedDelivery *time.Time) (*models.Shipment, error) {
	if events == nil {
		events = []models.TrackingEvent{}
	}
	rawEvents, err := json.Marshal(events)
	if err != nil {
		return nil, errors.Wrap(err, "encode events")
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id uint64
	var prev models.Status
	err = tx.QueryRow(ctx, `SELECT id, status FROM shipments WHERE tracking_code = $1 FOR UPDATE`, code).Scan(&id, &prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "lock shipment")
	}

	sh, err := scanShipment(tx.QueryRow(ctx, `
UPDATE shipments
SET status = $2,
    events = $3,
    expected_delivery = $4,
    updated_at = $5
WHERE id = $1
RETURNING`+shipmentColumns, id, status, rawEvents, expectedDelivery, now))
	if err != nil {
		return nil, errors.Wrap(err, "update shipment")
	}

	if prev != status {
		_, err = tx.Exec(ctx, `
INSERT INTO shipment_status_changes (shipment_id, previous_status, status, changed_at)
VALUES ($1,$2,$3,$4)
`, id, prev, status, now)
		if err != nil {
			return nil, errors.Wrap(err, "insert status change")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return sh, nil
}

func (s *Storage) ListStatusChanges(ctx context.Context, shipmentID uint64, limit, offset int) ([]StatusChange, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT previous_status, status, changed_at
FROM shipment_status_changes
WHERE shipment_id = $1
ORDER BY changed_at DESC, id DESC
LIMIT $2 OFFSET $3
`, shipmentID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select status changes")
	}
	defer rows.Close()

	out := []StatusChange{}
	for rows.Next() {
		var c StatusChange
		if err := rows.Scan(&c.PreviousStatus, &c.Status, &c.ChangedAt); err != nil {
			return nil, errors.Wrap(err, "scan status change")
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
