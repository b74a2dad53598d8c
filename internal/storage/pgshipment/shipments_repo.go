package pgshipment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/ecommerce-omar/tracking-api/internal/models"
)

const shipmentColumns = `
  id, tracking_code, status, channel,
  events, expected_delivery,
  created_at, updated_at`

// CreateOrGetShipments регистрирует отправления; уже существующие коды
// возвращаются как есть, статус и канал не перезаписываются.
func (s *Storage) CreateOrGetShipments(ctx context.Context, items []models.ShipmentCreateInput) ([]*models.Shipment, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]uint64, 0, len(items))
	for _, it := range items {
		var id uint64
		err := tx.QueryRow(ctx, `
INSERT INTO shipments (tracking_code, status, channel, created_at, updated_at)
VALUES ($1,$2,$3,$4,$4)
ON CONFLICT (tracking_code)
DO UPDATE SET updated_at = shipments.updated_at
RETURNING id
`, it.TrackingCode, models.StatusLabelIssued, it.Channel, now).Scan(&id)
		if err != nil {
			return nil, errors.Wrap(err, "insert shipment")
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}

	return s.GetShipmentsByIDs(ctx, ids)
}

func (s *Storage) GetShipmentsByIDs(ctx context.Context, ids []uint64) ([]*models.Shipment, error) {
	if len(ids) == 0 {
		return []*models.Shipment{}, nil
	}

	rows, err := s.db.Query(ctx, `SELECT`+shipmentColumns+`
FROM shipments
WHERE id = ANY($1)
ORDER BY id
`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "select shipments")
	}
	return collectShipments(rows)
}

func (s *Storage) GetShipmentByCode(ctx context.Context, code string) (*models.Shipment, error) {
	rows, err := s.db.Query(ctx, `SELECT`+shipmentColumns+`
FROM shipments
WHERE tracking_code = $1
`, code)
	if err != nil {
		return nil, errors.Wrap(err, "select shipment")
	}
	out, err := collectShipments(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out[0], nil
}

// FindPendingRecords возвращает все отправления в нетерминальных статусах,
// начиная с давно не обновлявшихся.
func (s *Storage) FindPendingRecords(ctx context.Context) ([]*models.Shipment, error) {
	terminal := make([]string, 0, 4)
	for _, st := range models.TerminalStatuses() {
		terminal = append(terminal, string(st))
	}

	rows, err := s.db.Query(ctx, `SELECT`+shipmentColumns+`
FROM shipments
WHERE status <> ALL($1)
ORDER BY updated_at ASC, id ASC
`, terminal)
	if err != nil {
		return nil, errors.Wrap(err, "select pending shipments")
	}
	return collectShipments(rows)
}

func collectShipments(rows pgx.Rows) ([]*models.Shipment, error) {
	defer rows.Close()

	out := []*models.Shipment{}
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func scanShipment(row pgx.Row) (*models.Shipment, error) {
	var sh models.Shipment
	var rawEvents []byte
	if err := row.Scan(
		&sh.ID, &sh.TrackingCode, &sh.Status, &sh.Channel,
		&rawEvents, &sh.ExpectedDelivery,
		&sh.CreatedAt, &sh.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "scan shipment")
	}
	if len(rawEvents) > 0 {
		if err := json.Unmarshal(rawEvents, &sh.Events); err != nil {
			return nil, errors.Wrap(err, "decode events")
		}
	}
	if sh.Events == nil {
		sh.Events = []models.TrackingEvent{}
	}
	return &sh, nil
}
