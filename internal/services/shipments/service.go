package shipments

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/ecommerce-omar/tracking-api/internal/cache"
	"github.com/ecommerce-omar/tracking-api/internal/models"
)

var ErrInvalidInput = errors.New("invalid input")

type Repository interface {
	CreateOrGetShipments(ctx context.Context, items []models.ShipmentCreateInput) ([]*models.Shipment, error)
	GetShipmentByCode(ctx context.Context, code string) (*models.Shipment, error)
}

type Service struct {
	repo       Repository
	cache      cache.BytesCache
	currentTTL time.Duration
	logger     *slog.Logger
}

func New(repo Repository, c cache.BytesCache, currentTTL time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       repo,
		cache:      c,
		currentTTL: currentTTL,
		logger:     logger.With(slog.String("component", "shipments")),
	}
}

// Register validates and registers shipments. Codes are upper-cased, repeated
// codes in one call are collapsed, already known codes are returned as stored.
func (s *Service) Register(ctx context.Context, items []models.ShipmentCreateInput) ([]*models.Shipment, error) {
	if len(items) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "items is empty")
	}
	if len(items) > 10_000 {
		return nil, errors.Wrap(ErrInvalidInput, "too many items (max 10000)")
	}

	clean := make([]models.ShipmentCreateInput, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		code := models.NormalizeTrackingCode(it.TrackingCode)
		if !models.ValidTrackingCode(code) {
			return nil, errors.Wrapf(ErrInvalidInput, "tracking code %q", it.TrackingCode)
		}
		if it.Channel == "" {
			it.Channel = models.ChannelDelivery
		}
		if !it.Channel.Valid() {
			return nil, errors.Wrapf(ErrInvalidInput, "delivery channel %q", it.Channel)
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		clean = append(clean, models.ShipmentCreateInput{TrackingCode: code, Channel: it.Channel})
	}

	return s.repo.CreateOrGetShipments(ctx, clean)
}

// Get читает текущее состояние через кэш. Кэш best-effort,
// любая ошибка Redis означает поход в БД.
func (s *Service) Get(ctx context.Context, code string) (*models.Shipment, error) {
	code = models.NormalizeTrackingCode(code)
	if !models.ValidTrackingCode(code) {
		return nil, errors.Wrapf(ErrInvalidInput, "tracking code %q", code)
	}

	if s.cacheEnabled() {
		b, ok, err := s.cache.Get(ctx, currentKey(code))
		if err != nil {
			s.logger.Warn("shipment cache get", slog.String("tracking_code", code), slog.String("error", err.Error()))
		}
		if ok {
			var sh models.Shipment
			if json.Unmarshal(b, &sh) == nil {
				return &sh, nil
			}
		}
	}

	sh, err := s.repo.GetShipmentByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	_ = s.PutCached(ctx, sh)
	return sh, nil
}

// Refresh drops the cached copy and reloads the record from storage.
func (s *Service) Refresh(ctx context.Context, code string) (*models.Shipment, error) {
	code = models.NormalizeTrackingCode(code)
	if !models.ValidTrackingCode(code) {
		return nil, errors.Wrapf(ErrInvalidInput, "tracking code %q", code)
	}
	if s.cacheEnabled() {
		if err := s.cache.Delete(ctx, currentKey(code)); err != nil {
			return nil, errors.Wrap(err, "invalidate shipment cache")
		}
	}
	return s.Get(ctx, code)
}

// PutCached кладёт актуальную запись в кэш (вызывается после сохранения).
func (s *Service) PutCached(ctx context.Context, sh *models.Shipment) error {
	if !s.cacheEnabled() || sh == nil {
		return nil
	}
	b, err := json.Marshal(sh)
	if err != nil {
		return errors.Wrap(err, "marshal shipment")
	}
	return s.cache.Set(ctx, currentKey(sh.TrackingCode), b, s.currentTTL)
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.currentTTL > 0
}

func currentKey(code string) string {
	return "shipment:" + code + ":current"
}
