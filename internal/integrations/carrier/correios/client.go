package correios

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ecommerce-omar/tracking-api/internal/errclass"
	"github.com/ecommerce-omar/tracking-api/internal/integrations/carrier"
	"github.com/ecommerce-omar/tracking-api/internal/models"
	"github.com/ecommerce-omar/tracking-api/internal/retry"
)

type Config struct {
	BaseURL        string
	Username       string
	AccessCode     string
	PostcardNumber string
	TokenTTL       time.Duration
	Timeout        time.Duration
	Retry          retry.Options
}

type Client struct {
	baseURL string
	httpc   *http.Client
	broker  *CredentialBroker
	retry   retry.Options
	logger  *slog.Logger
	loc     *time.Location
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	httpc := &http.Client{Timeout: cfg.Timeout}
	return NewWithBroker(cfg, httpc, NewCredentialBroker(cfg, httpc, logger), logger)
}

// NewWithBroker lets several clients share one credential cache.
func NewWithBroker(cfg Config, httpc *http.Client, broker *CredentialBroker, logger *slog.Logger) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc:   httpc,
		broker:  broker,
		retry:   cfg.Retry,
		logger:  logger.With(slog.String("component", "carrier_client")),
		loc:     carrierLocation(),
	}
	userHook := c.retry.OnRetry
	c.retry.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.logger.Warn("carrier lookup retry",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
		if userHook != nil {
			userHook(attempt, delay, err)
		}
	}
	return c
}

func (c *Client) Broker() *CredentialBroker { return c.broker }

// credentialError marks failures to obtain a token. They abort the record
// instead of being turned into a stored lookup-error status.
type credentialError struct{ err error }

func (e *credentialError) Error() string { return "carrier credentials: " + e.err.Error() }
func (e *credentialError) Unwrap() error { return e.err }

func (c *Client) Track(ctx context.Context, trackingCode string) (carrier.TrackingResult, error) {
	body, err := retry.Run(ctx, c.retry, func(ctx context.Context) (*rastroResponse, error) {
		return c.lookup(ctx, trackingCode)
	})
	if err != nil {
		var ce *credentialError
		if errclass.IsPermanent(err) && !errors.As(err, &ce) {
			c.logger.Error("carrier lookup failed permanently",
				slog.String("tracking_code", trackingCode),
				slog.String("error", err.Error()),
			)
			return lookupErrorResult(err), nil
		}
		return carrier.TrackingResult{}, err
	}
	return c.normalize(trackingCode, body), nil
}

func (c *Client) lookup(ctx context.Context, trackingCode string) (*rastroResponse, error) {
	token, err := c.broker.Token(ctx)
	if err != nil {
		return nil, &credentialError{err: err}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, errclass.Permanent(errors.Wrap(err, "parse base url"))
	}
	u.Path = "/srorastro/v1/objetos/" + url.PathEscape(trackingCode)
	q := u.Query()
	q.Set("resultado", "T")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errclass.Permanent(errors.Wrap(err, "new request"))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errclass.Temporary(errors.Wrap(err, "do request"))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.broker.Invalidate(token)
	}
	if resp.StatusCode/100 != 2 {
		return nil, statusError(resp)
	}

	var rb rastroResponse
	if err := json.NewDecoder(resp.Body).Decode(&rb); err != nil {
		return nil, errclass.Temporary(errors.Wrap(err, "decode"))
	}
	return &rb, nil
}

// lookupErrorResult строит синтетический результат. Время и detail не зависят
// от прохода.
func lookupErrorResult(cause error) carrier.TrackingResult {
	detail := cause.Error()
	var he *httpStatusError
	if errors.As(cause, &he) {
		detail = fmt.Sprintf("carrier http %d", he.Code)
	}
	return carrier.TrackingResult{
		Status: models.StatusLookupError,
		Events: []models.TrackingEvent{{
			Description: "Erro ao consultar o rastreamento",
			OccurredAt:  time.Time{},
			Detail:      &detail,
		}},
	}
}
