package correios

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/ecommerce-omar/tracking-api/internal/errclass"
)

const (
	DefaultTokenTTL = time.Hour

	// токен обновляем чуть раньше истечения, чтобы не отдать его "на грани"
	tokenRefreshSkew = 30 * time.Second

	tokenFlightKey = "carrier-token"
)

var tokenAcquisitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tracking_carrier_token_acquisitions_total",
	Help: "Upstream token requests by result.",
}, []string{"result"})

type cachedCredential struct {
	token     string
	expiresAt time.Time
}

// CredentialBroker caches the carrier bearer token and collapses concurrent
// acquisitions on a cache miss into a single upstream call.
type CredentialBroker struct {
	baseURL        string
	username       string
	accessCode     string
	postcardNumber string
	ttl            time.Duration

	httpc  *http.Client
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	cached *cachedCredential
	flight singleflight.Group
}

func NewCredentialBroker(cfg Config, httpc *http.Client, logger *slog.Logger) *CredentialBroker {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialBroker{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		username:       cfg.Username,
		accessCode:     cfg.AccessCode,
		postcardNumber: cfg.PostcardNumber,
		ttl:            cfg.TokenTTL,
		httpc:          httpc,
		logger:         logger.With(slog.String("component", "carrier_credentials")),
		now:            time.Now,
	}
}

// Token returns a valid bearer token. Cache hits do no I/O. Failures to
// acquire a token are permanent for the caller; the next call tries again.
func (b *CredentialBroker) Token(ctx context.Context) (string, error) {
	if tok, ok := b.cachedToken(); ok {
		return tok, nil
	}

	// запрос токена не должен отменяться вместе с первым вызывающим:
	// его результат ждут все остальные
	ch := b.flight.DoChan(tokenFlightKey, func() (any, error) {
		if tok, ok := b.cachedToken(); ok {
			return tok, nil
		}
		cred, err := b.acquire(context.WithoutCancel(ctx))
		if err != nil {
			tokenAcquisitions.WithLabelValues("error").Inc()
			return "", err
		}
		tokenAcquisitions.WithLabelValues("ok").Inc()

		b.mu.Lock()
		b.cached = cred
		b.mu.Unlock()
		b.logger.Debug("carrier token refreshed", slog.Time("expires_at", cred.expiresAt))
		return cred.token, nil
	})

	select {
	case <-ctx.Done():
		return "", errclass.Temporary(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token if it is still the given one. Called after
// the carrier rejected the token with 401/403.
func (b *CredentialBroker) Invalidate(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cached != nil && b.cached.token == token {
		b.cached = nil
	}
}

func (b *CredentialBroker) cachedToken() (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.cached == nil {
		return "", false
	}
	if !b.now().Add(tokenRefreshSkew).Before(b.cached.expiresAt) {
		return "", false
	}
	return b.cached.token, true
}

type tokenRequest struct {
	Numero string `json:"numero"`
}

type tokenResponse struct {
	Token    string `json:"token"`
	Emissao  string `json:"emissao,omitempty"`
	ExpiraEm string `json:"expiraEm,omitempty"`
}

func (b *CredentialBroker) acquire(ctx context.Context) (*cachedCredential, error) {
	if b.baseURL == "" || b.username == "" || b.accessCode == "" {
		return nil, errclass.Permanentf("carrier credentials are not configured")
	}

	path := "/token/v1/autentica"
	var body []byte
	if b.postcardNumber != "" {
		path = "/token/v1/autentica/cartaopostagem"
		var err error
		body, err = json.Marshal(tokenRequest{Numero: b.postcardNumber})
		if err != nil {
			return nil, errclass.Permanent(errors.Wrap(err, "marshal token request"))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errclass.Permanent(errors.Wrap(err, "new token request"))
	}
	req.SetBasicAuth(b.username, b.accessCode)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	issuedAt := b.now()
	resp, err := b.httpc.Do(req)
	if err != nil {
		return nil, errclass.Temporary(errors.Wrap(err, "token request"))
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		he := statusError(resp)
		return nil, errclass.Permanent(errors.Wrap(errors.Cause(he), "carrier auth rejected"))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, errclass.Permanent(errors.Wrap(err, "decode token"))
	}
	if tr.Token == "" {
		return nil, errclass.Permanentf("carrier auth returned an empty token")
	}

	return &cachedCredential{token: tr.Token, expiresAt: issuedAt.Add(b.ttl)}, nil
}
