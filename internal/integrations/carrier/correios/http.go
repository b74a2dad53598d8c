package correios

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ecommerce-omar/tracking-api/internal/errclass"
)

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("carrier http %d: %s", e.Code, e.Body)
}

// ClassifyHTTPStatus maps a non-2xx lookup response onto the retry taxonomy.
// 401/403 are treated as a possibly expired token, not as a denial.
func ClassifyHTTPStatus(code int) errclass.Kind {
	switch code {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return errclass.KindPermanent
	case http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout,
		http.StatusUnauthorized, http.StatusForbidden:
		return errclass.KindTemporary
	default:
		return errclass.KindTemporary
	}
}

func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	he := &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	if ClassifyHTTPStatus(resp.StatusCode) == errclass.KindPermanent {
		return errclass.Permanent(he)
	}
	return errclass.Temporary(he)
}
