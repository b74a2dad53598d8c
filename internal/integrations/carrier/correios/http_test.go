package correios

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ecommerce-omar/tracking-api/internal/errclass"
)

func TestClassifyHTTPStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504, 401, 403} {
		require.Equal(t, errclass.KindTemporary, ClassifyHTTPStatus(code), code)
	}
	for _, code := range []int{400, 404, 422} {
		require.Equal(t, errclass.KindPermanent, ClassifyHTTPStatus(code), code)
	}
	// всё остальное по умолчанию временное
	for _, code := range []int{405, 409, 418, 501, 520} {
		require.Equal(t, errclass.KindTemporary, ClassifyHTTPStatus(code), code)
	}
}
