// internal/api/errors_test.go
package api

import (
	"errors"
	"testing"
	"time"

	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uracles/mini-wallet-application/internal/apperr"
)

func extensionsOf(t *testing.T, err error) map[string]interface{} {
	t.Helper()
	var extended gqlerrors.ExtendedError
	require.ErrorAs(t, err, &extended)
	return extended.Extensions()
}

func TestMapErrorKeepsDomainCodeAndMessage(t *testing.T) {
	err := mapError(true, apperr.New(apperr.CodeInsufficientFunds, "insufficient funds for transfer"))

	assert.Equal(t, "insufficient funds for transfer", err.Error())
	assert.Equal(t, "INSUFFICIENT_FUNDS", extensionsOf(t, err)["code"])
}

func TestMapErrorRateLimitedIncludesRetryAfter(t *testing.T) {
	err := mapError(true, apperr.RateLimited(42*time.Second))

	ext := extensionsOf(t, err)
	assert.Equal(t, "RATE_LIMITED", ext["code"])
	assert.Equal(t, 43, ext["retryAfter"])
}

func TestMapErrorMasksInternalInProduction(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.5:5432: connection refused")

	err := mapError(true, cause)
	assert.Equal(t, "internal server error", err.Error())
	assert.Equal(t, "INTERNAL", extensionsOf(t, err)["code"])

	// Development keeps the underlying message for debugging.
	err = mapError(false, cause)
	assert.Equal(t, cause.Error(), err.Error())
	assert.Equal(t, "INTERNAL", extensionsOf(t, err)["code"])
}

func TestMapErrorMasksTaggedInternal(t *testing.T) {
	err := mapError(true, apperr.Wrap(apperr.CodeInternal, "query failed", errors.New("pq: relation missing")))

	assert.Equal(t, "internal server error", err.Error())
	assert.Equal(t, "INTERNAL", extensionsOf(t, err)["code"])
}
