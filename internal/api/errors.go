// internal/api/errors.go
package api

import (
	"errors"

	"go.uber.org/zap"

	"github.com/uracles/mini-wallet-application/internal/apperr"
	"github.com/uracles/mini-wallet-application/internal/logging"
)

// resolverError implements gqlerrors.ExtendedError so the GraphQL handler
// renders the machine-readable code in the error extensions.
type resolverError struct {
	message    string
	extensions map[string]interface{}
}

func (e *resolverError) Error() string {
	return e.message
}

func (e *resolverError) Extensions() map[string]interface{} {
	return e.extensions
}

// mapError turns a service error into its caller-visible form. Tagged
// domain errors keep their message and code; anything unclassified is
// logged in full and masked behind a generic message in production.
func mapError(production bool, err error) error {
	var tagged *apperr.Error
	if !errors.As(err, &tagged) || tagged.Code == apperr.CodeInternal {
		logging.Error("internal error", zap.Error(err))

		message := err.Error()
		if production {
			message = "internal server error"
		}
		return &resolverError{
			message:    message,
			extensions: map[string]interface{}{"code": string(apperr.CodeInternal)},
		}
	}

	extensions := map[string]interface{}{"code": string(tagged.Code)}
	if tagged.Code == apperr.CodeRateLimited && tagged.RetryAfter > 0 {
		extensions["retryAfter"] = int(tagged.RetryAfter.Seconds()) + 1
	}

	return &resolverError{message: tagged.Message, extensions: extensions}
}
