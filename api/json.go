package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/b0bbywan/go-odio-portal/backend/portal"
	"github.com/b0bbywan/go-odio-portal/backend/remotedesktop"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError reports a request body that decoded but failed its constraints.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %s failed %q", e.Field, e.Rule)
}

func JSONHandler(h func(http.ResponseWriter, *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := h(w, r)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// withBody decodes the JSON body into T, runs its validate tags, then calls next.
// An empty body decodes as the zero value.
func withBody[T any](
	next func(w http.ResponseWriter, r *http.Request, req *T),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		var req T
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid JSON payload", http.StatusBadRequest)
			return
		}

		if err := validateBody(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		next(w, r, &req)
	}
}

func validateBody(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Field: strings.ToLower(fe.Field()), Rule: fe.Tag()}
	}
	return err
}

// writeError maps backend errors onto HTTP status codes. A nil error is 202.
func writeError(w http.ResponseWriter, err error) {
	if err == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	http.Error(w, err.Error(), statusFor(err))
}

func statusFor(err error) int {
	var (
		validationErr *ValidationError
		tokenErr      *portal.InvalidTokenError
		stateErr      *remotedesktop.InvalidStateError
		closedErr     *remotedesktop.SessionClosedError
		deniedErr     *remotedesktop.CapabilityDeniedError
		cancelledErr  *portal.CancelledError
		requestErr    *portal.RequestClosedError
		responseErr   *portal.ResponseError
		transportErr  *portal.TransportError
		timeoutErr    *portal.TimeoutError
	)

	switch {
	case errors.As(err, &validationErr), errors.As(err, &tokenErr):
		return http.StatusBadRequest
	case errors.As(err, &deniedErr), errors.As(err, &cancelledErr):
		return http.StatusForbidden
	case errors.As(err, &stateErr), errors.As(err, &closedErr), errors.As(err, &requestErr):
		return http.StatusConflict
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	case errors.As(err, &responseErr), errors.As(err, &transportErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
