package handlers

import (
	"encoding/json"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obs.Log(r.Context()).WithError(err).WithField("path", r.URL.Path).Error("encode failed")
	}
}

// writeJSONBody encodes v with status 200 without touching Content-Type.
func writeJSONBody(w http.ResponseWriter, r *http.Request, v any) {
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obs.Log(r.Context()).WithError(err).WithField("path", r.URL.Path).Error("encode failed")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var (
		ve *domain.ValidationError
		oe *domain.OptimizationError
		ge *domain.GeocodeError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &oe), errors.As(err, &ge):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the text shown to the caller. Unclassified errors are
// logged but not echoed.
func messageFor(r *http.Request, err error) string {
	var ve *domain.ValidationError
	var oe *domain.OptimizationError
	var ge *domain.GeocodeError
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &oe):
		if oe.Kind == domain.KindService {
			return oe.Msg
		}
		return "route optimizer unavailable: " + oe.Kind.String()
	case errors.As(err, &ge):
		if ge.Kind == domain.KindService {
			return ge.Msg
		}
		return "geocoder unavailable: " + ge.Kind.String()
	case errors.Is(err, domain.ErrNotFound):
		return "not found"
	}

	obs.Log(r.Context()).WithError(err).Error("request failed")
	var pe *domain.PersistenceError
	if errors.As(err, &pe) {
		return "failed to save routes"
	}
	return "internal error"
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, statusFor(err), messageFor(r, err))
}

// decodeJSON reads exactly one JSON object into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+": failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

// dateParam reads ?date=YYYY-MM-DD. A missing date yields the zero time
// unless required.
func dateParam(r *http.Request, required bool) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get("date"))
	if v == "" {
		if required {
			return time.Time{}, &domain.ValidationError{Field: "date", Msg: "date is required (YYYY-MM-DD)"}
		}
		return time.Time{}, nil
	}
	return domain.ParseDate(v)
}
