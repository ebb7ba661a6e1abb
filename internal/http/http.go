package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"ledgerviz/internal/logging"
	"ledgerviz/internal/models"
	"ledgerviz/internal/services/accounts"
	"ledgerviz/internal/services/render"
	"ledgerviz/internal/services/storage"
	"ledgerviz/internal/templates"
)

// ErrBadRequest marks malformed client input
var ErrBadRequest = errors.New("bad request")

// BadRequest wraps a message as ErrBadRequest
func BadRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// StatusFor maps an error to the HTTP status it should produce
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, models.ErrUnknownMode),
		errors.Is(err, models.ErrUnknownInterval),
		errors.Is(err, render.ErrUnknownFormat),
		errors.Is(err, storage.ErrPasswordTooShort),
		errors.Is(err, storage.ErrAlreadyEncrypted),
		errors.Is(err, storage.ErrNotEncrypted):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrIncorrectPassword):
		return http.StatusUnauthorized
	case errors.Is(err, render.ErrNothingToRender):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrLocked):
		return http.StatusLocked
	}
	return http.StatusInternalServerError
}

// ErrorResponse logs err and writes it with the status from StatusFor
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	log := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		log.Info("request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

// JSON writes v as a JSON response
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Log.Warn("encode response", zap.Error(err))
	}
}

// RenderTemplate renders a full page template with data
func RenderTemplate(w http.ResponseWriter, renderer *templates.Renderer, templateName string, data map[string]interface{}) {
	if renderer == nil {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><h1>" + templateName + "</h1><p>Templates not loaded. Check configuration.</p></body></html>"))
		return
	}
	renderer.Render(w, templateName, data)
}

// ParseDateRange parses the start and end query values. Blank values fall
// back to the first and last day of the data, and a blank end never falls
// before start. An explicit end before the start is rejected.
func ParseDateRange(startStr, endStr string, minDate, maxDate time.Time) (start, end time.Time, err error) {
	start, end = minDate, maxDate

	if startStr != "" {
		if start, err = time.Parse(models.DateFormat, startStr); err != nil {
			return start, end, BadRequest("invalid start date %q", startStr)
		}
	}
	if endStr != "" {
		if end, err = time.Parse(models.DateFormat, endStr); err != nil {
			return start, end, BadRequest("invalid end date %q", endStr)
		}
	} else if end.Before(start) {
		// no data after start, so the range is the start day alone
		end = start
	}

	if end.Before(start) {
		return start, end, BadRequest("end date %s is before start date %s",
			end.Format(models.DateFormat), start.Format(models.DateFormat))
	}
	return start, end, nil
}

// ParseInterval parses the interval query value, using fallback when blank
func ParseInterval(s string, fallback models.Interval) (models.Interval, error) {
	if s == "" {
		return fallback, nil
	}
	return models.ParseInterval(s)
}

// SelectedAccounts reads the accounts query parameter, which may be
// repeated or comma separated
func SelectedAccounts(r *http.Request) []string {
	return accounts.SplitList(r.URL.Query()["accounts"])
}
