/**
 * @description
 * This file holds the `Handlers` type shared by every HTTP handler of the ledger-service and
 * the helpers that decode requests and write the response envelope. Handlers parse input,
 * call the application service and map its result or error to HTTP. The handlers themselves
 * live in handlers_ledger.go, handlers_campout.go and handlers_fundraising.go.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: URL parameters.
 * - github.com/sirupsen/logrus: structured logging.
 * - internal/app, internal/domain: service logic and error kinds.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/troopledger/ledger-service/internal/app"
	"github.com/troopledger/ledger-service/internal/domain"
)

// Handlers holds the application service that handlers will use.
type Handlers struct {
	service *app.Service
	logger  *logrus.Entry
}

func NewHandlers(service *app.Service, logger *logrus.Logger) *Handlers {
	return &Handlers{service: service, logger: logger.WithField("component", "api")}
}

// envelope is the body of every successful response.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Details []string    `json:"details,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// errorBody carries the items a multi-step operation completed before it failed.
type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeSuccess(w http.ResponseWriter, status int, message string, details []string, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Message: message, Details: details, Data: data})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, app.ErrThrottled):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeServiceError maps a service error to its status code. Unknown errors are logged and
// hidden behind a generic 500. details lists work completed before the failure.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error, details ...string) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		message = "Internal server error"
	}
	var throttled *app.ThrottleError
	if errors.As(err, &throttled) {
		w.Header().Set("Retry-After", strconv.Itoa(throttled.RetryAfterSeconds))
	}
	writeJSON(w, status, errorBody{Error: message, Details: details})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}

// urlUUID reads a UUID path parameter, writing a 400 when it is malformed.
func urlUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

// caller returns the troop from the URL and the member LoadMember attached.
func caller(r *http.Request) (uuid.UUID, *domain.TroopMember) {
	member, _ := memberFrom(r.Context())
	return member.TroopID, member
}

func actorOf(member *domain.TroopMember) app.Actor {
	return app.Actor{UserID: member.UserID, Privileged: member.Role.Privileged()}
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("healthy"))
}
