package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vaxhub/vaxhub/internal/platform/auth"
)

// AuditEntry records who touched which appointment's checkout.
type AuditEntry struct {
	UserID        string
	UserRoles     []string
	ClinicID      int
	AppointmentID string
	DoseID        string
	Action        string
	Method        string
	Path          string
	IPAddress     string
	StatusCode    int
	RequestID     string
	Timestamp     time.Time
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every /api/v1 request after it is handled, with the
// authenticated user and the appointment and dose it addressed. Entries are
// also passed to recorder when one is given.
func Audit(logger zerolog.Logger, recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.URL.Path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			ctx := req.Context()
			entry := AuditEntry{
				UserID:        auth.UserIDFromContext(ctx),
				UserRoles:     auth.RolesFromContext(ctx),
				ClinicID:      auth.ClinicIDFromContext(ctx),
				AppointmentID: c.Param("appointment_id"),
				DoseID:        c.Param("id"),
				Action:        auditAction(req.Method, c.Path()),
				Method:        req.Method,
				Path:          req.URL.Path,
				IPAddress:     c.RealIP(),
				StatusCode:    c.Response().Status,
				Timestamp:     time.Now().UTC(),
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.StatusCode = he.Code
			}
			entry.RequestID, _ = c.Get("request_id").(string)

			if recorder != nil {
				if recErr := recorder.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Int("clinic_id", entry.ClinicID).
				Str("appointment_id", entry.AppointmentID).
				Str("dose_id", entry.DoseID).
				Str("action", entry.Action).
				Int("status", entry.StatusCode).
				Str("remote_ip", entry.IPAddress).
				Msg("checkout_access")

			return err
		}
	}
}

// auditAction names the checkout operation from the matched route, falling
// back to the HTTP method.
func auditAction(method, route string) string {
	switch {
	case strings.HasSuffix(route, "/evaluate"):
		return "evaluate"
	case strings.HasSuffix(route, "/submit"):
		return "submit"
	case strings.HasSuffix(route, "/refresh"):
		return "refresh"
	case strings.HasSuffix(route, "/medd"):
		return "medd"
	case strings.HasSuffix(route, "/restore"):
		return "restore"
	case strings.HasSuffix(route, "/route"):
		return "select_route"
	case strings.HasSuffix(route, "/payment"):
		return "payment_mode"
	case strings.HasSuffix(route, "/doses") && method == http.MethodPost:
		return "scan"
	case strings.HasSuffix(route, "/doses/:id") && method == http.MethodDelete:
		return "remove"
	}
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}
