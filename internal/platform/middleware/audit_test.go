package middleware

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestAudit_RecordsCheckoutAccess(t *testing.T) {
	c, _ := newTestContext(http.MethodDelete, "/api/v1/checkouts/a1/doses/d1", "")
	c.SetPath("/api/v1/checkouts/:appointment_id/doses/:id")
	c.SetParamNames("appointment_id", "id")
	c.SetParamValues("a1", "d1")
	c.Set("request_id", "req-abc")

	var got []AuditEntry
	rec := AuditRecorderFunc(func(e AuditEntry) error {
		got = append(got, e)
		return nil
	})
	if err := Audit(zerolog.Nop(), rec)(ok)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	e := got[0]
	if e.AppointmentID != "a1" || e.DoseID != "d1" || e.Action != "remove" {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.RequestID != "req-abc" || e.StatusCode != http.StatusOK {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestAudit_UsesErrorStatus(t *testing.T) {
	c, _ := newTestContext(http.MethodPost, "/api/v1/checkouts/a1/submit", "")
	c.SetPath("/api/v1/checkouts/:appointment_id/submit")

	var got AuditEntry
	rec := AuditRecorderFunc(func(e AuditEntry) error { got = e; return nil })
	fail := func(echo.Context) error { return echo.NewHTTPError(http.StatusConflict) }
	_ = Audit(zerolog.Nop(), rec)(fail)(c)

	if got.StatusCode != http.StatusConflict || got.Action != "submit" {
		t.Errorf("unexpected entry %+v", got)
	}
}

func TestAudit_SkipsOtherPaths(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/health", "")
	called := false
	rec := AuditRecorderFunc(func(AuditEntry) error { called = true; return nil })
	if err := Audit(zerolog.Nop(), rec)(ok)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("health checks should not be audited")
	}
}

func TestAudit_RecorderFailureDoesNotFailRequest(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/api/v1/checkouts/a1", "")
	rec := AuditRecorderFunc(func(AuditEntry) error { return errors.New("disk full") })
	if err := Audit(zerolog.Nop(), rec)(ok)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuditAction(t *testing.T) {
	tests := []struct {
		method, route, want string
	}{
		{http.MethodPost, "/api/v1/evaluate", "evaluate"},
		{http.MethodPost, "/api/v1/checkouts/:appointment_id/doses", "scan"},
		{http.MethodPut, "/api/v1/checkouts/:appointment_id/doses/:id/route", "select_route"},
		{http.MethodPut, "/api/v1/checkouts/:appointment_id/doses/:id/payment", "payment_mode"},
		{http.MethodPut, "/api/v1/checkouts/:appointment_id/medd", "medd"},
		{http.MethodGet, "/api/v1/checkouts/:appointment_id", "read"},
		{http.MethodPost, "/api/v1/checkouts/:appointment_id", "create"},
	}
	for _, tt := range tests {
		if got := auditAction(tt.method, tt.route); got != tt.want {
			t.Errorf("auditAction(%s, %s) = %s, want %s", tt.method, tt.route, got, tt.want)
		}
	}
}
