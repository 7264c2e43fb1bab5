package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vaxhub/vaxhub/internal/config"
	"github.com/vaxhub/vaxhub/internal/domain/checkout"
	"github.com/vaxhub/vaxhub/internal/platform/db"
)

const ipolRequest = `{
  "candidate": {
    "lot": {
      "lot_number": "IPOL-24A",
      "product_id": 19,
      "expiration_date": "2027-06-30T00:00:00Z",
      "product": {
        "id": 19,
        "display_name": "IPOL",
        "antigen": "IPV",
        "category": "vaccine",
        "route_code": "IM_SC",
        "age_indications": [{"id": 190, "product_id": 19, "min_age_days": 42}]
      }
    }
  },
  "appointment": {
    "id": "6f1b8d2c-4a57-4c7e-9d8e-2b1a0c3d4e5f",
    "clinic_id": 7,
    "payment_method": "insurance",
    "patient": {"id": "0c6b5a49-8f3e-4d2a-b1c0-9e8d7f6a5b4c", "first_name": "Ada", "last_name": "L", "dob": "2024-01-15T00:00:00Z"}
  },
  "today": "2026-03-01T00:00:00Z"
}`

func TestRunEvaluate(t *testing.T) {
	var out bytes.Buffer
	if err := runEvaluate(strings.NewReader(ipolRequest), &out, checkout.NewVerifier(checkout.DefaultPolicy())); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	var got checkout.VaccineWithIssues
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if kinds := got.Issues.Kinds(); len(kinds) != 1 || kinds[0] != checkout.IssueRouteSelectionRequired {
		t.Errorf("expected only RouteSelectionRequired, got %v", kinds)
	}
}

func TestRunEvaluate_Errors(t *testing.T) {
	v := checkout.NewVerifier(checkout.DefaultPolicy())

	err := runEvaluate(strings.NewReader(`{"candidate":{"lot":{}}, "appointment":{}}`), &bytes.Buffer{}, v)
	if !errors.Is(err, checkout.ErrNotEvaluable) {
		t.Errorf("expected ErrNotEvaluable, got %v", err)
	}
	if err := runEvaluate(strings.NewReader(`{"candidat":{}}`), &bytes.Buffer{}, v); err == nil {
		t.Error("expected error for unknown field")
	}
	if err := runEvaluate(strings.NewReader(`not json`), &bytes.Buffer{}, v); err == nil {
		t.Error("expected error for malformed input")
	}
}

func TestPrintStatus(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var out bytes.Buffer
	printStatus(&out, []db.MigrationStatus{
		{Version: 1, Name: "schema", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "seed_catalog"},
	})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %q", out.String())
	}
	if !strings.Contains(lines[1], "applied") || !strings.Contains(lines[1], "2026-03-01T09:00:00Z") {
		t.Errorf("unexpected applied row %q", lines[1])
	}
	if !strings.Contains(lines[2], "pending") {
		t.Errorf("unexpected pending row %q", lines[2])
	}
}

func TestMigrationFiles_Embedded(t *testing.T) {
	migs, err := db.NewMigrator(nil, migrationFiles("")).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(migs) < 2 || migs[0].Version != 1 {
		t.Fatalf("expected embedded migrations starting at 1, got %+v", migs)
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Env:            "development",
		BodyLimit:      "64K",
		RequestTimeout: 5 * time.Second,
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	}
}

func testService() *checkout.Service {
	return checkout.NewService(checkout.NewVerifier(checkout.DefaultPolicy()), checkout.Deps{}, checkout.Features{}, zerolog.Nop())
}

func serve(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewServer_Dev(t *testing.T) {
	checks := map[string]db.Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}
	e := newServer(testConfig(), zerolog.Nop(), testService(), checks)

	rec := serve(t, e, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("/health: expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" || rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("expected request id and security headers")
	}

	rec = serve(t, e, http.MethodGet, "/health/db", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/health/db: expected 503 with a failing check, got %d", rec.Code)
	}

	rec = serve(t, e, http.MethodPost, "/api/v1/evaluate", ipolRequest, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/api/v1/evaluate: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNewServer_RequiresToken(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"
	cfg.AuthSigningKey = strings.Repeat("s", 32)
	e := newServer(cfg, zerolog.Nop(), testService(), map[string]db.Check{})

	if rec := serve(t, e, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("/health should stay public, got %d", rec.Code)
	}
	if rec := serve(t, e, http.MethodPost, "/api/v1/evaluate", ipolRequest, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
	if rec := serve(t, e, http.MethodPost, "/api/v1/evaluate", ipolRequest, "garbage"); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", rec.Code)
	}
}
