package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %d error, got nil", code)
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(okHandler)(c)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(okHandler)(c)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "nurse-1",
			Issuer:    "vaxhub",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		ClinicID: 42,
		Roles:    []string{RoleNurse},
	}
	tokenStr := createTestToken(t, claims, testSigningKey)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotUser string
	var gotRoles []string
	var gotClinic int
	handler := func(c echo.Context) error {
		ctx := c.Request().Context()
		gotUser = UserIDFromContext(ctx)
		gotRoles = RolesFromContext(ctx)
		gotClinic = ClinicIDFromContext(ctx)
		return c.String(http.StatusOK, "ok")
	}

	err := JWTMiddleware(JWTConfig{SigningKey: testSigningKey, Issuer: "vaxhub"})(handler)(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUser != "nurse-1" {
		t.Errorf("expected user nurse-1, got %q", gotUser)
	}
	if len(gotRoles) != 1 || gotRoles[0] != RoleNurse {
		t.Errorf("expected roles [nurse], got %v", gotRoles)
	}
	if gotClinic != 42 {
		t.Errorf("expected clinic 42, got %d", gotClinic)
	}
}

func TestJWTMiddleware_Rejects(t *testing.T) {
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	tests := []struct {
		name   string
		claims Claims
		key    []byte
	}{
		{
			name:   "wrong key",
			claims: Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Issuer: "vaxhub", ExpiresAt: future}},
			key:    []byte("another-key"),
		},
		{
			name:   "expired",
			claims: Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Issuer: "vaxhub", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}},
			key:    testSigningKey,
		},
		{
			name:   "wrong issuer",
			claims: Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Issuer: "someone-else", ExpiresAt: future}},
			key:    testSigningKey,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+createTestToken(t, tt.claims, tt.key))
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := JWTMiddleware(JWTConfig{SigningKey: testSigningKey, Issuer: "vaxhub"})(okHandler)(c)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_Skipper(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/health")

	err := JWTMiddleware(JWTConfig{SigningKey: testSigningKey, Skipper: AuthSkipper})(okHandler)(c)
	if err != nil {
		t.Fatalf("expected skipped request to pass, got %v", err)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var roles []string
	handler := func(c echo.Context) error {
		roles = RolesFromContext(c.Request().Context())
		return nil
	}
	if err := DevAuthMiddleware()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles) != 1 || roles[0] != RoleAdmin {
		t.Errorf("expected admin role, got %v", roles)
	}
}
